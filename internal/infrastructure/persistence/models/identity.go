package models

// UserModel is the persistence model for dashboard users.
type UserModel struct {
	Row
	Username     string `gorm:"type:varchar(100);not null;uniqueIndex" json:"username"`
	Email        string `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	PasswordHash string `gorm:"type:varchar(255);not null" json:"-"`
	Role         string `gorm:"type:varchar(50);not null" json:"role"`
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}
