package auth

import (
	"crypto/subtle"
	"errors"

	"github.com/crm/dashboard/internal/infrastructure/config"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for any username/password mismatch
var ErrInvalidCredentials = errors.New("invalid username or password")

// Principal is the authenticated dashboard user
type Principal struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// CredentialChecker validates the single configured dashboard login
type CredentialChecker struct {
	username     string
	password     string
	passwordHash []byte
	role         string
}

// NewCredentialChecker creates a checker from auth config. A bcrypt hash,
// when present, takes precedence over the plain password.
func NewCredentialChecker(cfg config.AuthConfig) *CredentialChecker {
	c := &CredentialChecker{
		username: cfg.Username,
		role:     cfg.Role,
	}
	if cfg.PasswordHash != "" {
		c.passwordHash = []byte(cfg.PasswordHash)
	} else {
		c.password = cfg.Password
	}
	return c
}

// Verify returns the principal for a matching pair, ErrInvalidCredentials otherwise
func (c *CredentialChecker) Verify(username, password string) (*Principal, error) {
	if c.username == "" || username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.username)) == 1

	var passOK bool
	if len(c.passwordHash) > 0 {
		passOK = bcrypt.CompareHashAndPassword(c.passwordHash, []byte(password)) == nil
	} else {
		passOK = c.password != "" && subtle.ConstantTimeCompare([]byte(password), []byte(c.password)) == 1
	}

	if !userOK || !passOK {
		return nil, ErrInvalidCredentials
	}
	return &Principal{Username: c.username, Role: c.role}, nil
}

// HashPassword returns a bcrypt hash suitable for auth.password_hash
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
