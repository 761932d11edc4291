// Package models contains GORM persistence models that map to the tables
// created by the SQL migrations. They are separate from domain entities so the
// domain layer stays free of ORM tags.
//
// Structure:
//   - base.go: Row, the key and timestamps shared by all tables
//   - identity.go: users
//   - catalog.go: products
//   - trade.go: orders, order items, purchases
//   - finance.go: expenses
package models
