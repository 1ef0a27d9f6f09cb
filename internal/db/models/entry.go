// Package models contains database model definitions.
package models

// Entry is one key of the key value storage. Column names follow the
// gofiber storage tables, so a table can move between backends.
type Entry struct {
	Key       string `gorm:"column:k;primaryKey;size:255"`
	Value     []byte `gorm:"column:v"`
	ExpiresAt int64  `gorm:"column:e;index;not null;default:0"` // unix seconds, 0 never expires
}

// Expired reports whether e is expired at unix second now.
func (e *Entry) Expired(now int64) bool {
	return e.ExpiresAt != 0 && e.ExpiresAt <= now
}
