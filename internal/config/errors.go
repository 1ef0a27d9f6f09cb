package config

import (
	"errors"
)

var (
	// ErrDBHostEmpty is returned if a network storage driver is selected without db.host.
	ErrDBHostEmpty = errors.New("config db.host can not be empty for storage driver mysql or postgres")

	// ErrSQLitePathEmpty is returned if the sqlite storage driver has no file path.
	ErrSQLitePathEmpty = errors.New("config storage.path can not be empty for storage driver sqlite")
)
