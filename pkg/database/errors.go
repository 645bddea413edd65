package database

import "errors"

// ErrDirty indicates a previous migration failed part way and the schema
// version must be forced before migrating again.
var ErrDirty = errors.New("database schema is dirty")
