package database

import "errors"

// ErrDatabaseNotFound is returned by Open when the database does not exist
// and CreateIfNotExists is false.
var ErrDatabaseNotFound = errors.New("build history database not found")
