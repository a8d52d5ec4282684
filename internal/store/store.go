// Package store persists projects and admin users. Postgres is the production
// backend; SQLite serves local development and tests.
package store

import (
	"errors"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a unique key is already taken.
	ErrConflict = errors.New("record already exists")
)

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
