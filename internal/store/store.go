// CLAUDE:SUMMARY SQLite handle for adcover: opens with dbopen pragmas and applies the event schema.
// Package store persists overlay events and scan reports in SQLite.
package store

import (
	"database/sql"

	"github.com/hazyhaar/adcover/dbopen"
)

// Store is the adcover database handle.
type Store struct {
	DB *sql.DB
}

// Open opens (or creates) the database at path and applies Schema.
// Extra options are applied after the defaults.
func Open(path string, opts ...dbopen.Option) (*Store, error) {
	all := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	}, opts...)

	db, err := dbopen.Open(path, all...)
	if err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}
