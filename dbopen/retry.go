package dbopen

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const maxRetries = 3

// IsBusy reports whether err is an SQLite BUSY or locked condition.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// Exec runs a statement, retrying up to 3 times on BUSY with 100/200/300 ms
// backoff.
func Exec(ctx context.Context, db *sql.DB, query string, args ...any) (sql.Result, error) {
	for i := range maxRetries {
		res, err := db.ExecContext(ctx, query, args...)
		if err == nil {
			return res, nil
		}
		if !IsBusy(err) || i == maxRetries-1 {
			return nil, err
		}
		t := time.NewTimer(time.Duration(100*(i+1)) * time.Millisecond)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, fmt.Errorf("dbopen: context cancelled during retry: %w", ctx.Err())
		case <-t.C:
		}
	}
	return nil, fmt.Errorf("dbopen: Exec: max retries exceeded")
}
