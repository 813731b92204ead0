package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/vbonduro/lightbnb/internal/domain"
)

// classify tags constraint violations from either driver with the matching
// domain sentinel, keeping the driver error in the chain. Other errors are
// returned unchanged.
func classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "unique_violation":
			return fmt.Errorf("%w: %w", domain.ErrConflict, err)
		case "foreign_key_violation":
			return fmt.Errorf("%w: %w", domain.ErrInvalidReference, err)
		}
		return err
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %w", domain.ErrConflict, err)
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%w: %w", domain.ErrInvalidReference, err)
		}
		// Without extended result codes only the primary code is set.
		if liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
			msg := liteErr.Error()
			switch {
			case strings.Contains(msg, "UNIQUE"):
				return fmt.Errorf("%w: %w", domain.ErrConflict, err)
			case strings.Contains(msg, "FOREIGN KEY"):
				return fmt.Errorf("%w: %w", domain.ErrInvalidReference, err)
			}
		}
	}
	return err
}
