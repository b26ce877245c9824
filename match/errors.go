package match

import (
	"context"
	"errors"
	"fmt"

	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

// Error classes returned by the engine. Concrete errors wrap exactly one of
// them; test with errors.Is.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrTransient       = errors.New("transient failure")
	ErrInternal        = errors.New("internal error")
)

const (
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

func invalidArgument(msg string) error { return fmt.Errorf("%w: %s", ErrInvalidArgument, msg) }
func notFound(msg string) error        { return fmt.Errorf("%w: %s", ErrNotFound, msg) }
func conflict(msg string) error        { return fmt.Errorf("%w: %s", ErrConflict, msg) }

// classify maps a storage error onto the engine's error classes. Errors that
// already carry a class pass through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{ErrInvalidArgument, ErrNotFound, ErrConflict, ErrTransient, ErrInternal} {
		if errors.Is(err, known) {
			return err
		}
	}
	if isTransient(err) {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return fmt.Errorf("%w: %w", ErrInternal, err)
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	// A concurrent insert of the same ledger row won the race; rerunning the
	// call observes it.
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysqldrv.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDeadlock || myErr.Number == mysqlLockWaitTimeout
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked
	}
	return false
}
