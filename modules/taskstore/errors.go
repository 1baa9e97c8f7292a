package taskstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrRelationMissing is returned when the tasks table does not exist.
var ErrRelationMissing = errors.New("relation \"tasks\" does not exist")

// ErrOwnerRequired is returned when a request carries no owner.
var ErrOwnerRequired = errors.New("owner is required")

// Error codes carried in service responses.
const (
	// CodeRelationMissing uses the Postgres SQLSTATE for undefined_table so
	// callers can match it regardless of the backing driver.
	CodeRelationMissing = "42P01"
	CodeInvalidRequest  = "invalid_request"
	CodeStorage         = "storage_error"
)

// pgUndefinedTable is the SQLSTATE for a missing relation.
const pgUndefinedTable = "42P01"

// classify wraps missing-table failures with ErrRelationMissing and leaves
// every other error untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if isMissingRelation(err) {
		return fmt.Errorf("%w: %v", ErrRelationMissing, err)
	}
	return err
}

func isMissingRelation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUndefinedTable
	}
	// SQLite reports "no such table: tasks".
	return strings.Contains(err.Error(), "no such table")
}

// errorCode maps an error to the code sent back to callers.
func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrRelationMissing):
		return CodeRelationMissing
	case errors.Is(err, ErrOwnerRequired):
		return CodeInvalidRequest
	default:
		return CodeStorage
	}
}
