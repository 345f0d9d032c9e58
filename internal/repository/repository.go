// Package repository holds the PostgreSQL data access layer. Lookups return
// nil, nil when a row does not exist; errors are reserved for database failures
// and constraint outcomes callers must react to.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrStaleVersion means a compare-and-set update found the row changed
	// since it was read.
	ErrStaleVersion = errors.New("record was modified concurrently")

	ErrDuplicateUsername = errors.New("username already taken")
	ErrDuplicateEmail    = errors.New("email already registered")
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// whereClause accumulates positional SQL conditions.
type whereClause struct {
	conditions []string
	args       []any
}

// add appends a condition. Each "?" in cond is replaced by the next
// positional parameter.
func (w *whereClause) add(cond string, args ...any) {
	for _, arg := range args {
		w.args = append(w.args, arg)
		cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", len(w.args)), 1)
	}
	w.conditions = append(w.conditions, cond)
}

func (w *whereClause) String() string {
	if len(w.conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conditions, " AND ")
}

// page appends LIMIT/OFFSET parameters and returns the clause.
func (w *whereClause) page(limit, offset int) (string, []any) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	args := append(append([]any{}, w.args...), limit, offset)
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args)), args
}

func likePattern(search string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.TrimSpace(search))
	return "%" + escaped + "%"
}
