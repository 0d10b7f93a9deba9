package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ecomission/internal/database"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("not found")

// ErrUniqueViolation is returned when an insert hits a unique constraint
var ErrUniqueViolation = errors.New("unique violation")

// querier is satisfied by both *sql.Tx and *database.Manager
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type txKey struct{}

// BaseRepository provides common database operations
type BaseRepository struct {
	db     *database.Manager
	logger *zap.Logger
}

// NewBaseRepository creates a new base repository
func NewBaseRepository(db *database.Manager, logger *zap.Logger) *BaseRepository {
	return &BaseRepository{
		db:     db,
		logger: logger,
	}
}

// q returns the transaction bound to ctx, or the pool when there is none
func (r *BaseRepository) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return r.db
}

// ExecContext executes a statement with slow-query logging
func (r *BaseRepository) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	result, err := r.q(ctx).ExecContext(ctx, query, args...)
	r.logSlow(query, start)
	return result, err
}

// QueryContext executes a query that returns rows
func (r *BaseRepository) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	start := time.Now()
	rows, err := r.q(ctx).QueryContext(ctx, query, args...)
	r.logSlow(query, start)
	return rows, err
}

// QueryRowContext executes a query that returns a single row
func (r *BaseRepository) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	start := time.Now()
	row := r.q(ctx).QueryRowContext(ctx, query, args...)
	r.logSlow(query, start)
	return row
}

func (r *BaseRepository) logSlow(query string, start time.Time) {
	if duration := time.Since(start); duration > 100*time.Millisecond {
		r.logger.Warn("Slow query detected",
			zap.String("query", r.truncateQuery(query)),
			zap.Duration("duration", duration),
		)
	}
}

// ===============================
// TRANSACTION HELPERS
// ===============================

// WithinTransaction runs fn with a transaction bound to its context.
// Calls nested inside an existing transaction join it.
func (r *BaseRepository) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.Error("Failed to rollback transaction", zap.Error(rbErr))
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ===============================
// ERROR HELPERS
// ===============================

// IsNotFound checks if error is a "not found" error
func (r *BaseRepository) IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// HandleNotFound converts sql.ErrNoRows to ErrNotFound
func (r *BaseRepository) HandleNotFound(err error) error {
	if r.IsNotFound(err) {
		return ErrNotFound
	}
	return err
}

// isUniqueViolation reports whether err is a Postgres unique_violation on constraint
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return constraint == "" || pqErr.Constraint == constraint
	}
	return false
}

// truncateQuery truncates long queries for logging
func (r *BaseRepository) truncateQuery(query string) string {
	const maxLength = 200
	if len(query) <= maxLength {
		return query
	}
	return query[:maxLength] + "..."
}

// GetLogger returns the logger instance
func (r *BaseRepository) GetLogger() *zap.Logger {
	return r.logger
}
