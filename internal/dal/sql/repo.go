package sql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/Roma7-7-7/vocabulary-trainer/internal/dal"
)

const cleanupInterval = time.Hour

var _ dal.Repository = (*Repository)(nil)

type (
	Client interface {
		ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
		QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
		QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	}

	Repository struct {
		db     *sql.DB
		client Client
		inTx   bool
		now    func() time.Time
		log    *slog.Logger
	}
)

// NewRepository creates a repository on top of db and starts the hourly cleanup of expired auth confirmations.
// The job stops when ctx is done.
func NewRepository(ctx context.Context, db *sql.DB, log *slog.Logger) *Repository {
	res := &Repository{db: db, client: db, now: time.Now, log: log}
	go res.cleanupAuthConfirmationsJob(ctx)
	return res
}

func (r *Repository) Transact(ctx context.Context, txFunc func(r dal.Repository) error) error {
	return r.transact(ctx, func(tx *Repository) error {
		return txFunc(tx)
	})
}

func (r *Repository) transact(ctx context.Context, txFunc func(r *Repository) error) error {
	if r.inTx {
		return txFunc(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // ignore rollback errors

	if err = txFunc(&Repository{db: r.db, client: tx, inTx: true, now: r.now, log: r.log}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

func (r *Repository) exec(ctx context.Context, query squirrel.Sqlizer) (sql.Result, error) {
	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	return r.client.ExecContext(ctx, sqlQuery, args...)
}

func (r *Repository) queryRow(ctx context.Context, query squirrel.Sqlizer) (*sql.Row, error) {
	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	return r.client.QueryRowContext(ctx, sqlQuery, args...), nil
}

func (r *Repository) query(ctx context.Context, query squirrel.Sqlizer) (*sql.Rows, error) {
	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	return r.client.QueryContext(ctx, sqlQuery, args...)
}

type scanner interface {
	Scan(dest ...any) error
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	res := t.Time.UTC()
	return &res
}
