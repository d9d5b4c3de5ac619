package schema

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/sqldeploy/sqldeploy/internal/resource"
	"github.com/sqldeploy/sqldeploy/internal/token"
)

// OpenFunc opens a database/sql handle on first use.
type OpenFunc func(ctx context.Context) (*sql.DB, error)

// SQLReader reads the changelog through database/sql.
type SQLReader struct {
	open    OpenFunc
	db      *sql.DB
	queries queries
	ensure  bool
	Logger  zerolog.Logger
}

// NewSQLReader returns a reader that connects lazily via open. With ensure
// set, the changelog table is created if missing before it is read.
func NewSQLReader(open OpenFunc, resources Resources, replacer *token.Replacer, ensure bool, logger zerolog.Logger) *SQLReader {
	return &SQLReader{
		open:    open,
		queries: queries{resources: resources, replacer: replacer},
		ensure:  ensure,
		Logger:  logger,
	}
}

func (r *SQLReader) connect(ctx context.Context) error {
	if r.db != nil {
		return nil
	}
	db, err := r.open(ctx)
	if err != nil {
		return err
	}
	r.db = db
	return nil
}

func (r *SQLReader) GetAppliedChanges(ctx context.Context) (AppliedChanges, error) {
	if err := r.connect(ctx); err != nil {
		return nil, err
	}

	if r.ensure {
		ddl, err := r.queries.render(resource.EnsureChangeLogExists)
		if err != nil {
			return nil, err
		}
		r.Logger.Debug().Msg("Ensuring changelog table exists")
		if _, err := r.db.ExecContext(ctx, ddl); err != nil {
			return nil, fmt.Errorf("failed to create changelog table: %w", err)
		}
	}

	query, err := r.queries.render(resource.GetChangeLog)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query changelog: %w", err)
	}
	defer rows.Close()

	applied := make(AppliedChanges)
	for rows.Next() {
		var (
			number      decimal.Decimal
			appliedBy   sql.NullString
			completed   interface{}
			description sql.NullString
		)
		if err := rows.Scan(&number, &appliedBy, &completed, &description); err != nil {
			return nil, fmt.Errorf("failed to scan changelog row: %w", err)
		}
		completedAt, err := toTime(completed)
		if err != nil {
			return nil, fmt.Errorf("failed to read completion date of change %s: %w", number, err)
		}
		applied.add(ChangeLogEntry{
			ChangeNumber:       number,
			AppliedBy:          appliedBy.String,
			ApplicationEndDate: completedAt,
			Description:        description.String,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating changelog: %w", err)
	}

	logLoaded(r.Logger, applied)
	return applied, nil
}

func (r *SQLReader) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}
