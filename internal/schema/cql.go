package schema

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/sqldeploy/sqldeploy/internal/config"
	"github.com/sqldeploy/sqldeploy/internal/driver"
	"github.com/sqldeploy/sqldeploy/internal/resource"
	"github.com/sqldeploy/sqldeploy/internal/token"
)

// CQLReader reads the changelog from Scylla or Cassandra. Change numbers are
// stored as text so fractional ids survive unchanged.
type CQLReader struct {
	cfg     config.ScyllaConfig
	session *driver.Session
	queries queries
	ensure  bool
	Logger  zerolog.Logger
}

func NewCQLReader(cfg config.ScyllaConfig, resources Resources, replacer *token.Replacer, ensure bool, logger zerolog.Logger) *CQLReader {
	return &CQLReader{
		cfg:     cfg,
		queries: queries{resources: resources, replacer: replacer},
		ensure:  ensure,
		Logger:  logger,
	}
}

func (r *CQLReader) GetAppliedChanges(ctx context.Context) (AppliedChanges, error) {
	if r.session == nil {
		session, err := driver.NewSession(r.cfg, r.Logger)
		if err != nil {
			return nil, err
		}
		r.session = session
	}

	if r.ensure {
		ddl, err := r.queries.render(resource.EnsureChangeLogExists)
		if err != nil {
			return nil, err
		}
		if err := r.session.Execute(ddl); err != nil {
			return nil, fmt.Errorf("failed to create changelog table: %w", err)
		}
	}

	query, err := r.queries.render(resource.GetChangeLog)
	if err != nil {
		return nil, err
	}

	iter := r.session.Query(query).WithContext(ctx).Iter()
	applied := make(AppliedChanges)

	var (
		number, appliedBy, description string
		completed                      time.Time
	)
	for iter.Scan(&number, &appliedBy, &completed, &description) {
		id, err := decimal.NewFromString(number)
		if err != nil {
			_ = iter.Close()
			return nil, fmt.Errorf("changelog holds non-numeric change number %q: %w", number, err)
		}
		applied.add(ChangeLogEntry{
			ChangeNumber:       id,
			AppliedBy:          appliedBy,
			ApplicationEndDate: completed,
			Description:        description,
		})
	}

	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to query changelog: %w", err)
	}

	logLoaded(r.Logger, applied)
	return applied, nil
}

func (r *CQLReader) Close() error {
	if r.session != nil {
		r.session.Close()
		r.session = nil
	}
	return nil
}
