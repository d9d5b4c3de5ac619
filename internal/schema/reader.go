package schema

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sqldeploy/sqldeploy/internal/config"
	"github.com/sqldeploy/sqldeploy/internal/driver"
	"github.com/sqldeploy/sqldeploy/internal/token"
)

// NewReader returns the changelog reader for the configured DBMS. No
// connection is made until GetAppliedChanges is called.
func NewReader(cfg *config.Config, resources Resources, replacer *token.Replacer, logger zerolog.Logger) (Reader, error) {
	dbms, err := config.ParseDBMS(cfg.DBMS)
	if err != nil {
		return nil, err
	}

	logger = logger.With().Str("dbms", string(dbms)).Logger()

	switch dbms {
	case config.Scylla:
		return NewCQLReader(cfg.Scylla, resources, replacer, cfg.EnsureChangeLog, logger), nil
	case config.SQLServer, config.Oracle, config.MySQL, config.Postgres, config.SQLite:
		open := func(ctx context.Context) (*sql.DB, error) {
			return driver.OpenSQL(ctx, dbms, cfg.ConnectionString, cfg.ConnectionTimeout, logger)
		}
		return NewSQLReader(open, resources, replacer, cfg.EnsureChangeLog, logger), nil
	default:
		return nil, fmt.Errorf("no changelog reader for dbms %s", dbms)
	}
}
