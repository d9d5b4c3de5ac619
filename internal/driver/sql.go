package driver

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"  // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib"  // PostgreSQL driver
	_ "github.com/microsoft/go-mssqldb" // SQL Server driver
	"github.com/rs/zerolog"
	_ "github.com/sijms/go-ora/v2" // Oracle driver
	_ "modernc.org/sqlite"         // SQLite driver

	"github.com/sqldeploy/sqldeploy/internal/config"
)

// DriverName returns the database/sql driver registered for dbms, or an
// error for DBMS flavours that are not reached through database/sql.
func DriverName(dbms config.DBMS) (string, error) {
	switch dbms {
	case config.SQLServer:
		return "sqlserver", nil
	case config.Oracle:
		return "oracle", nil
	case config.MySQL:
		return "mysql", nil
	case config.Postgres:
		return "pgx", nil
	case config.SQLite:
		return "sqlite", nil
	default:
		return "", fmt.Errorf("dbms %s has no database/sql driver", dbms)
	}
}

// OpenSQL opens and pings a database/sql handle for dbms.
func OpenSQL(ctx context.Context, dbms config.DBMS, dsn string, timeout time.Duration, logger zerolog.Logger) (*sql.DB, error) {
	name, err := DriverName(dbms)
	if err != nil {
		return nil, err
	}
	if dsn == "" {
		return nil, fmt.Errorf("connection_string must be specified for dbms %s", dbms)
	}

	logger.Debug().
		Str("dbms", string(dbms)).
		Str("driver", name).
		Msg("Opening database connection")

	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", dbms, err)
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", dbms, err)
	}

	logger.Info().Str("dbms", string(dbms)).Msg("Connected to database")
	return db, nil
}
