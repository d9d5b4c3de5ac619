package deploy

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqldeploy/sqldeploy/internal/config"
	"github.com/sqldeploy/sqldeploy/internal/schema"
)

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.DBMS = string(config.SQLite)
	cfg.ConnectionString = filepath.Join(dir, "target.db")
	cfg.ScriptsDir = filepath.Join(dir, "scripts")
	cfg.OutputFile = filepath.Join(dir, "out", "change.sql")
	cfg.UndoOutputFile = filepath.Join(dir, "out", "undo.sql")
	cfg.ListingFile = filepath.Join(dir, "out", "scripts.txt")
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())

	require.NoError(t, os.MkdirAll(cfg.ScriptsDir, 0755))
	return cfg
}

func writeScript(t *testing.T, cfg *config.Config, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(cfg.ScriptsDir, name), []byte(body), 0644))
}

func TestExecutionContext_SQLiteEndToEnd(t *testing.T) {
	cfg := sqliteConfig(t)
	writeScript(t, cfg, "1 Create users.sql", "CREATE TABLE users (id INTEGER);\r\n--//@UNDO\r\nDROP TABLE users;\r\n")
	writeScript(t, cfg, "2 Create orders.sql", "CREATE TABLE orders (id INTEGER);\n")

	ec, err := NewExecutionContext(cfg, nil, zerolog.Nop())
	require.NoError(t, err)
	defer ec.Close()

	d, err := ec.Deployer()
	require.NoError(t, err)

	res, err := d.Run(context.Background())
	require.NoError(t, err)
	require.True(t, res.ScriptsWritten)
	assert.Len(t, res.Pending, 2)

	change, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	assert.Contains(t, string(change), "INSERT INTO main.ChangeLog")
	assert.NotContains(t, string(change), "\r")

	undo, err := os.ReadFile(cfg.UndoOutputFile)
	require.NoError(t, err)
	assert.Contains(t, string(undo), "DROP TABLE users;")
	assert.Contains(t, string(undo), "DELETE FROM main.ChangeLog WHERE change_number = 1;")

	// record change 1 as applied and generate again
	db, err := sql.Open("sqlite", cfg.ConnectionString)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(`INSERT INTO ChangeLog (change_number, complete_dt, applied_by, description)
		VALUES (1, '2024-01-01 00:00:00', 'ci', 'Create users')`)
	require.NoError(t, err)

	res, err = d.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Pending, 1)
	assert.Equal(t, "2", res.Pending[0].ID.String())
}

func TestExecutionContext_EmptyDirectoryNeedsNoDatabase(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.ConnectionString = filepath.Join(t.TempDir(), "missing", "nope", "target.db")

	ec, err := NewExecutionContext(cfg, nil, zerolog.Nop())
	require.NoError(t, err)
	defer ec.Close()

	d, err := ec.Deployer()
	require.NoError(t, err)

	res, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Discovered)
}

func TestExecutionContext_ScyllaLedger(t *testing.T) {
	cfg := config.Default()
	cfg.DBMS = string(config.Scylla)
	cfg.SchemaName = "deploy"

	ec, err := NewExecutionContext(cfg, nil, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &schema.CQLReader{}, ec.Ledger)
	assert.NoError(t, ec.Close())
}

func TestExecutionContext_BadPattern(t *testing.T) {
	cfg := config.Default()
	cfg.FilenamePattern = "("

	_, err := NewExecutionContext(cfg, nil, zerolog.Nop())
	assert.Error(t, err)
}
