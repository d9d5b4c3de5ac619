package sqldeploy

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/sqldeploy/sqldeploy/internal/config"
)

type options struct {
	cfg    *config.Config
	logger *zerolog.Logger
	fs     afero.Fs
}

type Option func(*options)

// WithDBMS selects the target database: sqlserver, oracle, mysql, postgres,
// sqlite or scylla.
func WithDBMS(dbms string) Option {
	return func(o *options) {
		o.cfg.DBMS = dbms
	}
}

func WithConnectionString(dsn string) Option {
	return func(o *options) {
		o.cfg.ConnectionString = dsn
	}
}

func WithScriptsDir(dir string) Option {
	return func(o *options) {
		o.cfg.ScriptsDir = dir
	}
}

func WithSearchPattern(pattern string, recursive bool) Option {
	return func(o *options) {
		o.cfg.SearchPattern = pattern
		o.cfg.Recursive = recursive
	}
}

func WithFilenamePattern(pattern string) Option {
	return func(o *options) {
		o.cfg.FilenamePattern = pattern
	}
}

// WithLastChangeToApply caps generation at the given change number.
func WithLastChangeToApply(id string) Option {
	return func(o *options) {
		o.cfg.LastChangeToApply = id
	}
}

func WithOutputs(changeFile, undoFile, listingFile string) Option {
	return func(o *options) {
		o.cfg.OutputFile = changeFile
		o.cfg.UndoOutputFile = undoFile
		o.cfg.ListingFile = listingFile
	}
}

func WithChangeLog(schema, table string) Option {
	return func(o *options) {
		o.cfg.SchemaName = schema
		o.cfg.ChangeLogTable = table
	}
}

func WithEnsureChangeLog(ensure bool) Option {
	return func(o *options) {
		o.cfg.EnsureChangeLog = ensure
	}
}

func WithTemplatesDir(dir string) Option {
	return func(o *options) {
		o.cfg.TemplatesDir = dir
	}
}

func WithConnectionTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.cfg.ConnectionTimeout = timeout
	}
}

func WithScyllaHosts(hosts ...string) Option {
	return func(o *options) {
		o.cfg.Scylla.Hosts = hosts
	}
}

func WithScyllaAuth(username, password string) Option {
	return func(o *options) {
		o.cfg.Scylla.Username = username
		o.cfg.Scylla.Password = password
	}
}

func WithScyllaConsistency(level string) Option {
	return func(o *options) {
		o.cfg.Scylla.Consistency = level
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &logger
	}
}

// WithFs reads scripts and templates from, and writes outputs to, fs instead
// of the operating system filesystem.
func WithFs(fs afero.Fs) Option {
	return func(o *options) {
		o.fs = fs
	}
}
