package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gocql/gocql"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// DefaultFilenamePattern matches leading digits, optional whitespace and an
// optional description.
const DefaultFilenamePattern = `^(\d+)\s*(.*)$`

var validIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_$]*$`)

// DBMS selects the target database flavour. It decides which templates are
// used and how the changelog is read.
type DBMS string

const (
	SQLServer DBMS = "sqlserver"
	Oracle    DBMS = "oracle"
	MySQL     DBMS = "mysql"
	Postgres  DBMS = "postgres"
	SQLite    DBMS = "sqlite"
	Scylla    DBMS = "scylla"
)

// AllDBMS lists every supported DBMS in display order.
var AllDBMS = []DBMS{SQLServer, Oracle, MySQL, Postgres, SQLite, Scylla}

func ParseDBMS(s string) (DBMS, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sqlserver", "mssql":
		return SQLServer, nil
	case "oracle", "ora":
		return Oracle, nil
	case "mysql":
		return MySQL, nil
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "scylla", "cassandra":
		return Scylla, nil
	default:
		names := make([]string, len(AllDBMS))
		for i, d := range AllDBMS {
			names[i] = string(d)
		}
		return "", fmt.Errorf("unsupported dbms %q (must be one of: %s)", s, strings.Join(names, ", "))
	}
}

// DefaultSchema returns the schema used when schema_name is left empty, or ""
// when the DBMS has no sensible default.
func (d DBMS) DefaultSchema() string {
	switch d {
	case SQLServer:
		return "dbo"
	case Postgres:
		return "public"
	case SQLite:
		return "main"
	default:
		return ""
	}
}

type Config struct {
	DBMS              string        `mapstructure:"dbms" yaml:"dbms"`
	ConnectionString  string        `mapstructure:"connection_string" yaml:"connection_string"`
	ScriptsDir        string        `mapstructure:"scripts_dir" yaml:"scripts_dir"`
	SearchPattern     string        `mapstructure:"search_pattern" yaml:"search_pattern"`
	Recursive         bool          `mapstructure:"recursive" yaml:"recursive"`
	FilenamePattern   string        `mapstructure:"filename_pattern" yaml:"filename_pattern"`
	LastChangeToApply string        `mapstructure:"last_change_to_apply" yaml:"last_change_to_apply"`
	OutputFile        string        `mapstructure:"output_file" yaml:"output_file"`
	UndoOutputFile    string        `mapstructure:"undo_output_file" yaml:"undo_output_file"`
	ListingFile       string        `mapstructure:"listing_file" yaml:"listing_file"`
	SchemaName        string        `mapstructure:"schema_name" yaml:"schema_name"`
	ChangeLogTable    string        `mapstructure:"changelog_table" yaml:"changelog_table"`
	TemplatesDir      string        `mapstructure:"templates_dir" yaml:"templates_dir"`
	EnsureChangeLog   bool          `mapstructure:"ensure_changelog" yaml:"ensure_changelog"`
	ConnectionTimeout time.Duration `mapstructure:"connection_timeout" yaml:"connection_timeout"`
	Scylla            ScyllaConfig  `mapstructure:"scylla" yaml:"scylla"`
}

// ScyllaConfig holds the cluster settings used when dbms is scylla.
type ScyllaConfig struct {
	Hosts             []string      `mapstructure:"hosts" yaml:"hosts"`
	Username          string        `mapstructure:"username" yaml:"username"`
	Password          string        `mapstructure:"password" yaml:"password"`
	Consistency       string        `mapstructure:"consistency" yaml:"consistency"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
	ConnectionTimeout time.Duration `mapstructure:"connection_timeout" yaml:"connection_timeout"`
	ProtocolVersion   int           `mapstructure:"protocol_version" yaml:"protocol_version"`
}

// Default returns a Config populated with the built-in defaults.
func Default() *Config {
	return &Config{
		DBMS:              string(SQLServer),
		ScriptsDir:        "./scripts",
		SearchPattern:     "*.sql",
		FilenamePattern:   DefaultFilenamePattern,
		OutputFile:        "./output/change.sql",
		UndoOutputFile:    "./output/undo.sql",
		ListingFile:       "./output/scripts.txt",
		ChangeLogTable:    "ChangeLog",
		EnsureChangeLog:   true,
		ConnectionTimeout: 30 * time.Second,
		Scylla: ScyllaConfig{
			Hosts:             []string{"localhost:9042"},
			Consistency:       "quorum",
			Timeout:           30 * time.Second,
			ConnectionTimeout: 10 * time.Second,
			ProtocolVersion:   4,
		},
	}
}

func Load() (*Config, error) {
	cfg := Default()
	registerDefaults(cfg)

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

// registerDefaults makes the built-in values win over the empty defaults of
// bound command line flags.
func registerDefaults(d *Config) {
	viper.SetDefault("dbms", d.DBMS)
	viper.SetDefault("scripts_dir", d.ScriptsDir)
	viper.SetDefault("search_pattern", d.SearchPattern)
	viper.SetDefault("filename_pattern", d.FilenamePattern)
	viper.SetDefault("output_file", d.OutputFile)
	viper.SetDefault("undo_output_file", d.UndoOutputFile)
	viper.SetDefault("listing_file", d.ListingFile)
	viper.SetDefault("changelog_table", d.ChangeLogTable)
	viper.SetDefault("ensure_changelog", d.EnsureChangeLog)
	viper.SetDefault("connection_timeout", d.ConnectionTimeout)
	viper.SetDefault("scylla.hosts", d.Scylla.Hosts)
	viper.SetDefault("scylla.consistency", d.Scylla.Consistency)
	viper.SetDefault("scylla.timeout", d.Scylla.Timeout)
	viper.SetDefault("scylla.connection_timeout", d.Scylla.ConnectionTimeout)
	viper.SetDefault("scylla.protocol_version", d.Scylla.ProtocolVersion)
}

// ApplyDefaults fills values that depend on other settings.
func (c *Config) ApplyDefaults() {
	if c.SchemaName == "" {
		if d, err := ParseDBMS(c.DBMS); err == nil {
			c.SchemaName = d.DefaultSchema()
		}
	}
	if c.FilenamePattern == "" {
		c.FilenamePattern = DefaultFilenamePattern
	}
	if c.SearchPattern == "" {
		c.SearchPattern = "*.sql"
	}
}

func (c *Config) Validate() error {
	dbms, err := ParseDBMS(c.DBMS)
	if err != nil {
		return err
	}

	if c.ScriptsDir == "" {
		return fmt.Errorf("scripts_dir must be specified")
	}

	if c.SearchPattern == "" {
		return fmt.Errorf("search_pattern must be specified")
	}
	if !doublestar.ValidatePattern(c.SearchPattern) {
		return fmt.Errorf("search_pattern %q is not a valid glob", c.SearchPattern)
	}

	if _, err := regexp.Compile(c.FilenamePattern); err != nil {
		return fmt.Errorf("filename_pattern %q does not compile: %w", c.FilenamePattern, err)
	}

	if _, err := c.Ceiling(); err != nil {
		return err
	}

	if c.OutputFile == "" || c.UndoOutputFile == "" || c.ListingFile == "" {
		return fmt.Errorf("output_file, undo_output_file and listing_file must all be specified")
	}

	if c.SchemaName == "" {
		return fmt.Errorf("schema_name must be specified for dbms %s", dbms)
	}
	if !validIdentifier.MatchString(c.SchemaName) {
		return fmt.Errorf("schema_name %q contains invalid characters (must be alphanumeric/underscore, starting with a letter)", c.SchemaName)
	}

	if c.ChangeLogTable == "" {
		return fmt.Errorf("changelog_table must be specified")
	}
	if !validIdentifier.MatchString(c.ChangeLogTable) {
		return fmt.Errorf("changelog_table name %q contains invalid characters", c.ChangeLogTable)
	}

	if dbms == Scylla {
		return c.Scylla.validate()
	}

	return nil
}

func (s ScyllaConfig) validate() error {
	if len(s.Hosts) == 0 {
		return fmt.Errorf("at least one scylla host must be specified")
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("scylla.timeout must be positive")
	}
	if s.ProtocolVersion < 1 || s.ProtocolVersion > 5 {
		return fmt.Errorf("scylla.protocol_version must be between 1 and 5")
	}
	if _, err := s.GetConsistency(); err != nil {
		return err
	}
	return nil
}

// Target returns the parsed DBMS. Callers are expected to have run Validate.
func (c *Config) Target() DBMS {
	d, _ := ParseDBMS(c.DBMS)
	return d
}

// Ceiling parses last_change_to_apply. An empty value means no ceiling.
func (c *Config) Ceiling() (decimal.NullDecimal, error) {
	s := strings.TrimSpace(c.LastChangeToApply)
	if s == "" || strings.EqualFold(s, "max") {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("last_change_to_apply %q is not a number: %w", s, err)
	}
	return decimal.NewNullDecimal(d), nil
}

func (s ScyllaConfig) GetConsistency() (gocql.Consistency, error) {
	switch s.Consistency {
	case "any":
		return gocql.Any, nil
	case "one":
		return gocql.One, nil
	case "two":
		return gocql.Two, nil
	case "three":
		return gocql.Three, nil
	case "quorum":
		return gocql.Quorum, nil
	case "all":
		return gocql.All, nil
	case "local_quorum":
		return gocql.LocalQuorum, nil
	case "each_quorum":
		return gocql.EachQuorum, nil
	case "local_one":
		return gocql.LocalOne, nil
	default:
		return 0, fmt.Errorf("unsupported consistency level: %s", s.Consistency)
	}
}
