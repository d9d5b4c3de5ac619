package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sqldeploy/sqldeploy/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config
	log     zerolog.Logger

	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "sqldeploy",
	Short: "Change script generator for database deployments",
	Long: `sqldeploy compares the numbered change scripts in a directory with the
changelog table of a target database and writes a single change script for
everything not yet applied, plus a matching undo script.

Script file naming convention:
  <number> <description>.sql    e.g. "0001 Create users.sql", "12.5 Hotfix.sql"

Everything after the undo marker line (--//@UNDO) in a script goes to the
undo script; everything before it goes to the change script.

sqldeploy never executes the generated scripts.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./sqldeploy.yaml)")
	rootCmd.PersistentFlags().String("dbms", "", "target dbms (sqlserver, oracle, mysql, postgres, sqlite, scylla)")
	rootCmd.PersistentFlags().String("scripts-dir", "", "directory holding change scripts (default: ./scripts)")
	rootCmd.PersistentFlags().Bool("recursive", false, "search the scripts directory recursively")
	rootCmd.PersistentFlags().String("connection-string", "", "connection string used to read the changelog")
	rootCmd.PersistentFlags().String("schema", "", "schema holding the changelog table")
	rootCmd.PersistentFlags().String("templates-dir", "", "directory with template overrides")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	_ = viper.BindPFlag("dbms", rootCmd.PersistentFlags().Lookup("dbms"))
	_ = viper.BindPFlag("scripts_dir", rootCmd.PersistentFlags().Lookup("scripts-dir"))
	_ = viper.BindPFlag("recursive", rootCmd.PersistentFlags().Lookup("recursive"))
	_ = viper.BindPFlag("connection_string", rootCmd.PersistentFlags().Lookup("connection-string"))
	_ = viper.BindPFlag("schema_name", rootCmd.PersistentFlags().Lookup("schema"))
	_ = viper.BindPFlag("templates_dir", rootCmd.PersistentFlags().Lookup("templates-dir"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.SetVersionTemplate(fmt.Sprintf("sqldeploy %s (commit: %s, built: %s)\n", version, commit, date))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("sqldeploy")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.sqldeploy")
		viper.AddConfigPath("/etc/sqldeploy")
	}

	viper.SetEnvPrefix("SQLDEPLOY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func initLogger() {
	level, err := zerolog.ParseLevel(strings.ToLower(viper.GetString("log_level")))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	log = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}).Level(level).With().Timestamp().Logger()
}

func loadConfig() error {
	initLogger()

	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	return nil
}
