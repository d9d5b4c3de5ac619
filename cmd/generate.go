package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sqldeploy/sqldeploy/internal/deploy"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate change and undo scripts",
	Long: `Scan the scripts directory, read the changelog of the target database and
write one change script and one undo script covering every script that has
not been applied yet. A listing of all discovered scripts is written as well.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}

		ec, err := deploy.NewExecutionContext(cfg, nil, log)
		if err != nil {
			return err
		}
		defer ec.Close()

		d, err := ec.Deployer()
		if err != nil {
			return err
		}

		res, err := d.Run(cmd.Context())
		if err != nil {
			log.Error().Err(err).Msg("Generation failed")
			return err
		}

		switch {
		case res.Discovered == 0:
			log.Info().Str("dir", cfg.ScriptsDir).Msg("No change scripts found")
		case !res.ScriptsWritten:
			log.Info().Msg("Database is up to date, no pending changes")
		default:
			log.Info().
				Int("count", len(res.Pending)).
				Str("output", cfg.OutputFile).
				Str("undo", cfg.UndoOutputFile).
				Msg("Change scripts generated")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().String("last-change", "", "highest change number to include (default: all)")
	generateCmd.Flags().String("output", "", "change script path (default: ./output/change.sql)")
	generateCmd.Flags().String("undo-output", "", "undo script path (default: ./output/undo.sql)")
	generateCmd.Flags().String("listing", "", "script listing path (default: ./output/scripts.txt)")

	_ = viper.BindPFlag("last_change_to_apply", generateCmd.Flags().Lookup("last-change"))
	_ = viper.BindPFlag("output_file", generateCmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("undo_output_file", generateCmd.Flags().Lookup("undo-output"))
	_ = viper.BindPFlag("listing_file", generateCmd.Flags().Lookup("listing"))
}
