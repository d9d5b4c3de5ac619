package cmd

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/sqldeploy/sqldeploy/internal/config"
	"github.com/sqldeploy/sqldeploy/internal/deploy"
	"github.com/sqldeploy/sqldeploy/internal/resource"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show configuration and template info",
	Long:  "Display the configuration summary, the template each logical name resolves to and the current change number.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}

		offline, _ := cmd.Flags().GetBool("offline")

		ec, err := deploy.NewExecutionContext(cfg, nil, log)
		if err != nil {
			return err
		}
		defer ec.Close()

		current := "unknown"
		if !offline {
			applied, err := ec.Ledger.GetAppliedChanges(cmd.Context())
			if err != nil {
				log.Warn().Err(err).Msg("Failed to read changelog")
			} else if len(applied) == 0 {
				current = "none"
			} else {
				latest := decimal.Zero
				for _, entry := range applied {
					if entry.ChangeNumber.GreaterThan(latest) {
						latest = entry.ChangeNumber
					}
				}
				current = latest.String()
			}
		}

		ceiling := cfg.LastChangeToApply
		if ceiling == "" {
			ceiling = "all"
		}

		fmt.Printf("sqldeploy %s\n\n", version)

		fmt.Println("Target:")
		fmt.Printf("  DBMS:           %s\n", cfg.Target())
		fmt.Printf("  Changelog:      %s.%s\n", cfg.SchemaName, cfg.ChangeLogTable)
		fmt.Printf("  Current:        %s\n", current)
		if cfg.Target() == config.Scylla {
			fmt.Printf("  Hosts:          %v\n", cfg.Scylla.Hosts)
			fmt.Printf("  Consistency:    %s\n", cfg.Scylla.Consistency)
		}

		fmt.Println("\nScripts:")
		fmt.Printf("  Directory:      %s\n", cfg.ScriptsDir)
		fmt.Printf("  Pattern:        %s (recursive: %v)\n", cfg.SearchPattern, cfg.Recursive)
		fmt.Printf("  File names:     %s\n", cfg.FilenamePattern)
		fmt.Printf("  Last change:    %s\n", ceiling)

		fmt.Println("\nOutputs:")
		fmt.Printf("  Change script:  %s\n", cfg.OutputFile)
		fmt.Printf("  Undo script:    %s\n", cfg.UndoOutputFile)
		fmt.Printf("  Listing:        %s\n", cfg.ListingFile)

		fmt.Println("\nTemplates:")
		for _, name := range resource.Names {
			source, err := ec.Resources.Source(name)
			if err != nil {
				source = "missing"
			}
			fmt.Printf("  %-22s %s\n", name, source)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().Bool("offline", false, "do not read the changelog from the database")
}
