package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sqldeploy/sqldeploy/internal/deploy"
	"github.com/sqldeploy/sqldeploy/internal/generate"
	"github.com/sqldeploy/sqldeploy/internal/resource"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate change scripts",
	Long: `Check that every script in the scripts directory has a well formed name and
a unique change number, and that all templates resolve. The database is not
contacted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}

		ec, err := deploy.NewExecutionContext(cfg, nil, log)
		if err != nil {
			return err
		}
		defer ec.Close()

		templates := make(map[resource.Name]string, len(resource.Names))
		for _, name := range resource.Names {
			text, err := ec.Resources.GetScriptFromFile(name)
			if err != nil {
				return err
			}
			templates[name] = text
		}

		scripts, err := ec.Repository.Scan()
		if err != nil {
			log.Error().Err(err).Msg("Validation failed")
			return err
		}

		delimiter := strings.TrimSpace(templates[resource.UndoToken])

		withoutUndo := 0
		for _, sf := range scripts.Sorted() {
			if _, _, ok := generate.SplitUndo(sf.Contents, delimiter); !ok {
				withoutUndo++
				log.Warn().
					Str("id", sf.ID.String()).
					Str("file", sf.FileName).
					Msg("Script has no undo section")
			}
		}

		if len(scripts) == 0 {
			log.Warn().Str("dir", cfg.ScriptsDir).Msg("No change scripts found")
			return nil
		}

		log.Info().
			Int("checked", len(scripts)).
			Int("without_undo", withoutUndo).
			Msg("All change scripts are valid")
		fmt.Printf("%d script(s) valid\n", len(scripts))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
