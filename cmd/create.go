package cmd

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sqldeploy/sqldeploy/internal/deploy"
	"github.com/sqldeploy/sqldeploy/internal/migration"
	"github.com/sqldeploy/sqldeploy/internal/resource"
)

var createCmd = &cobra.Command{
	Use:   "create <description>",
	Short: "Create a new change script",
	Long:  "Create an empty change script named with the next free change number.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}

		description := sanitizeDescription(args[0])
		withUndo, _ := cmd.Flags().GetBool("with-undo")
		width, _ := cmd.Flags().GetInt("width")

		ec, err := deploy.NewExecutionContext(cfg, nil, log)
		if err != nil {
			return err
		}
		defer ec.Close()

		if err := ec.Files.Fs().MkdirAll(cfg.ScriptsDir, 0755); err != nil {
			return fmt.Errorf("failed to create scripts directory: %w", err)
		}

		scripts, err := ec.Repository.Scan()
		if err != nil {
			return fmt.Errorf("failed to determine next change number: %w", err)
		}

		id := migration.NextID(scripts)
		filename := scriptFileName(id.IntPart(), width, description)
		path := filepath.Join(cfg.ScriptsDir, filename)
		if ec.Files.Exists(path) {
			return fmt.Errorf("file %s already exists", path)
		}

		var b strings.Builder
		fmt.Fprintf(&b, "-- Change %s: %s\n", id, description)
		fmt.Fprintf(&b, "-- Created: %s\n\n", time.Now().Format("2006-01-02 15:04:05"))

		if withUndo {
			token, err := ec.Resources.GetScriptFromFile(resource.UndoToken)
			if err != nil {
				return err
			}
			b.WriteString("\n")
			b.WriteString(strings.TrimSpace(token))
			b.WriteString("\n-- Statements reversing this change\n\n")
		}

		if err := ec.Files.WriteFile(path, b.String()); err != nil {
			return fmt.Errorf("failed to create file: %w", err)
		}

		log.Info().Str("file", path).Str("id", id.String()).Msg("Created change script")
		return nil
	},
}

func scriptFileName(id int64, width int, description string) string {
	number := fmt.Sprintf("%0*d", width, id)
	if description == "" {
		return number + ".sql"
	}
	return number + " " + description + ".sql"
}

// sanitizeDescription keeps a description usable as part of a file name.
func sanitizeDescription(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func init() {
	rootCmd.AddCommand(createCmd)
	createCmd.Flags().Bool("with-undo", false, "add an undo section to the new script")
	createCmd.Flags().Int("width", 4, "zero-pad the change number to this many digits")
}
