package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sqldeploy/sqldeploy/internal/deploy"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"status"},
	Short:   "List change scripts and their status",
	Long:    "Display every discovered change script in application order with its status (applied or pending).",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		offline, _ := cmd.Flags().GetBool("offline")

		ec, err := deploy.NewExecutionContext(cfg, nil, log)
		if err != nil {
			return err
		}
		defer ec.Close()

		ceiling, err := cfg.Ceiling()
		if err != nil {
			return err
		}

		var ledger deploy.Ledger
		if !offline {
			ledger = ec.Ledger
		}

		statuses, err := deploy.Status(cmd.Context(), ec.Repository, ledger, ceiling)
		if err != nil {
			return err
		}

		type listEntry struct {
			ChangeNumber string `json:"change_number"`
			Description  string `json:"description"`
			File         string `json:"file"`
			Status       string `json:"status"`
			AppliedBy    string `json:"applied_by"`
			AppliedAt    string `json:"applied_at"`
			Checksum     string `json:"checksum"`
		}

		var entries []listEntry
		appliedCount := 0
		pendingCount := 0

		for _, st := range statuses {
			entry := listEntry{
				ChangeNumber: st.Script.ID.String(),
				Description:  st.Script.Description,
				File:         st.Script.FileName,
				Checksum:     st.Script.Checksum,
				AppliedBy:    "-",
				AppliedAt:    "-",
			}

			switch {
			case st.Applied:
				entry.Status = "Applied"
				entry.AppliedBy = st.Entry.AppliedBy
				if !st.Entry.ApplicationEndDate.IsZero() {
					entry.AppliedAt = st.Entry.ApplicationEndDate.Format("2006-01-02 15:04:05")
				}
				appliedCount++
			case offline:
				entry.Status = "Unknown"
			case st.Pending:
				entry.Status = "Pending"
				pendingCount++
			default:
				entry.Status = "Held back"
			}

			entries = append(entries, entry)
		}

		if format == "json" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CHANGE\tDESCRIPTION\tSTATUS\tAPPLIED BY\tAPPLIED AT\tCHECKSUM")
		fmt.Fprintln(w, "------\t-----------\t------\t----------\t----------\t--------")

		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				e.ChangeNumber, e.Description, e.Status, e.AppliedBy, e.AppliedAt, shortChecksum(e.Checksum))
		}
		w.Flush()

		fmt.Printf("\nTotal: %d | Applied: %d | Pending: %d\n",
			len(entries), appliedCount, pendingCount)

		return nil
	},
}

func shortChecksum(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().String("format", "table", "output format (table, json)")
	listCmd.Flags().Bool("offline", false, "do not read the changelog from the database")
}
