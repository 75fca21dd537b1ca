// Command admin is the operator CLI: list and close complaints, issue API
// tokens and maintain the record store.
package main

import (
	"complaintbot/backend/internal/models"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "admin",
		Short: "Operator tools for the complaint bot",
		Long: `admin works directly on the configured record store (.env / environment).
With the file store, list and show read a snapshot and work while the bot runs.
resolve, reject and compact need the store lock and fail while the bot holds it;
use the HTTP API for status changes on a running bot.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(statusCmd("resolve", "Mark a complaint as resolved and notify the reporter", models.StatusResolved))
	rootCmd.AddCommand(statusCmd("reject", "Reject a complaint and notify the reporter", models.StatusRejected))
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(compactCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
