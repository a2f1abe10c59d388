/**
 * @description
 * Entry point for the fundraising service. The binary exposes three commands:
 * `serve` runs the HTTP API and the pending-charge scheduler, `migrate` applies
 * the embedded database migrations and `seed-war` creates a demo project where
 * stop donations outweigh help donations.
 *
 * @dependencies
 * - github.com/spf13/cobra: command tree.
 * - github.com/joho/godotenv: loads .env files during local development.
 */

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "vaquinha",
		Short:         "Crowdfunding ledger with help and stop donations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedWarCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
