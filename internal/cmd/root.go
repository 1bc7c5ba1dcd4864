package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dixis",
	Short: "Dixis marketplace API",
	Long: `Dixis connects Greek food producers with consumers. This binary serves
the cart, shipping-quote, checkout and order-lifecycle REST API, and runs
database migrations.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
