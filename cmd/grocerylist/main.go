// Command grocerylist serves the grocery list web app and manages its
// database.
//
//	grocerylist migrate
//	grocerylist seed
//	grocerylist serve
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	// Import migrations so their init() funcs register them.
	_ "github.com/shashiranjanraj/grocerylist/database/migrations"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "grocerylist",
		Short:         "Per-user grocery list web app",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Server
	root.AddCommand(serveCmd(), routeListCmd())

	// Database
	root.AddCommand(migrateCmd(), migrateRollbackCmd(), migrateStatusCmd(), seedCmd())

	// Users
	root.AddCommand(userCreateCmd(), tokenIssueCmd())
	return root
}
