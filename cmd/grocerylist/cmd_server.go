package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/grocerylist/app/routes"
	"github.com/shashiranjanraj/grocerylist/internal/server"
	"github.com/shashiranjanraj/grocerylist/pkg/router"
)

// grocerylist serve
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Aliases: []string{"run", "start"},
		Short:   "Start the HTTP server (and gRPC health port when GRPC_PORT is set)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return server.Start(cmd.Context())
		},
	}
}

// grocerylist route:list
func routeListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "route:list",
		Aliases: []string{"routes"},
		Short:   "List all registered named routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := router.New()
			routes.Register(r, routes.Web{})

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "METHOD\tPATH\tNAME")
			fmt.Fprintln(w, "------\t----\t----")
			for _, ri := range r.Routes() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", strings.Join(ri.Methods, "|"), ri.Path, ri.Name)
			}
			return w.Flush()
		},
	}
}
