package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/artigraph/backend/internal/app"
	"github.com/artigraph/backend/pkg/graph"
	"github.com/artigraph/backend/pkg/loader"

	"github.com/spf13/cobra"
)

var cfg app.Config

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "artigraph",
	Short:         "Turn code artifacts into a knowledge graph",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = app.LoadConfig()
		app.InitLogger(cfg, "cli")
	},
}

// exitCode maps bad input to 2 and every other failure to 1.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, graph.ErrInvalidInput),
		errors.Is(err, loader.ErrNotText),
		errors.Is(err, loader.ErrTooLarge):
		return 2
	default:
		return 1
	}
}

func main() {
	rootCmd.AddCommand(newProcessCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}
