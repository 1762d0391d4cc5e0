// Package cli provides the ksef-desk command line: the serve command that
// runs the local control plane plus a few maintenance commands.
package cli

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/ksef-desk/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Global flags.
var (
	configDir string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "ksef-desk",
	Short: "Search and download KSeF invoices from the browser",
	Long: `ksef-desk runs a small local web application for searching the Polish
National e-Invoice System (KSeF) and downloading invoices as XML, JSON or PDF.

Running ksef-desk without a command starts the server and opens the page in
the default browser. Profiles, mirrors and the PDF converter are configured
in ~/.ksef-desk/config.toml.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.ksef-desk)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	addServeFlags(rootCmd)
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// isTerminal reports whether stdout is an interactive terminal.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
