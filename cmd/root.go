package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/taintgraph/engine/analytics"
	"github.com/taintgraph/engine/output"
)

var (
	verboseFlag bool
	Version     = "0.1.0"
	GitCommit   = "HEAD"
)

var rootCmd = &cobra.Command{
	Use:   "taintgraph",
	Short: "Static taint-flow vulnerability detector for class-based OO sources",
	Long: `taintgraph builds per-file AST/CFG/DFG graphs, links calls across method
boundaries, and traces source-to-sink taint flows for Struts2 and
SpringMVC web applications.`,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		disableMetrics, _ := cmd.Flags().GetBool("disable-metrics") //nolint:all
		verboseFlag, _ = cmd.Flags().GetBool("verbose")             //nolint:all
		analytics.LoadEnvFile()
		analytics.Init(disableMetrics)
		analytics.SetVersion(Version)

		if cmd.Name() == "help" || (len(os.Args) == 1 || (len(os.Args) == 2 && (os.Args[1] == "--help" || os.Args[1] == "-h"))) {
			noBanner, _ := cmd.Flags().GetBool("no-banner")
			logger := output.NewLogger(output.VerbosityDefault)
			if output.ShouldShowBanner(logger.IsTTY(), noBanner) {
				output.PrintBanner(logger.GetWriter(), Version, output.DefaultBannerOptions())
			} else if logger.IsTTY() && !noBanner {
				fmt.Fprintln(os.Stderr, output.GetCompactBanner(Version))
				fmt.Fprintln(os.Stderr)
			}
		}
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().Bool("disable-metrics", false, "Disable metrics collection")
	rootCmd.PersistentFlags().Bool("verbose", false, "Verbose output")
	rootCmd.PersistentFlags().Bool("no-banner", false, "Disable startup banner")
}
