package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taintgraph/engine/analytics"
	"github.com/taintgraph/engine/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init <name>",
	Short: "Create a new project directory with a default configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		cfg, err := config.Init(name, name)
		if err != nil {
			analytics.ReportEventWithProperties(analytics.ProjectInitialized, map[string]interface{}{
				"error": true,
			})
			return err
		}

		analytics.ReportEvent(analytics.ProjectInitialized)
		fmt.Printf("Created project %q (config: %s, DB: %s, web-framework: %s)\n",
			cfg.Name, config.Path(name), cfg.DB, cfg.WebFramework)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
