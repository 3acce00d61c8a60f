package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/taintgraph/engine/analytics"
	"github.com/taintgraph/engine/internal/config"
	"github.com/taintgraph/engine/internal/store"
	"github.com/taintgraph/engine/output"
)

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Serve the computed store contents as read-only JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		projectDir, _ := cmd.Flags().GetString("project")
		if projectDir == "" {
			return fmt.Errorf("--project flag is required")
		}
		addr, _ := cmd.Flags().GetString("addr")

		cfg, err := config.Load(projectDir)
		if err != nil {
			return fmt.Errorf("loading project config: %w", err)
		}
		st, err := store.Open(cfg.DB)
		if err != nil {
			return fmt.Errorf("opening document store: %w", err)
		}
		defer st.Close()

		logger := output.NewLogger(output.VerbosityDefault)

		mux := http.NewServeMux()
		mux.HandleFunc("/taint-flows", func(w http.ResponseWriter, r *http.Request) {
			flows, err := st.GetTaintFlows()
			writeJSON(w, flows, err)
		})
		mux.HandleFunc("/call-graph", func(w http.ResponseWriter, r *http.Request) {
			graph, err := st.GetCallGraph()
			writeJSON(w, graph, err)
		})

		analytics.ReportEvent(analytics.WebServerStarted)
		logger.Progress("Serving store contents on %s", addr)
		defer analytics.ReportEvent(analytics.WebServerStopped)
		return http.ListenAndServe(addr, mux)
	},
}

func writeJSON(w http.ResponseWriter, v interface{}, err error) {
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.Encode(v)
}

func init() {
	rootCmd.AddCommand(webCmd)
	webCmd.Flags().StringP("project", "p", "", "Path to the project directory created by init (required)")
	webCmd.Flags().String("addr", "127.0.0.1:8787", "Address to listen on")
	webCmd.MarkFlagRequired("project")
}
