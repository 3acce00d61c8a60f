package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/taintgraph/engine/analytics"
	"github.com/taintgraph/engine/internal/config"
	"github.com/taintgraph/engine/internal/store"
	"github.com/taintgraph/engine/output"
	"github.com/taintgraph/engine/pipeline"
)

var validStages = map[string]bool{
	"all": true, "classes": true, "ast": true, "cfg": true,
	"dfg": true, "taint": true, "callgraph": true,
}

var runStaticCmd = &cobra.Command{
	Use:   "run-static {all|classes|ast|cfg|dfg|taint|callgraph}",
	Short: "Run the analysis pipeline and report the requested stage's output",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stage := args[0]
		if !validStages[stage] {
			return fmt.Errorf("unknown stage %q, must be one of all|classes|ast|cfg|dfg|taint|callgraph", stage)
		}

		projectDir, _ := cmd.Flags().GetString("project")
		if projectDir == "" {
			return fmt.Errorf("--project flag is required")
		}
		outputFormat, _ := cmd.Flags().GetString("output")
		outputFile, _ := cmd.Flags().GetString("output-file")
		failOnStr, _ := cmd.Flags().GetString("fail-on")
		verbose, _ := cmd.Flags().GetBool("verbose")
		debug, _ := cmd.Flags().GetBool("debug")

		verbosity := output.VerbosityDefault
		if debug {
			verbosity = output.VerbosityDebug
		} else if verbose {
			verbosity = output.VerbosityVerbose
		}
		logger := output.NewLogger(verbosity)

		noBanner, _ := cmd.Flags().GetBool("no-banner")
		if output.ShouldShowBanner(logger.IsTTY(), noBanner) {
			output.PrintBanner(logger.GetWriter(), Version, output.DefaultBannerOptions())
		}

		failOn := output.ParseFailOn(failOnStr)
		if err := output.ValidateVulnerabilityKinds(failOn); err != nil {
			return err
		}

		cfg, err := config.Load(projectDir)
		if err != nil {
			return fmt.Errorf("loading project config: %w", err)
		}

		st, err := store.Open(cfg.DB)
		if err != nil {
			return fmt.Errorf("opening document store: %w", err)
		}
		defer st.Close()

		analytics.ReportEventWithProperties(analytics.RunStaticStarted, map[string]interface{}{
			"stage":         stage,
			"output_format": outputFormat,
		})

		startTime := time.Now()
		p := pipeline.New(cfg, st, logger)
		result, err := p.Run(context.Background(), cfg.TargetDir)
		hadErrors := len(result.Errors) > 0
		if err != nil {
			analytics.ReportEventWithProperties(analytics.RunStaticFailed, map[string]interface{}{"stage": stage})
			return fmt.Errorf("running pipeline: %w", err)
		}

		var outputWriter *os.File
		if outputFile != "" {
			outputWriter, err = os.Create(outputFile)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer outputWriter.Close()
		}

		if err := reportStage(stage, result, outputFormat, outputWriter, projectDir, time.Since(startTime)); err != nil {
			return err
		}

		exitCode := output.DetermineExitCode(result.Flows, failOn, hadErrors)
		analytics.ReportEventWithProperties(analytics.RunStaticCompleted, map[string]interface{}{
			"stage":          stage,
			"flows_found":    len(result.Flows),
			"duration_ms":    time.Since(startTime).Milliseconds(),
			"exit_code":      int(exitCode),
			"had_errors":     hadErrors,
		})

		if exitCode != output.ExitCodeSuccess {
			os.Exit(int(exitCode))
		}
		return nil
	},
}

// reportStage writes the requested stage's output in the requested
// format. "taint" (and "all") use the three taint-flow formatters; every
// other stage is a raw JSON dump of its graphs, since text/SARIF reports
// are only meaningful for confirmed flows.
func reportStage(stage string, result *pipeline.Result, outputFormat string, w *os.File, target string, duration time.Duration) error {
	writer := io.Writer(os.Stdout)
	if w != nil {
		writer = w
	}

	if stage == "taint" || stage == "all" {
		switch outputFormat {
		case "", "text":
			return output.NewTextFormatterWithWriter(writer).Format(result.Flows)
		case "json":
			errs := make([]string, 0, len(result.Errors))
			for _, e := range result.Errors {
				errs = append(errs, e.Error())
			}
			scanInfo := output.ScanInfo{Target: target, Version: Version, Duration: duration, Errors: errs}
			return output.NewJSONFormatterWithWriter(writer).Format(result.Flows, scanInfo)
		case "sarif":
			return output.NewSARIFFormatterWithWriter(writer).Format(result.Flows)
		default:
			return fmt.Errorf("--output must be 'text', 'json', or 'sarif'")
		}
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	switch stage {
	case "classes":
		return encoder.Encode(result.Classes)
	case "ast":
		return encoder.Encode(result.ASTs)
	case "cfg":
		return encoder.Encode(result.CFGs)
	case "dfg":
		return encoder.Encode(result.DFGs)
	case "callgraph":
		return encoder.Encode(result.CallGraph)
	default:
		return fmt.Errorf("unhandled stage %q", stage)
	}
}

func init() {
	rootCmd.AddCommand(runStaticCmd)
	runStaticCmd.Flags().StringP("project", "p", "", "Path to the project directory created by init (required)")
	runStaticCmd.Flags().StringP("output", "o", "text", "Output format for the taint stage: text, json, or sarif")
	runStaticCmd.Flags().StringP("output-file", "f", "", "Write output to file instead of stdout")
	runStaticCmd.Flags().BoolP("verbose", "v", false, "Show statistics and timing information")
	runStaticCmd.Flags().Bool("debug", false, "Show detailed debug diagnostics")
	runStaticCmd.Flags().String("fail-on", "", "Fail with exit code 1 if flows match vulnerability kinds (e.g. SQLInjection,XSS)")
	runStaticCmd.MarkFlagRequired("project")
}
