package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/taintgraph/engine/model"
)

// JSONFormatter formats confirmed taint flows as JSON.
type JSONFormatter struct {
	writer io.Writer
}

// NewJSONFormatter creates a JSON formatter writing to stdout.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{writer: os.Stdout}
}

// NewJSONFormatterWithWriter creates a formatter with a custom writer (for
// testing).
func NewJSONFormatterWithWriter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: w}
}

// JSONOutput is the complete JSON output structure.
type JSONOutput struct {
	Tool    JSONTool     `json:"tool"`
	Scan    JSONScan     `json:"scan"`
	Results []JSONResult `json:"results"`
	Summary JSONSummary  `json:"summary"`
	Errors  []string     `json:"errors,omitempty"`
}

// JSONTool contains tool metadata.
type JSONTool struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// JSONScan contains scan metadata.
type JSONScan struct {
	Target    string  `json:"target"`
	Timestamp string  `json:"timestamp"`
	Duration  float64 `json:"duration"`
}

// JSONResult represents a single confirmed taint flow.
type JSONResult struct {
	Kind   string        `json:"kind"`
	Source JSONTaintNode `json:"source"`
	Sink   JSONTaintNode `json:"sink"`
}

// JSONTaintNode names a flow endpoint's location.
type JSONTaintNode struct {
	File     string `json:"file"`
	Line     uint32 `json:"line"`
	SharedID string `json:"shared_id"`
}

// JSONSummary contains aggregated statistics.
type JSONSummary struct {
	Total   int            `json:"total"`
	ByKind  map[string]int `json:"by_kind"`
}

// ScanInfo contains metadata about the run, filled in by the run-static command.
type ScanInfo struct {
	Target   string
	Version  string
	Duration time.Duration
	Errors   []string
}

// Format writes every taint flow as a single JSON document.
func (f *JSONFormatter) Format(flows []model.TaintFlow, scanInfo ScanInfo) error {
	output := f.buildOutput(flows, scanInfo)
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func (f *JSONFormatter) buildOutput(flows []model.TaintFlow, scanInfo ScanInfo) JSONOutput {
	version := scanInfo.Version
	if version == "" {
		version = "unknown"
	}

	byKind := make(map[string]int)
	results := make([]JSONResult, 0, len(flows))
	for _, flow := range flows {
		byKind[string(flow.Kind)]++
		results = append(results, JSONResult{
			Kind: string(flow.Kind),
			Source: JSONTaintNode{
				File: flow.SourceFile, Line: flow.SourceLine, SharedID: string(flow.SourceSharedID),
			},
			Sink: JSONTaintNode{
				File: flow.SinkFile, Line: flow.SinkLine, SharedID: string(flow.SinkSharedID),
			},
		})
	}

	return JSONOutput{
		Tool: JSONTool{Name: "taintgraph", Version: version},
		Scan: JSONScan{
			Target:    scanInfo.Target,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Duration:  scanInfo.Duration.Seconds(),
		},
		Results: results,
		Summary: JSONSummary{Total: len(flows), ByKind: byKind},
		Errors:  scanInfo.Errors,
	}
}
