package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/taintgraph/engine/model"
)

// TextFormatter formats confirmed taint flows as human-readable text.
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter creates a text formatter writing to stdout.
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{writer: os.Stdout}
}

// NewTextFormatterWithWriter creates a formatter with a custom writer (for
// testing).
func NewTextFormatterWithWriter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

// Format writes every taint flow, grouped by vulnerability kind, followed
// by a one-line summary.
func (f *TextFormatter) Format(flows []model.TaintFlow) error {
	if len(flows) == 0 {
		fmt.Fprintln(f.writer, "taintgraph static analysis")
		fmt.Fprintln(f.writer)
		fmt.Fprintln(f.writer, "No taint flows found.")
		return nil
	}

	fmt.Fprintln(f.writer, "taintgraph static analysis")
	fmt.Fprintln(f.writer)
	fmt.Fprintln(f.writer, "Taint flows:")
	fmt.Fprintln(f.writer)

	grouped := groupByKind(flows)
	for _, kind := range []model.VulnerabilityKind{model.VulnSQLInjection, model.VulnXSS, model.VulnCommandInjection} {
		group := grouped[kind]
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(f.writer, "%s (%d):\n", kind, len(group))
		for _, flow := range group {
			f.writeFlow(flow)
		}
		fmt.Fprintln(f.writer)
	}

	f.writeSummary(flows)
	return nil
}

func (f *TextFormatter) writeFlow(flow model.TaintFlow) {
	fmt.Fprintf(f.writer, "  %s:%d -> %s:%d\n",
		flow.SourceFile, flow.SourceLine, flow.SinkFile, flow.SinkLine)
	fmt.Fprintf(f.writer, "    source %s\n", flow.SourceSharedID)
	fmt.Fprintf(f.writer, "    sink   %s\n", flow.SinkSharedID)
}

func (f *TextFormatter) writeSummary(flows []model.TaintFlow) {
	fmt.Fprintln(f.writer, "Summary:")
	grouped := groupByKind(flows)
	var parts []string
	for _, kind := range []model.VulnerabilityKind{model.VulnSQLInjection, model.VulnXSS, model.VulnCommandInjection} {
		if count := len(grouped[kind]); count > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", count, kind))
		}
	}
	fmt.Fprintf(f.writer, "  %d taint flows", len(flows))
	if len(parts) > 0 {
		fmt.Fprintf(f.writer, " (%s)", strings.Join(parts, ", "))
	}
	fmt.Fprintln(f.writer)
}

func groupByKind(flows []model.TaintFlow) map[model.VulnerabilityKind][]model.TaintFlow {
	grouped := make(map[model.VulnerabilityKind][]model.TaintFlow)
	for _, flow := range flows {
		grouped[flow.Kind] = append(grouped[flow.Kind], flow)
	}
	return grouped
}
