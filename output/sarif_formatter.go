package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	sarif "github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/taintgraph/engine/model"
)

// SARIFFormatter formats confirmed taint flows as SARIF 2.1.0.
type SARIFFormatter struct {
	writer io.Writer
}

// NewSARIFFormatter creates a SARIF formatter writing to stdout.
func NewSARIFFormatter() *SARIFFormatter {
	return &SARIFFormatter{writer: os.Stdout}
}

// NewSARIFFormatterWithWriter creates a formatter with a custom writer
// (for testing).
func NewSARIFFormatterWithWriter(w io.Writer) *SARIFFormatter {
	return &SARIFFormatter{writer: w}
}

// Format writes every taint flow as a SARIF run, one rule per
// vulnerability kind and one result (with a two-location code flow) per
// flow.
func (f *SARIFFormatter) Format(flows []model.TaintFlow) error {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return err
	}

	run := sarif.NewRunWithInformationURI("taintgraph", "https://github.com/taintgraph/engine")
	f.buildRules(flows, run)
	for _, flow := range flows {
		f.buildResult(flow, run)
	}
	report.AddRun(run)

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func (f *SARIFFormatter) buildRules(flows []model.TaintFlow, run *sarif.Run) {
	seen := make(map[model.VulnerabilityKind]bool)
	for _, flow := range flows {
		if seen[flow.Kind] {
			continue
		}
		seen[flow.Kind] = true

		rule := run.AddRule(string(flow.Kind)).
			WithDescription("tainted data reaches a " + string(flow.Kind) + " sink").
			WithName(string(flow.Kind)).
			WithHelpURI("https://github.com/taintgraph/engine")
		rule.WithDefaultConfiguration(sarif.NewReportingConfiguration().WithLevel("error"))
	}
}

func (f *SARIFFormatter) buildResult(flow model.TaintFlow, run *sarif.Run) {
	message := fmt.Sprintf("%s: tainted data flows from %s:%d to %s:%d",
		flow.Kind, flow.SourceFile, flow.SourceLine, flow.SinkFile, flow.SinkLine)

	result := run.CreateResultForRule(string(flow.Kind)).
		WithMessage(sarif.NewTextMessage(message))

	result.AddLocation(f.location(flow.SinkFile, flow.SinkLine, "Taint sink"))
	f.addCodeFlow(flow, result)
}

func (f *SARIFFormatter) location(file string, line uint32, message string) *sarif.Location {
	return sarif.NewLocation().
		WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(file)).
				WithRegion(sarif.NewRegion().WithStartLine(int(line))),
		).
		WithMessage(sarif.NewTextMessage(message))
}

func (f *SARIFFormatter) addCodeFlow(flow model.TaintFlow, result *sarif.Result) {
	sourceLocation := f.location(flow.SourceFile, flow.SourceLine, "Taint source")
	sinkLocation := f.location(flow.SinkFile, flow.SinkLine, "Taint sink")

	threadFlow := sarif.NewThreadFlow().
		WithLocations([]*sarif.ThreadFlowLocation{
			sarif.NewThreadFlowLocation().WithLocation(sourceLocation),
			sarif.NewThreadFlowLocation().WithLocation(sinkLocation),
		})

	flowMsg := fmt.Sprintf("Taint flow from %s:%d to %s:%d", flow.SourceFile, flow.SourceLine, flow.SinkFile, flow.SinkLine)
	codeFlow := sarif.NewCodeFlow().
		WithThreadFlows([]*sarif.ThreadFlow{threadFlow}).
		WithMessage(sarif.NewTextMessage(flowMsg))

	result.WithCodeFlows([]*sarif.CodeFlow{codeFlow})
	result.WithRelatedLocations([]*sarif.Location{sourceLocation})
}
