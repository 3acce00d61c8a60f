package model

// VulnerabilityKind names the class of injection a taint flow represents.
type VulnerabilityKind string

const (
	VulnSQLInjection     VulnerabilityKind = "SQLInjection"
	VulnXSS              VulnerabilityKind = "XSS"
	VulnCommandInjection VulnerabilityKind = "CommandInjection"
)

// Source is a tainted-data entry point discovered by the source/sink
// finder: a framework-recognized field, parameter, or assignment that
// introduces attacker-controlled data.
type Source struct {
	SharedID    SharedID // the AST node's SharedID — the finder's output before DFG lifting
	Description string
	Kind        VulnerabilityKind
	File        string
	Line        uint32
}

// Sink is a dangerous-operation call site discovered by the source/sink
// finder: a persistence query, process exec, or similarly sensitive API.
type Sink struct {
	SharedID    SharedID
	Description string
	Kind        VulnerabilityKind
	Argument    string // literal text of the argument under suspicion, for reporting
	File        string
	Line        uint32
}

// TaintFlow is a confirmed path from a tainted source to a sink. SharedIDs
// identify the originating AST nodes (so a report can be correlated back to
// source/line); the DFGNode ids record which DFG nodes the reachability
// engine actually connected — the intervening path itself is not retained.
type TaintFlow struct {
	SourceSharedID SharedID
	SinkSharedID   SharedID
	SourceDfNode   string // DFGNode.ID
	SinkDfNode     string // DFGNode.ID
	SourceFile     string
	SourceLine     uint32
	SinkFile       string
	SinkLine       uint32
	Kind           VulnerabilityKind
}

// Key returns the (source, sink, vulnerability) triple spec.md's dedup
// invariant is keyed on.
func (t TaintFlow) Key() [3]string {
	return [3]string{string(t.SourceSharedID), string(t.SinkSharedID), string(t.Kind)}
}
