// Package diagnostic defines the error taxonomy shared across pipeline
// stages. Every stage-level failure is wrapped into a diagnostic.Error so
// the CLI can always surface stage + file + reason, and so recovery
// decisions (skip this file, skip this method, abort the run) can switch
// on Kind rather than parsing error strings.
package diagnostic

import "fmt"

// Kind names a class of pipeline failure. These mirror spec.md §7's five
// recovery-relevant error kinds.
type Kind string

const (
	KindParseError           Kind = "parse-error"
	KindUnresolvedSymbol     Kind = "unresolved-symbol"
	KindMissingCallee        Kind = "missing-callee"
	KindMissingFrameworkData Kind = "missing-framework-data"
	KindStoreCorruption      Kind = "store-corruption"
)

// ErrGraphDBUnconfigured is returned by a GraphDBClient method when the
// configured backend has no working driver in this build.
var ErrGraphDBUnconfigured = New(KindMissingFrameworkData, "graphdb", "", nil)

// Error is a stage-attributed failure. Stage and File are set by the
// pipeline orchestrator as it propagates an error upward, so a single
// underlying error gains context at each stage boundary it crosses.
type Error struct {
	Kind  Kind
	Stage string
	File  string
	err   error
}

// New constructs a diagnostic.Error directly, without an underlying cause.
func New(kind Kind, stage, file string, cause error) *Error {
	return &Error{Kind: kind, Stage: stage, File: file, err: cause}
}

// Wrap attaches a Kind and File to an existing error. Stage is left blank;
// callers that propagate the error through a pipeline stage should use
// WithStage to fill it in as it crosses that boundary.
func Wrap(kind Kind, file string, cause error) *Error {
	return &Error{Kind: kind, File: file, err: cause}
}

// WithStage returns a copy of e with Stage set, leaving the original
// untouched. Used by the pipeline orchestrator as an error crosses a stage
// boundary on its way back to the caller.
func (e *Error) WithStage(stage string) *Error {
	cp := *e
	cp.Stage = stage
	return &cp
}

func (e *Error) Error() string {
	if e.err == nil {
		return fmt.Sprintf("%s: %s (file %s)", e.Stage, e.Kind, e.File)
	}
	if e.Stage == "" {
		return fmt.Sprintf("%s: %s: %v", e.File, e.Kind, e.err)
	}
	return fmt.Sprintf("%s[%s]: %s: %v", e.Stage, e.File, e.Kind, e.err)
}

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.err
}
