package output

import (
	"fmt"
	"strings"

	"github.com/taintgraph/engine/model"
)

// ExitCode represents the exit code for the CLI.
type ExitCode int

const (
	// ExitCodeSuccess indicates successful execution with no flows, or no
	// --fail-on match.
	ExitCodeSuccess ExitCode = 0

	// ExitCodeFindings indicates taint flows match --fail-on vulnerability
	// kinds.
	ExitCodeFindings ExitCode = 1

	// ExitCodeError indicates configuration or execution error.
	ExitCodeError ExitCode = 2
)

// InvalidVulnerabilityKindError is returned when --fail-on names a kind
// run-static doesn't recognize.
type InvalidVulnerabilityKindError struct {
	Kind  string
	Valid []string
}

func (e *InvalidVulnerabilityKindError) Error() string {
	return fmt.Sprintf("invalid vulnerability kind %q, must be one of: %s",
		e.Kind, strings.Join(e.Valid, ", "))
}

var validKinds = map[model.VulnerabilityKind]bool{
	model.VulnSQLInjection:     true,
	model.VulnXSS:              true,
	model.VulnCommandInjection: true,
}

// DetermineExitCode calculates the CLI's exit code from the taint flows
// found, the --fail-on vulnerability kinds requested, and whether a
// non-recoverable error occurred during the run.
//
// Exit code precedence:
// 1. ExitCodeError (2) - if hadErrors is true.
// 2. ExitCodeFindings (1) - if any flow matches a --fail-on kind.
// 3. ExitCodeSuccess (0) - otherwise.
func DetermineExitCode(flows []model.TaintFlow, failOn []model.VulnerabilityKind, hadErrors bool) ExitCode {
	if hadErrors {
		return ExitCodeError
	}
	if len(failOn) == 0 {
		return ExitCodeSuccess
	}

	failOnSet := make(map[model.VulnerabilityKind]bool, len(failOn))
	for _, kind := range failOn {
		failOnSet[kind] = true
	}

	for _, flow := range flows {
		if failOnSet[flow.Kind] {
			return ExitCodeFindings
		}
	}
	return ExitCodeSuccess
}

// ParseFailOn parses the comma-separated --fail-on flag value into a
// slice of vulnerability kinds. Empty input returns an empty slice.
func ParseFailOn(value string) []model.VulnerabilityKind {
	value = strings.TrimSpace(value)
	if value == "" {
		return []model.VulnerabilityKind{}
	}

	parts := strings.Split(value, ",")
	result := make([]model.VulnerabilityKind, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, model.VulnerabilityKind(trimmed))
		}
	}
	return result
}

// ValidateVulnerabilityKinds checks that every --fail-on value names a
// kind run-static actually produces.
func ValidateVulnerabilityKinds(kinds []model.VulnerabilityKind) error {
	validList := []string{string(model.VulnSQLInjection), string(model.VulnXSS), string(model.VulnCommandInjection)}
	for _, kind := range kinds {
		if !validKinds[kind] {
			return &InvalidVulnerabilityKindError{Kind: string(kind), Valid: validList}
		}
	}
	return nil
}
