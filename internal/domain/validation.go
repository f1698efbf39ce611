package domain

import "fmt"

// Validation severities surfaced to the caller alongside the normalized
// tables. "critico" findings must block a solve; "advertencia" findings are
// informational.
const (
	SeverityWarning  = "advertencia"
	SeverityCritical = "critico"
)

// Validation is a single data-quality or model-simplification finding.
type Validation struct {
	Severity string
	Message  string
}

// ValidationList accumulates findings during normalization and costing.
type ValidationList []Validation

// Warnf appends an advertencia-level finding.
func (l *ValidationList) Warnf(format string, args ...any) {
	*l = append(*l, Validation{Severity: SeverityWarning, Message: fmt.Sprintf(format, args...)})
}

// Critf appends a critico-level finding.
func (l *ValidationList) Critf(format string, args ...any) {
	*l = append(*l, Validation{Severity: SeverityCritical, Message: fmt.Sprintf(format, args...)})
}

// HasCritical reports whether any finding is critico-level.
func (l ValidationList) HasCritical() bool {
	for _, v := range l {
		if v.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// CountBySeverity returns the number of findings per severity.
func (l ValidationList) CountBySeverity() map[string]int {
	counts := make(map[string]int)
	for _, v := range l {
		counts[v.Severity]++
	}
	return counts
}
