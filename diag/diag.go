// Package diag carries recoverable decode/encode anomalies. Diagnostics are
// accumulated in a Sink threaded explicitly through the call tree and are
// distinct from fatal format errors, which prevent any model from being
// produced at all.
package diag

import "fmt"

// Severity classifies a diagnostic.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Ref locates the offending record or field inside the source stream.
type Ref struct {
	// Path names the structural location, e.g. "record" or "header".
	Path string `json:"path"`
	// Index is the record or field index within Path, -1 when not applicable.
	Index int `json:"index"`
	// Detail is free text describing the anomaly site.
	Detail string `json:"detail,omitempty"`
}

// Diagnostic is one recoverable anomaly: a severity, a stable machine code, a
// human message and an optional structural reference.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Ref      *Ref     `json:"ref,omitempty"`
}

func (d Diagnostic) String() string {
	if d.Ref != nil {
		return fmt.Sprintf("%s [%s] %s (%s)", d.Severity, d.Code, d.Message, d.Ref.Path)
	}
	return fmt.Sprintf("%s [%s] %s", d.Severity, d.Code, d.Message)
}

// Sink accumulates diagnostics without aborting the operation that emits them.
// The zero value is ready to use. A Sink is owned by a single decode/encode
// call and is not safe for concurrent use.
type Sink struct {
	items []Diagnostic
}

// Add appends a diagnostic.
func (s *Sink) Add(d Diagnostic) {
	s.items = append(s.items, d)
}

// Addf appends a diagnostic with a formatted message and no structural ref.
func (s *Sink) Addf(sev Severity, code, format string, args ...any) {
	s.items = append(s.items, Diagnostic{
		Severity: sev,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
	})
}

// AddRef appends a diagnostic pointing at a structural location.
func (s *Sink) AddRef(sev Severity, code, message, path string, index int, detail string) {
	s.items = append(s.items, Diagnostic{
		Severity: sev,
		Code:     code,
		Message:  message,
		Ref:      &Ref{Path: path, Index: index, Detail: detail},
	})
}

// Items returns the accumulated diagnostics in emission order. The returned
// slice is a copy.
func (s *Sink) Items() []Diagnostic {
	if len(s.items) == 0 {
		return nil
	}
	return append([]Diagnostic(nil), s.items...)
}

// Len reports how many diagnostics have been accumulated.
func (s *Sink) Len() int { return len(s.items) }

// HasSeverity reports whether any accumulated diagnostic has the given
// severity.
func (s *Sink) HasSeverity(sev Severity) bool {
	for _, d := range s.items {
		if d.Severity == sev {
			return true
		}
	}
	return false
}
