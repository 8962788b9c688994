package fitcodec

import "fmt"

// FormatError is the fatal error channel: the input is too malformed to
// establish basic structure, so no partial model is returned alongside it.
// Recoverable anomalies travel as diagnostics instead.
type FormatError struct {
	Reason string
	Offset int
}

func (e *FormatError) Error() string {
	if e.Offset > 0 {
		return fmt.Sprintf("fit format: %s (offset %d)", e.Reason, e.Offset)
	}
	return "fit format: " + e.Reason
}

func formatErrorf(offset int, format string, args ...any) error {
	return &FormatError{Reason: fmt.Sprintf(format, args...), Offset: offset}
}
