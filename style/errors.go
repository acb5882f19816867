package style

import "fmt"

// StyleError reports a malformed or unsupported style descriptor.
// It is raised synchronously at compile time and is fatal to the
// construction of the layer that carries the descriptor.
type StyleError struct {
	// Field names the style field the error was found in ("size",
	// "color", ...), or "symbol" for descriptor-level problems.
	Field string

	// Message describes what is wrong.
	Message string
}

func (e *StyleError) Error() string {
	return fmt.Sprintf("style: field %q: %s", e.Field, e.Message)
}

// styleErrorf builds a *StyleError with a formatted message.
func styleErrorf(field, format string, args ...any) *StyleError {
	return &StyleError{Field: field, Message: fmt.Sprintf(format, args...)}
}
