package kitfile

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes reported by Load, Parse and Validate.
const (
	ErrCodeGeneric  = "K001" // unclassified error
	ErrCodeNotFound = "K002" // Kitfile path does not exist
	ErrCodeParse    = "K003" // malformed YAML
	ErrCodeUnknown  = "K004" // top-level key outside AllowedKeys
	ErrCodeSchema   = "K005" // structure does not match the Kitfile schema

	ErrCodeManifestVersion = "K101" // manifestVersion missing
	ErrCodePathMissing     = "K102" // entry has no path
	ErrCodePathNotFound    = "K103" // path does not exist in the context directory
	ErrCodePathEscapes     = "K104" // path resolves outside the context directory
	ErrCodeParameters      = "K105" // model.parameters is not JSON compatible
)

// ErrNotFound is returned by Load when the Kitfile path does not exist.
var ErrNotFound = errors.New("kitfile not found")

// ParseError reports malformed YAML with its line when known.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("Error parsing Kitfile")
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d", e.Line)
	}
	b.WriteString(".")
	if e.Err != nil {
		fmt.Fprintf(&b, " %v", e.Err)
	}
	return b.String()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError is a single problem found in a Kitfile.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidationErrors collects every problem found; validation does not stop at
// the first one.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	switch len(errs) {
	case 0:
		return "no validation errors"
	case 1:
		return errs[0].Error()
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d validation errors: %s", len(errs), strings.Join(msgs, "; "))
}

// orNil keeps a nil ValidationErrors from becoming a non-nil error.
func (errs ValidationErrors) orNil() error {
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Diagnostics flattens an error returned by Load or Parse into validation
// errors. It reports false for errors that are not about Kitfile content,
// such as a missing file.
func Diagnostics(err error) ([]ValidationError, bool) {
	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		return verrs, true
	}
	var perr *ParseError
	if errors.As(err, &perr) {
		msg := "malformed YAML"
		if perr.Err != nil {
			msg = perr.Err.Error()
		}
		return []ValidationError{{
			Field:   "yaml",
			Message: msg,
			Code:    ErrCodeParse,
			Line:    perr.Line,
		}}, true
	}
	return nil, false
}
