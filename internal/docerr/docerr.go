package docerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the category of a failure. Kinds are stable and map onto exit codes.
type Kind string

const (
	KindUnknown                    Kind = "unknown"
	KindInvalidArguments           Kind = "invalid_arguments"
	KindInvalidConfiguration       Kind = "invalid_configuration"
	KindInvalidRange               Kind = "invalid_range"
	KindOverlappingRanges          Kind = "overlapping_ranges"
	KindRangeExceedsDocument       Kind = "range_exceeds_document"
	KindCoverageGap                Kind = "coverage_gap"
	KindOutputDirectoryUnavailable Kind = "output_directory_unavailable"
	KindIOFailure                  Kind = "io_failure"
	KindInvalidDocument            Kind = "invalid_document"
)

// Sentinels for errors.Is. A *Error matches the sentinel of its Kind.
var (
	ErrInvalidArguments           = &Error{Kind: KindInvalidArguments}
	ErrInvalidConfiguration       = &Error{Kind: KindInvalidConfiguration}
	ErrInvalidRange               = &Error{Kind: KindInvalidRange}
	ErrOverlappingRanges          = &Error{Kind: KindOverlappingRanges}
	ErrRangeExceedsDocument       = &Error{Kind: KindRangeExceedsDocument}
	ErrCoverageGap                = &Error{Kind: KindCoverageGap}
	ErrOutputDirectoryUnavailable = &Error{Kind: KindOutputDirectoryUnavailable}
	ErrIOFailure                  = &Error{Kind: KindIOFailure}
	ErrInvalidDocument            = &Error{Kind: KindInvalidDocument}
)

// Span identifies a declaration in error reports.
type Span struct {
	Category  string `json:"category"`
	StartPage int    `json:"start_page"`
	EndPage   int    `json:"end_page"`
}

func (s Span) String() string {
	return fmt.Sprintf("%q (pages %d-%d)", s.Category, s.StartPage, s.EndPage)
}

// Error is a structured failure carrying enough context to act on without
// re-running: the offending declarations, the numeric bound involved and the
// underlying cause.
type Error struct {
	Kind  Kind
	Op    string // e.g. "validate", "partition", "decode"
	Msg   string
	Spans []Span
	Limit int // page count or other bound, 0 if N/A
	Path  string
	Cause error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is a *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New returns an error of the given kind.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap returns an error of the given kind with cause attached.
func Wrap(kind Kind, op string, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// ExitCode maps a Kind to a process exit status. The numbering follows the
// page counter's historical codes, made positive.
func ExitCode(kind Kind) int {
	switch kind {
	case KindInvalidArguments:
		return 1
	case KindOverlappingRanges:
		return 2
	case KindIOFailure:
		return 3
	case KindInvalidDocument:
		return 5
	case KindInvalidConfiguration:
		return 6
	case KindInvalidRange:
		return 8
	case KindOutputDirectoryUnavailable:
		return 9
	case KindRangeExceedsDocument:
		return 10
	case KindCoverageGap:
		return 11
	default:
		return 99
	}
}
