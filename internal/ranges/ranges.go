package ranges

import (
	"fmt"

	"github.com/dgallion1/docsplit/internal/docerr"
)

// Declaration is one labeled page span. Pages are 1-based and inclusive.
type Declaration struct {
	Category   string `json:"category"`
	StartPage  int    `json:"start_page"`
	EndPage    int    `json:"end_page"`
	Confidence int    `json:"confidence"`

	// Optional flags carried by classifier output. Metadata only.
	Incomplete *bool `json:"incomplete,omitempty"`
	Template   *bool `json:"template,omitempty"`
}

// PageCount returns the number of pages the declaration spans.
func (d Declaration) PageCount() int {
	return d.EndPage - d.StartPage + 1
}

// Span returns the error-report view of d.
func (d Declaration) Span() docerr.Span {
	return docerr.Span{Category: d.Category, StartPage: d.StartPage, EndPage: d.EndPage}
}

func (d Declaration) String() string {
	return fmt.Sprintf("%s[%d-%d]@%d", d.Category, d.StartPage, d.EndPage, d.Confidence)
}

// Overlaps reports whether the closed intervals of d and o intersect.
func (d Declaration) Overlaps(o Declaration) bool {
	return d.StartPage <= o.EndPage && o.StartPage <= d.EndPage
}

// Set is an ordered sequence of declarations. Order decides output order.
type Set []Declaration

// TotalPages sums the declared spans.
func TotalPages(set Set) int {
	total := 0
	for _, d := range set {
		total += d.PageCount()
	}
	return total
}

// Options tune validation.
type Options struct {
	StrictConfidence bool // reject confidence outside 0..100
}

// Option configures Options.
type Option func(*Options)

// WithStrictConfidence enables the 0..100 confidence check.
func WithStrictConfidence() Option {
	return func(o *Options) { o.StrictConfidence = true }
}

// WithConfidenceCheck toggles the confidence check from a config flag.
func WithConfidenceCheck(strict bool) Option {
	return func(o *Options) { o.StrictConfidence = strict }
}

const (
	MinConfidence = 0
	MaxConfidence = 100
)

// ValidateStructure checks start >= 1 and start <= end for every
// declaration, and optionally the confidence bounds.
func ValidateStructure(set Set, opts ...Option) error {
	var o Options
	for _, fn := range opts {
		fn(&o)
	}
	for i, d := range set {
		if d.StartPage < 1 {
			return &docerr.Error{
				Kind:  docerr.KindInvalidRange,
				Op:    "validate",
				Msg:   fmt.Sprintf("declaration %d: start_page %d must be >= 1", i+1, d.StartPage),
				Spans: []docerr.Span{d.Span()},
			}
		}
		if d.StartPage > d.EndPage {
			return &docerr.Error{
				Kind:  docerr.KindInvalidRange,
				Op:    "validate",
				Msg:   fmt.Sprintf("declaration %d: start_page %d is greater than end_page %d", i+1, d.StartPage, d.EndPage),
				Spans: []docerr.Span{d.Span()},
			}
		}
	}
	if !o.StrictConfidence {
		return nil
	}
	for i, d := range set {
		if d.Confidence < MinConfidence || d.Confidence > MaxConfidence {
			return &docerr.Error{
				Kind:  docerr.KindInvalidConfiguration,
				Op:    "validate",
				Msg:   fmt.Sprintf("declaration %d: confidence %d must be between %d and %d", i+1, d.Confidence, MinConfidence, MaxConfidence),
				Spans: []docerr.Span{d.Span()},
				Limit: MaxConfidence,
			}
		}
	}
	return nil
}

// ValidateNoOverlap compares every pair in input order and reports the first
// overlapping pair.
func ValidateNoOverlap(set Set) error {
	for i := 0; i < len(set); i++ {
		for j := i + 1; j < len(set); j++ {
			if set[i].Overlaps(set[j]) {
				return overlapError(set[i], set[j])
			}
		}
	}
	return nil
}

func overlapError(a, b Declaration) error {
	return &docerr.Error{
		Kind:  docerr.KindOverlappingRanges,
		Op:    "validate",
		Msg:   fmt.Sprintf("page ranges overlap between %s and %s", a.Span(), b.Span()),
		Spans: []docerr.Span{a.Span(), b.Span()},
	}
}

// ValidateBounds checks every declaration against the document's page count.
func ValidateBounds(set Set, totalPages int) error {
	for _, d := range set {
		if d.StartPage > totalPages {
			return &docerr.Error{
				Kind:  docerr.KindRangeExceedsDocument,
				Op:    "validate",
				Msg:   fmt.Sprintf("start page %d exceeds document page count %d for %s", d.StartPage, totalPages, d.Span()),
				Spans: []docerr.Span{d.Span()},
				Limit: totalPages,
			}
		}
		if d.EndPage > totalPages {
			return &docerr.Error{
				Kind:  docerr.KindRangeExceedsDocument,
				Op:    "validate",
				Msg:   fmt.Sprintf("end page %d exceeds document page count %d for %s", d.EndPage, totalPages, d.Span()),
				Spans: []docerr.Span{d.Span()},
				Limit: totalPages,
			}
		}
	}
	return nil
}

// RequireNonEmpty rejects a set with no declarations. Splitting needs at
// least one; counting does not call it.
func RequireNonEmpty(set Set) error {
	if len(set) == 0 {
		return docerr.New(docerr.KindInvalidConfiguration, "validate", "documents list cannot be empty")
	}
	return nil
}

// Validate runs structure, overlap and bounds checks in that order. A
// non-positive totalPages skips the bounds check.
func Validate(set Set, totalPages int, opts ...Option) error {
	if err := ValidateStructure(set, opts...); err != nil {
		return err
	}
	if err := ValidateNoOverlap(set); err != nil {
		return err
	}
	if totalPages > 0 {
		return ValidateBounds(set, totalPages)
	}
	return nil
}
