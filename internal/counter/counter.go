package counter

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dgallion1/docsplit/internal/docerr"
	"github.com/dgallion1/docsplit/internal/manifest"
	"github.com/dgallion1/docsplit/internal/pdfdoc"
	"github.com/dgallion1/docsplit/internal/ranges"
)

// Mode selects where a count result goes.
type Mode string

const (
	ModeConsole Mode = "console"
	ModeFile    Mode = "f"
)

// ResultSuffix is appended to the PDF path in file mode.
const ResultSuffix = ".result"

// ParseMode accepts "console" and "f". An empty string means console.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeConsole:
		return ModeConsole, nil
	case ModeFile:
		return ModeFile, nil
	}
	return "", docerr.New(docerr.KindInvalidArguments, "parse mode", "invalid output mode: %s (must be 'console' or 'f')", s)
}

// Result is the outcome of comparing a PDF with its declarations.
type Result struct {
	PDFPages      int    `json:"pdf_pages"`
	DeclaredPages int    `json:"declared_pages"`
	Delta         int    `json:"-"`
	Formatted     string `json:"delta"`
	OutputPath    string `json:"output_path,omitempty"`
}

// Compare returns the PDF's page count minus the pages covered by set.
func Compare(pdfPages int, set ranges.Set) int {
	return pdfPages - ranges.TotalPages(set)
}

// FormatDelta renders d as "+3", "-2" or "0".
func FormatDelta(d int) string {
	if d > 0 {
		return "+" + strconv.Itoa(d)
	}
	return strconv.Itoa(d)
}

// Counter compares a PDF's page count with the pages its configuration
// declares.
type Counter struct {
	Pages          *pdfdoc.Counter
	Log            *slog.Logger
	Stdout         io.Writer
	StrictCoverage bool
}

// New returns a Counter that prints to stdout.
func New(log *slog.Logger, fallbackPdfcpu bool) *Counter {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Counter{
		Pages:  &pdfdoc.Counter{FallbackPdfcpu: fallbackPdfcpu, Log: log},
		Log:    log,
		Stdout: os.Stdout,
	}
}

// Evaluate compares pdfPages with the pages declared in cfg.
//
// Declarations are checked for structure and overlap but not against the
// PDF's bounds, so a configuration that declares too many pages still
// produces a negative delta.
func (c *Counter) Evaluate(pdfPages int, cfg *manifest.Config) (Result, error) {
	set := cfg.Documents
	if err := ranges.ValidateStructure(set); err != nil {
		return Result{}, err
	}
	if err := ranges.ValidateNoOverlap(set); err != nil {
		return Result{}, err
	}
	if c.StrictCoverage {
		if err := ranges.ValidateCoverage(set, pdfPages); err != nil {
			return Result{}, err
		}
	}

	delta := Compare(pdfPages, set)
	return Result{
		PDFPages:      pdfPages,
		DeclaredPages: ranges.TotalPages(set),
		Delta:         delta,
		Formatted:     FormatDelta(delta),
	}, nil
}

// Count loads both inputs and evaluates them. The PDF is read first.
func (c *Counter) Count(pdfPath, cfgPath string) (Result, error) {
	pages, err := c.Pages.CountPages(pdfPath)
	if err != nil {
		return Result{}, err
	}
	c.Log.Info("PDF page count", "pages", pages)

	cfg, err := manifest.Load(cfgPath)
	if err != nil {
		return Result{}, err
	}

	res, err := c.Evaluate(pages, cfg)
	if err != nil {
		return Result{}, err
	}
	c.Log.Info("declared page count", "pages", res.DeclaredPages, "documents", len(cfg.Documents))
	return res, nil
}

// Run counts and writes the formatted delta according to mode.
func (c *Counter) Run(pdfPath, cfgPath string, mode Mode) (Result, error) {
	res, err := c.Count(pdfPath, cfgPath)
	if err != nil {
		return Result{}, err
	}

	switch mode {
	case ModeFile:
		out := pdfPath + ResultSuffix
		if err := os.WriteFile(out, []byte(res.Formatted), 0o644); err != nil {
			return Result{}, docerr.Wrap(docerr.KindIOFailure, "write result", err, "error writing output file %s", out)
		}
		if abs, err := filepath.Abs(out); err == nil {
			out = abs
		}
		res.OutputPath = out
		c.Log.Info("result written to file", "path", out)
	default:
		w := c.Stdout
		if w == nil {
			w = os.Stdout
		}
		if _, err := fmt.Fprintln(w, res.Formatted); err != nil {
			return Result{}, docerr.Wrap(docerr.KindIOFailure, "write result", err, "error writing result")
		}
	}
	return res, nil
}
