package counter

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgallion1/docsplit/internal/docerr"
	"github.com/dgallion1/docsplit/internal/manifest"
	"github.com/dgallion1/docsplit/internal/pdfdoc/pdftest"
	"github.com/dgallion1/docsplit/internal/ranges"
)

func TestFormatDelta(t *testing.T) {
	cases := map[int]string{3: "+3", -2: "-2", 0: "0", 1: "+1"}
	for in, want := range cases {
		if got := FormatDelta(in); got != want {
			t.Errorf("FormatDelta(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestCompare(t *testing.T) {
	set := ranges.Set{
		{Category: "a", StartPage: 1, EndPage: 2},
		{Category: "b", StartPage: 4, EndPage: 6},
	}
	if got := Compare(10, set); got != 5 {
		t.Errorf("expected 5, got %d", got)
	}
	if got := Compare(3, set); got != -2 {
		t.Errorf("expected -2, got %d", got)
	}
	if got := Compare(4, nil); got != 4 {
		t.Errorf("expected 4 for empty set, got %d", got)
	}
}

func TestParseMode(t *testing.T) {
	for _, s := range []string{"", "console", "f"} {
		if _, err := ParseMode(s); err != nil {
			t.Errorf("ParseMode(%q): unexpected error %v", s, err)
		}
	}
	if _, err := ParseMode("file"); !errors.Is(err, docerr.ErrInvalidArguments) {
		t.Errorf("expected InvalidArguments, got %v", err)
	}
}

func TestEvaluate_Validation(t *testing.T) {
	c := New(nil, false)
	cases := []struct {
		name string
		set  ranges.Set
		want error
	}{
		{"overlap", ranges.Set{{StartPage: 1, EndPage: 3}, {StartPage: 3, EndPage: 4}}, docerr.ErrOverlappingRanges},
		{"inverted", ranges.Set{{StartPage: 5, EndPage: 2}}, docerr.ErrInvalidRange},
		{"zero start", ranges.Set{{StartPage: 0, EndPage: 2}}, docerr.ErrInvalidRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.Evaluate(10, &manifest.Config{Documents: tc.set})
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestEvaluate_DeclaredBeyondPDF(t *testing.T) {
	c := New(nil, false)
	res, err := c.Evaluate(3, &manifest.Config{Documents: ranges.Set{{StartPage: 1, EndPage: 5}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Formatted != "-2" {
		t.Errorf("expected -2, got %q", res.Formatted)
	}
}

func TestEvaluate_StrictCoverage(t *testing.T) {
	c := New(nil, false)
	c.StrictCoverage = true
	cfg := &manifest.Config{Documents: ranges.Set{{StartPage: 1, EndPage: 2}, {StartPage: 4, EndPage: 5}}}
	if _, err := c.Evaluate(5, cfg); !errors.Is(err, docerr.ErrCoverageGap) {
		t.Errorf("expected CoverageGap, got %v", err)
	}
	cfg.Documents = ranges.Set{{StartPage: 1, EndPage: 3}, {StartPage: 4, EndPage: 5}}
	if _, err := c.Evaluate(5, cfg); err != nil {
		t.Errorf("expected full coverage to pass, got %v", err)
	}
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun_Console(t *testing.T) {
	dir := t.TempDir()
	pdfPath := pdftest.WriteBlank(t, dir, "doc.pdf", 6)
	cfgPath := writeConfig(t, dir, `{"documents":[
		{"category":"invoice","start_page":1,"end_page":2,"confidence":90},
		{"category":"receipt","start_page":3,"end_page":3,"confidence":80}]}`)

	var out bytes.Buffer
	c := New(nil, false)
	c.Stdout = &out
	res, err := c.Run(pdfPath, cfgPath, ModeConsole)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.PDFPages != 6 || res.DeclaredPages != 3 {
		t.Errorf("expected 6/3 pages, got %d/%d", res.PDFPages, res.DeclaredPages)
	}
	if out.String() != "+3\n" {
		t.Errorf("expected %q on stdout, got %q", "+3\n", out.String())
	}
}

func TestRun_FileMode(t *testing.T) {
	dir := t.TempDir()
	pdfPath := pdftest.WriteBlank(t, dir, "doc.pdf", 2)
	cfgPath := writeConfig(t, dir, `{"documents":[{"category":"a","start_page":1,"end_page":2,"confidence":1}]}`)

	var out bytes.Buffer
	c := New(nil, false)
	c.Stdout = &out
	res, err := c.Run(pdfPath, cfgPath, ModeFile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(pdfPath + ResultSuffix)
	if err != nil {
		t.Fatalf("read result: %v", err)
	}
	if string(data) != "0" {
		t.Errorf("expected result file to contain %q, got %q", "0", data)
	}
	if out.Len() != 0 {
		t.Errorf("expected nothing on stdout, got %q", out.String())
	}
	if !filepath.IsAbs(res.OutputPath) {
		t.Errorf("expected absolute output path, got %q", res.OutputPath)
	}
}

func TestRun_EmptyDocuments(t *testing.T) {
	dir := t.TempDir()
	pdfPath := pdftest.WriteBlank(t, dir, "doc.pdf", 4)
	cfgPath := writeConfig(t, dir, `{"documents":[]}`)

	var out bytes.Buffer
	c := New(nil, false)
	c.Stdout = &out
	if _, err := c.Run(pdfPath, cfgPath, ModeConsole); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "+4\n" {
		t.Errorf("expected +4, got %q", out.String())
	}
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	pdfPath := pdftest.WriteBlank(t, dir, "doc.pdf", 2)
	goodCfg := writeConfig(t, dir, `{"documents":[]}`)
	badCfg := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(badCfg, []byte(`{"documents":[{`), 0o644); err != nil {
		t.Fatal(err)
	}

	c := New(nil, false)
	c.Stdout = &bytes.Buffer{}

	if _, err := c.Run(filepath.Join(dir, "none.pdf"), goodCfg, ModeConsole); !errors.Is(err, docerr.ErrIOFailure) {
		t.Errorf("missing pdf: expected IOFailure, got %v", err)
	}
	if _, err := c.Run(pdfPath, filepath.Join(dir, "none.json"), ModeConsole); !errors.Is(err, docerr.ErrIOFailure) {
		t.Errorf("missing config: expected IOFailure, got %v", err)
	}
	if _, err := c.Run(pdfPath, badCfg, ModeConsole); !errors.Is(err, docerr.ErrInvalidConfiguration) {
		t.Errorf("malformed config: expected InvalidConfiguration, got %v", err)
	}
}
