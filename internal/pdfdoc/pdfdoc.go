package pdfdoc

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/dgallion1/docsplit/internal/docerr"
	"github.com/dgallion1/docsplit/internal/document"
)

// Document is a PDF loaded into memory with pdfcpu.
type Document struct {
	ctx  *model.Context
	name string
}

var _ document.Document = (*Document)(nil)

// Open reads, validates and loads the PDF at path.
func Open(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, docerr.Wrap(docerr.KindIOFailure, "open pdf", err, "input PDF file does not exist: %s", path)
		}
		return nil, docerr.Wrap(docerr.KindIOFailure, "open pdf", err, "cannot read input PDF file: %s", path)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, docerr.Wrap(docerr.KindIOFailure, "open pdf", err, "stat %s", path)
	}
	if fi.IsDir() {
		return nil, docerr.New(docerr.KindIOFailure, "open pdf", "input PDF path is a directory: %s", path)
	}
	return Load(f, path)
}

// Load reads a PDF from rs. name is used in error messages only.
func Load(rs io.ReadSeeker, name string) (*Document, error) {
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(rs, conf)
	if err != nil {
		return nil, docerr.Wrap(docerr.KindInvalidDocument, "load pdf", err, "cannot parse %s", name)
	}
	return &Document{ctx: ctx, name: name}, nil
}

// PageCount returns the number of pages in the document.
func (d *Document) PageCount() int {
	return d.ctx.PageCount
}

// Name returns the name the document was loaded under.
func (d *Document) Name() string {
	return d.name
}

// NewBuilder starts an empty output document backed by d.
func (d *Document) NewBuilder() document.Builder {
	return &builder{src: d}
}

type builder struct {
	src     *Document
	pageNrs []int // 1-based, pdfcpu numbering
}

func (b *builder) AddPage(i int) error {
	if i < 0 || i >= b.src.PageCount() {
		return fmt.Errorf("page index %d out of range [0,%d)", i, b.src.PageCount())
	}
	b.pageNrs = append(b.pageNrs, i+1)
	return nil
}

func (b *builder) PageCount() int {
	return len(b.pageNrs)
}

// Save copies the selected page objects into a fresh context and writes it.
// Page content is carried over structurally, nothing is re-rendered.
func (b *builder) Save(w io.Writer) error {
	if len(b.pageNrs) == 0 {
		return errors.New("no pages added")
	}
	ctx, err := pdfcpu.ExtractPages(b.src.ctx, b.pageNrs, false)
	if err != nil {
		return fmt.Errorf("extract pages %v: %w", b.pageNrs, err)
	}
	if err := api.WriteContext(ctx, w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
