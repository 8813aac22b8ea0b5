package pdfdoc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/dgallion1/docsplit/internal/docerr"
)

// Counter reports a PDF's page count. It tries ledongthuc/pdf first, which
// only reads the page tree, then falls back to a full pdfcpu load if
// enabled.
type Counter struct {
	FallbackPdfcpu bool
	Log            *slog.Logger
}

// CountPages returns the number of pages in the PDF at path.
func (c *Counter) CountPages(path string) (int, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, docerr.Wrap(docerr.KindIOFailure, "count pages", err, "PDF file not found: %s", path)
		}
		return 0, docerr.Wrap(docerr.KindIOFailure, "count pages", err, "cannot read PDF file: %s", path)
	}
	if fi.IsDir() {
		return 0, docerr.New(docerr.KindIOFailure, "count pages", "PDF path is a directory: %s", path)
	}

	n, err := countPageTree(path)
	if err == nil {
		return n, nil
	}
	if !c.FallbackPdfcpu {
		return 0, docerr.Wrap(docerr.KindInvalidDocument, "count pages", err, "error reading PDF file %s", path)
	}
	c.warnFallback(path, err)

	doc, ferr := Open(path)
	if ferr != nil {
		return 0, ferr
	}
	return doc.PageCount(), nil
}

// CountBytes is CountPages over an in-memory PDF.
func (c *Counter) CountBytes(data []byte, name string) (int, error) {
	n, err := countPageTreeAt(bytes.NewReader(data), int64(len(data)))
	if err == nil {
		return n, nil
	}
	if !c.FallbackPdfcpu {
		return 0, docerr.Wrap(docerr.KindInvalidDocument, "count pages", err, "error reading PDF file %s", name)
	}
	c.warnFallback(name, err)

	doc, ferr := Load(bytes.NewReader(data), name)
	if ferr != nil {
		return 0, ferr
	}
	return doc.PageCount(), nil
}

func (c *Counter) warnFallback(name string, err error) {
	if c.Log != nil {
		c.Log.Warn("page tree read failed, falling back to pdfcpu", "path", name, "error", err)
	}
}

func countPageTree(path string) (n int, err error) {
	// ledongthuc/pdf panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	f, reader, err := pdflib.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	return reader.NumPage(), nil
}

func countPageTreeAt(r io.ReaderAt, size int64) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	reader, err := pdflib.NewReader(r, size)
	if err != nil {
		return 0, err
	}
	return reader.NumPage(), nil
}
