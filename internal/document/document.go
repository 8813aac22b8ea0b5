// Package document defines the page-level view of a loaded source document
// that the partition engine works against.
package document

import "io"

// Document is a fully loaded, read-only source document.
type Document interface {
	// PageCount returns the total number of pages.
	PageCount() int
	// NewBuilder starts an empty output document that copies pages from
	// this one.
	NewBuilder() Builder
}

// Builder assembles an output document from source pages.
type Builder interface {
	// AddPage appends source page i (0-based) to the output.
	AddPage(i int) error
	// PageCount returns the number of pages added so far.
	PageCount() int
	// Save serializes the output document to w.
	Save(w io.Writer) error
}
