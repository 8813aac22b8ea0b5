package api

import (
	"encoding/json"
	"net/http"

	"github.com/dgallion1/docsplit/internal/counter"
	"github.com/dgallion1/docsplit/internal/manifest"
)

// handleCount compares the uploaded PDF's page count with the pages its
// configuration declares. It runs synchronously; counting never loads page
// content.
func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	pdfData, cfgData, filename, ok := s.readUploads(w, r)
	if !ok {
		return
	}

	pages, err := s.pages.CountBytes(pdfData, filename)
	if err != nil {
		writeDocError(w, err)
		return
	}
	cfg, err := manifest.DecodeBytes(cfgData)
	if err != nil {
		writeDocError(w, err)
		return
	}

	c := &counter.Counter{Log: s.log, StrictCoverage: r.FormValue("strict_coverage") == "true"}
	res, err := c.Evaluate(pages, cfg)
	if err != nil {
		writeDocError(w, err)
		return
	}
	s.log.Info("counted pages", "filename", filename, "pdf_pages", res.PDFPages, "declared_pages", res.DeclaredPages, "delta", res.Formatted)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}
