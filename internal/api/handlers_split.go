package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docsplit/internal/docerr"
	"github.com/dgallion1/docsplit/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	pdfData, cfgData, filename, ok := s.readUploads(w, r)
	if !ok {
		return
	}

	job := pipeline.NewJob(filename, pdfData, cfgData)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":   job.ID,
		"status":   pipeline.StatusQueued,
		"poll_url": fmt.Sprintf("/api/split/%s/status", job.ID),
	})
}

func (s *Server) handleSplitStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

func (s *Server) handleSplitFile(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	name := chi.URLParam(r, "name")
	// Only names the job itself recorded are served.
	if !job.HasFile(name) {
		jsonError(w, "file not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, filepath.Join(job.OutputDir(), name))
}

// readUploads reads the "file" PDF part and the "config" JSON, which may be
// sent either as a file part or as a plain form field. It writes the error
// response itself and returns ok=false on failure.
func (s *Server) readUploads(w http.ResponseWriter, r *http.Request) (pdfData, cfgData []byte, filename string, ok bool) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, fmt.Sprintf("request exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return nil, nil, "", false
		}
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return nil, nil, "", false
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return nil, nil, "", false
	}
	defer file.Close()

	filename = sanitizeFilename(header.Filename)
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return nil, nil, "", false
	}

	pdfData, err = io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return nil, nil, "", false
	}
	if int64(len(pdfData)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return nil, nil, "", false
	}

	if cf, _, err := r.FormFile("config"); err == nil {
		cfgData, err = io.ReadAll(cf)
		cf.Close()
		if err != nil {
			jsonError(w, "failed to read config", http.StatusInternalServerError)
			return nil, nil, "", false
		}
	} else {
		cfgData = []byte(r.FormValue("config"))
	}
	if len(cfgData) == 0 {
		jsonError(w, "config is required", http.StatusBadRequest)
		return nil, nil, "", false
	}
	return pdfData, cfgData, filename, true
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// writeDocError reports a domain failure with its kind and the declarations
// involved.
func writeDocError(w http.ResponseWriter, err error) {
	body := map[string]any{"error": err.Error(), "kind": docerr.KindOf(err)}
	var de *docerr.Error
	if errors.As(err, &de) && len(de.Spans) > 0 {
		body["declarations"] = de.Spans
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusForKind(docerr.KindOf(err)))
	json.NewEncoder(w).Encode(body)
}

func statusForKind(k docerr.Kind) int {
	switch k {
	case docerr.KindInvalidArguments, docerr.KindInvalidConfiguration, docerr.KindInvalidDocument:
		return http.StatusBadRequest
	case docerr.KindInvalidRange, docerr.KindOverlappingRanges, docerr.KindRangeExceedsDocument, docerr.KindCoverageGap:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed.pdf"
	}
	return name
}
