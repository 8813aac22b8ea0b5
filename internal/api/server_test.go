package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgallion1/docsplit/internal/config"
	"github.com/dgallion1/docsplit/internal/docerr"
	"github.com/dgallion1/docsplit/internal/pdfdoc"
	"github.com/dgallion1/docsplit/internal/pdfdoc/pdftest"
	"github.com/dgallion1/docsplit/internal/pipeline"
)

const testKey = "test-key"

const threeDocs = `{"documents":[
	{"category":"invoice","start_page":1,"end_page":2,"confidence":95},
	{"category":"receipt","start_page":3,"end_page":4,"confidence":88},
	{"category":"contract","start_page":5,"end_page":5,"confidence":92}]}`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Config{
		DocsplitAPIKey: testKey,
		OutputRoot:     t.TempDir(),
		WorkerCount:    1,
		MaxQueueSize:   4,
		MaxUploadBytes: 1 << 20,
		JobTTL:         time.Hour,
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	orch := pipeline.NewOrchestrator(cfg, log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)
	return NewServer(orch, log, cfg)
}

func uploadRequest(t *testing.T, path, filename string, pdf []byte, cfg string, extra map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if pdf != nil {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(pdf)
	}
	if cfg != "" {
		mw.WriteField("config", cfg)
	}
	for k, v := range extra {
		mw.WriteField(k, v)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+testKey)
	return req
}

func authed(method, path string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+testKey)
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestHealthIsPublic(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestAuth(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing header: expected 401, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong key: expected 401, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, authed(http.MethodGet, "/api/stats"))
	if rec.Code != http.StatusOK {
		t.Errorf("valid key: expected 200, got %d", rec.Code)
	}
}

func TestSplitLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, uploadRequest(t, "/api/split", "input.pdf", pdftest.Blank(5), threeDocs, nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var accepted struct {
		JobID   string `json:"job_id"`
		PollURL string `json:"poll_url"`
	}
	decode(t, rec, &accepted)
	if accepted.JobID == "" {
		t.Fatal("expected job_id in response")
	}

	var snap pipeline.JobSnapshot
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		rec = httptest.NewRecorder()
		s.ServeHTTP(rec, authed(http.MethodGet, accepted.PollURL))
		if rec.Code != http.StatusOK {
			t.Fatalf("status: expected 200, got %d", rec.Code)
		}
		decode(t, rec, &snap)
		if snap.Status == pipeline.StatusCompleted || snap.Status == pipeline.StatusFailed {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if snap.Status != pipeline.StatusCompleted {
		t.Fatalf("expected completed, got %q (errors %v)", snap.Status, snap.Progress.Errors)
	}
	if len(snap.Progress.Files) != 3 {
		t.Fatalf("expected 3 files, got %v", snap.Progress.Files)
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, authed(http.MethodGet, "/api/split/"+accepted.JobID+"/files/receipt_88.pdf"))
	if rec.Code != http.StatusOK {
		t.Fatalf("download: expected 200, got %d", rec.Code)
	}
	doc, err := pdfdoc.Load(bytes.NewReader(rec.Body.Bytes()), "receipt_88.pdf")
	if err != nil {
		t.Fatalf("downloaded file is not a PDF: %v", err)
	}
	if doc.PageCount() != 2 {
		t.Errorf("expected 2 pages, got %d", doc.PageCount())
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, authed(http.MethodGet, "/api/split/"+accepted.JobID+"/files/other.pdf"))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown file: expected 404, got %d", rec.Code)
	}
}

func TestSplitStatus_UnknownJob(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, authed(http.MethodGet, "/api/split/nope/status"))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestSplit_BadUploads(t *testing.T) {
	s := newTestServer(t)
	cases := []struct {
		name     string
		filename string
		pdf      []byte
		cfg      string
		want     int
	}{
		{"missing file", "", nil, threeDocs, http.StatusBadRequest},
		{"not a pdf", "notes.txt", []byte("hello"), threeDocs, http.StatusBadRequest},
		{"missing config", "input.pdf", pdftest.Blank(1), "", http.StatusBadRequest},
		{"too large", "input.pdf", make([]byte, 1<<20+10), threeDocs, http.StatusRequestEntityTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, uploadRequest(t, "/api/split", tc.filename, tc.pdf, tc.cfg, nil))
			if rec.Code != tc.want {
				t.Errorf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCount(t *testing.T) {
	s := newTestServer(t)
	cfg := `{"documents":[{"category":"a","start_page":1,"end_page":2,"confidence":1}]}`

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, uploadRequest(t, "/api/count", "input.pdf", pdftest.Blank(5), cfg, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res struct {
		Delta         string `json:"delta"`
		PDFPages      int    `json:"pdf_pages"`
		DeclaredPages int    `json:"declared_pages"`
	}
	decode(t, rec, &res)
	if res.Delta != "+3" || res.PDFPages != 5 || res.DeclaredPages != 2 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestCount_Errors(t *testing.T) {
	s := newTestServer(t)
	overlap := `{"documents":[
		{"category":"a","start_page":1,"end_page":3,"confidence":1},
		{"category":"b","start_page":2,"end_page":4,"confidence":1}]}`
	gap := `{"documents":[{"category":"a","start_page":2,"end_page":3,"confidence":1}]}`

	cases := []struct {
		name  string
		pdf   []byte
		cfg   string
		extra map[string]string
		code  int
		kind  docerr.Kind
	}{
		{"overlap", pdftest.Blank(5), overlap, nil, http.StatusUnprocessableEntity, docerr.KindOverlappingRanges},
		{"bad json", pdftest.Blank(5), `{"documents":[`, nil, http.StatusBadRequest, docerr.KindInvalidConfiguration},
		{"corrupt pdf", []byte("junk"), gap, nil, http.StatusBadRequest, docerr.KindInvalidDocument},
		{"coverage gap", pdftest.Blank(3), gap, map[string]string{"strict_coverage": "true"}, http.StatusUnprocessableEntity, docerr.KindCoverageGap},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, uploadRequest(t, "/api/count", "input.pdf", tc.pdf, tc.cfg, tc.extra))
			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d: %s", tc.code, rec.Code, rec.Body.String())
			}
			var body struct {
				Kind docerr.Kind `json:"kind"`
			}
			decode(t, rec, &body)
			if body.Kind != tc.kind {
				t.Errorf("expected kind %q, got %q", tc.kind, body.Kind)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"report.pdf":          "report.pdf",
		"../../etc/passwd":    "passwd",
		`C:\docs\scan.pdf`:    "scan.pdf",
		"":                    "unnamed.pdf",
		"a..b.pdf":            "a_b.pdf",
		"dir/sub/invoice.pdf": "invoice.pdf",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
