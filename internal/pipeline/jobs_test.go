package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/dgallion1/docsplit/internal/docerr"
)

func TestContentHashHex_Consistency(t *testing.T) {
	data := []byte("hello world")
	h1 := ContentHashHex(data)
	h2 := ContentHashHex(data)
	if h1 != h2 {
		t.Errorf("expected identical hashes, got %q and %q", h1, h2)
	}
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if h1 != want {
		t.Errorf("expected hash %q, got %q", want, h1)
	}
}

func TestNewJob(t *testing.T) {
	a := NewJob("a.pdf", []byte("pdf"), []byte("{}"))
	b := NewJob("b.pdf", []byte("pdf"), []byte("{}"))
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("expected distinct non-empty IDs, got %q and %q", a.ID, b.ID)
	}
	if a.Status != StatusQueued {
		t.Errorf("expected status %q, got %q", StatusQueued, a.Status)
	}
	if a.ContentHash != ContentHashHex([]byte("pdf")) {
		t.Errorf("unexpected content hash %q", a.ContentHash)
	}
	pdf, cfg := a.Inputs()
	if string(pdf) != "pdf" || string(cfg) != "{}" {
		t.Errorf("unexpected inputs %q %q", pdf, cfg)
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := &Job{ID: "test-1", Status: StatusQueued, UpdatedAt: time.Now()}

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusValidating, "validating"},
		{StatusSplitting, "splitting"},
		{StatusCompleted, "done"},
	}

	for _, tr := range transitions {
		before := job.UpdatedAt
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		if job.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, job.Status)
		}
		if job.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, job.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}
}

func TestJob_Fail(t *testing.T) {
	job := &Job{ID: "fail"}
	job.Fail("validating", docerr.New(docerr.KindOverlappingRanges, "validate", "pages overlap"))

	snap := job.Snapshot()
	if snap.Status != StatusFailed {
		t.Errorf("expected status %q, got %q", StatusFailed, snap.Status)
	}
	if snap.ErrorKind != docerr.KindOverlappingRanges {
		t.Errorf("expected kind %q, got %q", docerr.KindOverlappingRanges, snap.ErrorKind)
	}
	if len(snap.Progress.Errors) != 1 {
		t.Fatalf("expected 1 error, got %d", len(snap.Progress.Errors))
	}

	job2 := &Job{ID: "fail-plain"}
	job2.Fail("splitting", errors.New("boom"))
	if job2.Snapshot().ErrorKind != docerr.KindUnknown {
		t.Errorf("expected unknown kind for plain error, got %q", job2.Snapshot().ErrorKind)
	}
}

func TestJob_AddFile(t *testing.T) {
	job := &Job{ID: "files"}
	job.SetTotalPartitions(2)
	job.AddFile("/out/files/invoice_95.pdf")
	job.AddFile("/out/files/receipt_88.pdf")

	snap := job.Snapshot()
	if snap.Progress.TotalPartitions != 2 || snap.Progress.PartitionsWritten != 2 {
		t.Errorf("unexpected progress %+v", snap.Progress)
	}
	if diff := cmp.Diff([]string{"invoice_95.pdf", "receipt_88.pdf"}, snap.Progress.Files); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
	if !job.HasFile("receipt_88.pdf") || job.HasFile("other.pdf") {
		t.Error("HasFile returned the wrong answer")
	}
}

func TestJob_SnapshotIsCopy(t *testing.T) {
	job := &Job{ID: "copy"}
	job.AddFile("a.pdf")
	snap := job.Snapshot()
	job.AddFile("b.pdf")
	if len(snap.Progress.Files) != 1 {
		t.Errorf("expected snapshot to be unaffected, got %v", snap.Progress.Files)
	}
}

func TestJob_SnapshotSlicesNotNil(t *testing.T) {
	snap := (&Job{ID: "snap-test"}).Snapshot()
	if snap.Progress.Errors == nil || snap.Progress.Files == nil {
		t.Error("expected non-nil slices in snapshot")
	}
}

func TestJob_ReleaseInputs(t *testing.T) {
	job := NewJob("x.pdf", []byte("pdf"), []byte("cfg"))
	job.releaseInputs()
	pdf, cfg := job.Inputs()
	if pdf != nil || cfg != nil {
		t.Error("expected inputs to be released")
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := &Job{ID: "store-1", UpdatedAt: time.Now()}
	store.Put(job)

	got := store.Get("store-1")
	if got == nil {
		t.Fatal("expected to get job back")
	}
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 job, got %d", store.Len())
	}
}

func TestJobStore_TTLCleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)
	store.Put(&Job{ID: "old", UpdatedAt: time.Now()})

	time.Sleep(100 * time.Millisecond)
	store.Put(&Job{ID: "new", UpdatedAt: time.Now()})

	expired := store.Cleanup()
	if len(expired) != 1 || expired[0].ID != "old" {
		t.Errorf("expected only the old job to expire, got %d", len(expired))
	}
	if store.Get("old") != nil {
		t.Error("expected expired job to be cleaned up")
	}
	if store.Get("new") == nil {
		t.Error("expected fresh job to survive cleanup")
	}
}

func TestJobStore_CleanupEmpty(t *testing.T) {
	if got := NewJobStore(time.Hour).Cleanup(); len(got) != 0 {
		t.Errorf("expected nothing to expire, got %d", len(got))
	}
}
