package pipeline

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/dgallion1/docsplit/internal/manifest"
	"github.com/dgallion1/docsplit/internal/pdfdoc"
	"github.com/dgallion1/docsplit/internal/ranges"
	"github.com/dgallion1/docsplit/internal/splitter"
)

// Worker processes a single split job.
type Worker struct {
	outputRoot       string
	strictConfidence bool
	atomic           bool
	stats            *SplitStats
	log              *slog.Logger
}

func NewWorker(outputRoot string, strictConfidence, atomic bool, stats *SplitStats, log *slog.Logger) *Worker {
	return &Worker{
		outputRoot:       outputRoot,
		strictConfidence: strictConfidence,
		atomic:           atomic,
		stats:            stats,
		log:              log,
	}
}

// Process validates the job's inputs and splits the PDF into
// outputRoot/{jobID}.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)
	start := time.Now()
	defer job.releaseInputs()

	// Phase 1: Validate
	job.SetStatus(StatusValidating, "validating")
	pdfData, cfgData := job.Inputs()

	doc, err := pdfdoc.Load(bytes.NewReader(pdfData), job.Filename)
	if err != nil {
		w.fail(log, job, "loading document", err, start)
		return
	}
	job.SetPageCount(doc.PageCount())

	cfg, err := manifest.DecodeBytes(cfgData)
	if err != nil {
		w.fail(log, job, "decoding configuration", err, start)
		return
	}
	if err := cfg.RequireDocuments(); err != nil {
		w.fail(log, job, "validating", err, start)
		return
	}
	if err := ranges.Validate(cfg.Documents, doc.PageCount(), ranges.WithConfidenceCheck(w.strictConfidence)); err != nil {
		w.fail(log, job, "validating", err, start)
		return
	}
	job.SetTotalPartitions(len(cfg.Documents))

	if ctx.Err() != nil {
		w.fail(log, job, "cancelled", ctx.Err(), start)
		return
	}

	// Phase 2: Split. Each job gets its own splitter, so names never carry
	// over between jobs.
	job.SetStatus(StatusSplitting, "splitting")
	outDir := filepath.Join(w.outputRoot, job.ID)
	job.SetOutputDir(outDir)

	s := splitter.New(log, splitter.Options{
		StrictConfidence: w.strictConfidence,
		Atomic:           w.atomic,
		OnPartition:      job.AddFile,
	})
	paths, err := s.SplitDocument(ctx, doc, cfg.Documents, outDir)
	if err != nil {
		w.fail(log, job, "splitting", err, start)
		return
	}

	job.SetStatus(StatusCompleted, "done")
	w.stats.Record(time.Since(start), len(paths), false)
	log.Info("split job complete", "files", len(paths), "pages", doc.PageCount(), "duration_ms", time.Since(start).Milliseconds())
}

func (w *Worker) fail(log *slog.Logger, job *Job, phase string, err error, start time.Time) {
	log.Error("split job failed", "phase", phase, "error", err)
	job.Fail(phase, err)
	w.stats.Record(time.Since(start), 0, true)
}
