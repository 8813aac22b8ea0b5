package splitter

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/dgallion1/docsplit/internal/document"
	"github.com/dgallion1/docsplit/internal/manifest"
	"github.com/dgallion1/docsplit/internal/naming"
	"github.com/dgallion1/docsplit/internal/pdfdoc"
	"github.com/dgallion1/docsplit/internal/ranges"
)

// Options controls a Splitter.
type Options struct {
	StrictConfidence bool
	Atomic           bool

	// OnPartition, if set, is called with each output path as it is written.
	OnPartition func(path string)
}

// Splitter runs the full split use case: read the configuration, load the
// PDF, validate the declarations against it and partition.
type Splitter struct {
	names *naming.Allocator
	log   *slog.Logger
	opts  Options
}

// New returns a Splitter with its own name allocator.
func New(log *slog.Logger, opts Options) *Splitter {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Splitter{
		names: naming.New(naming.WithLogger(log)),
		log:   log,
		opts:  opts,
	}
}

// Reset clears the name allocator between independent batches.
func (s *Splitter) Reset() {
	s.names.Reset()
}

// Split splits the PDF at pdfPath according to the configuration at cfgPath
// and returns the written paths.
func (s *Splitter) Split(ctx context.Context, pdfPath, cfgPath, outDir string) ([]string, error) {
	s.log.Info("starting PDF split", "input", pdfPath, "config", cfgPath, "output_dir", outDir)

	cfg, err := manifest.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := pdfdoc.Open(pdfPath)
	if err != nil {
		return nil, err
	}
	s.log.Info("loaded input PDF", "pages", doc.PageCount())

	return s.SplitDocument(ctx, doc, cfg.Documents, outDir)
}

// SplitDocument validates set against doc and partitions it into outDir.
func (s *Splitter) SplitDocument(ctx context.Context, doc document.Document, set ranges.Set, outDir string) ([]string, error) {
	if err := ranges.RequireNonEmpty(set); err != nil {
		return nil, err
	}
	if err := ranges.Validate(set, doc.PageCount(), ranges.WithConfidenceCheck(s.opts.StrictConfidence)); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	eng := NewEngine(s.names,
		WithStaging(s.opts.Atomic),
		WithEngineLogger(s.log),
		WithProgress(s.opts.OnPartition),
	)
	paths, err := eng.Partition(doc, set, outDir)
	if err != nil {
		s.log.Error("partition failed", "written", len(paths), "error", err)
		return paths, err
	}
	s.log.Info("split complete", "files", len(paths), "duration_ms", time.Since(start).Milliseconds())
	return paths, nil
}
