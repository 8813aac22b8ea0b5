package splitter

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dgallion1/docsplit/internal/docerr"
	"github.com/dgallion1/docsplit/internal/document"
	"github.com/dgallion1/docsplit/internal/naming"
	"github.com/dgallion1/docsplit/internal/ranges"
)

// Engine writes one output document per declaration.
type Engine struct {
	names    *naming.Allocator
	log      *slog.Logger
	staging  bool
	progress func(path string)
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithStaging writes all partitions into a staging directory first and
// publishes them only when every partition succeeded.
func WithStaging(on bool) EngineOption {
	return func(e *Engine) { e.staging = on }
}

// WithEngineLogger sets the engine's logger.
func WithEngineLogger(log *slog.Logger) EngineOption {
	return func(e *Engine) { e.log = log }
}

// WithProgress calls fn with each partition's path once it is in place.
func WithProgress(fn func(path string)) EngineOption {
	return func(e *Engine) { e.progress = fn }
}

// NewEngine returns an Engine that names its outputs with names.
func NewEngine(names *naming.Allocator, opts ...EngineOption) *Engine {
	e := &Engine{
		names: names,
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, fn := range opts {
		fn(e)
	}
	return e
}

// Partition copies each declaration's page span out of doc into its own
// file under outDir and returns the absolute paths, in declaration order.
//
// set must already have passed ranges.Validate against doc.PageCount().
// Without staging, a failure leaves earlier partitions on disk.
func (e *Engine) Partition(doc document.Document, set ranges.Set, outDir string) ([]string, error) {
	dir, err := ensureDir(outDir)
	if err != nil {
		return nil, err
	}
	if e.staging {
		return e.partitionStaged(doc, set, dir)
	}

	paths := make([]string, 0, len(set))
	for _, d := range set {
		b, err := buildPartition(doc, d)
		if err != nil {
			return paths, err
		}
		name := e.names.Allocate(d.Category, d.Confidence, dir)
		path := filepath.Join(dir, name)
		if err := savePartition(b, doc, d, path); err != nil {
			return paths, err
		}
		e.log.Info("created partition", "file", name, "start_page", d.StartPage, "end_page", d.EndPage)
		paths = append(paths, path)
		e.report(path)
	}
	return paths, nil
}

func (e *Engine) partitionStaged(doc document.Document, set ranges.Set, dir string) ([]string, error) {
	stage, err := os.MkdirTemp(dir, ".staging-")
	if err != nil {
		return nil, docerr.Wrap(docerr.KindOutputDirectoryUnavailable, "partition", err, "create staging directory in %s", dir)
	}
	defer os.RemoveAll(stage)

	// Names are allocated against the real directory so the published
	// files match what a non-staged run would have produced.
	names := make([]string, 0, len(set))
	for _, d := range set {
		b, err := buildPartition(doc, d)
		if err != nil {
			return nil, err
		}
		name := e.names.Allocate(d.Category, d.Confidence, dir)
		if err := savePartition(b, doc, d, filepath.Join(stage, name)); err != nil {
			return nil, err
		}
		names = append(names, name)
	}

	paths := make([]string, 0, len(names))
	for i, name := range names {
		dst := filepath.Join(dir, name)
		if err := os.Rename(filepath.Join(stage, name), dst); err != nil {
			return paths, &docerr.Error{
				Kind:  docerr.KindIOFailure,
				Op:    "publish",
				Msg:   fmt.Sprintf("move %s into place", name),
				Spans: []docerr.Span{set[i].Span()},
				Path:  dst,
				Cause: err,
			}
		}
		e.log.Info("created partition", "file", name, "start_page", set[i].StartPage, "end_page", set[i].EndPage)
		paths = append(paths, dst)
		e.report(dst)
	}
	return paths, nil
}

func (e *Engine) report(path string) {
	if e.progress != nil {
		e.progress(path)
	}
}

func partitionError(doc document.Document, d ranges.Declaration, path, msg string, cause error) error {
	return &docerr.Error{
		Kind:  docerr.KindIOFailure,
		Op:    "partition",
		Msg:   fmt.Sprintf("%s for %s", msg, d.Span()),
		Spans: []docerr.Span{d.Span()},
		Limit: doc.PageCount(),
		Path:  path,
		Cause: cause,
	}
}

// buildPartition copies d's pages, converted to 0-based indexes, into a new
// builder.
func buildPartition(doc document.Document, d ranges.Declaration) (document.Builder, error) {
	b := doc.NewBuilder()
	for i := d.StartPage - 1; i <= d.EndPage-1; i++ {
		if err := b.AddPage(i); err != nil {
			return nil, partitionError(doc, d, "", fmt.Sprintf("copy page %d", i+1), err)
		}
	}
	return b, nil
}

// savePartition writes b to path. Existing files are never overwritten, and
// a file that fails to save is removed.
func savePartition(b document.Builder, doc document.Document, d ranges.Declaration, path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return partitionError(doc, d, path, "create output file", err)
	}
	if err := b.Save(f); err != nil {
		f.Close()
		os.Remove(path)
		return partitionError(doc, d, path, "save output", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return partitionError(doc, d, path, "close output", err)
	}
	return nil
}

// ensureDir resolves dir to an absolute path and creates it if absent.
func ensureDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", docerr.Wrap(docerr.KindOutputDirectoryUnavailable, "partition", err, "resolve %s", dir)
	}
	fi, err := os.Stat(abs)
	switch {
	case err == nil && !fi.IsDir():
		return "", &docerr.Error{
			Kind: docerr.KindOutputDirectoryUnavailable,
			Op:   "partition",
			Msg:  "output path exists but is not a directory",
			Path: abs,
		}
	case err == nil:
		return abs, nil
	case !errors.Is(err, os.ErrNotExist):
		return "", docerr.Wrap(docerr.KindOutputDirectoryUnavailable, "partition", err, "stat %s", abs)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", docerr.Wrap(docerr.KindOutputDirectoryUnavailable, "partition", err, "failed to create output directory %s", abs)
	}
	return abs, nil
}
