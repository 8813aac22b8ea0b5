package naming

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Extension is the suffix of every allocated name.
const Extension = ".pdf"

// Allocator issues unique, filesystem-safe filenames. It remembers what it
// issued per (directory, base name) and also consults the directory on disk.
//
// An Allocator is not safe for concurrent use. Give each job its own.
type Allocator struct {
	log    *slog.Logger
	exists func(path string) bool

	next   map[string]int      // base key -> next suffix index to probe
	issued map[string]struct{} // every key handed out
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithLogger sets the logger used for debug output.
func WithLogger(log *slog.Logger) Option {
	return func(a *Allocator) { a.log = log }
}

// WithExistsFunc replaces the on-disk existence probe.
func WithExistsFunc(fn func(path string) bool) Option {
	return func(a *Allocator) { a.exists = fn }
}

// New returns an Allocator with empty state.
func New(opts ...Option) *Allocator {
	a := &Allocator{
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		exists: fileExists,
		next:   make(map[string]int),
		issued: make(map[string]struct{}),
	}
	for _, fn := range opts {
		fn(a)
	}
	return a
}

// Allocate returns a filename (not a path) for label and confidence that
// collides neither with a file in dir nor with a name this Allocator
// already issued for dir. It never fails.
func (a *Allocator) Allocate(label string, confidence int, dir string) string {
	base := fmt.Sprintf("%s_%d%s", Sanitize(label), confidence, Extension)
	dirKey := normalizeDir(dir)
	key := makeKey(dirKey, base)

	if _, seen := a.next[key]; !seen && !a.taken(dir, dirKey, base) {
		a.next[key] = 1
		a.issued[key] = struct{}{}
		a.log.Debug("allocated filename", "file", base, "category", label, "confidence", confidence)
		return base
	}

	stem := strings.TrimSuffix(base, Extension)
	n, ok := a.next[key]
	if !ok {
		n = 1
	}
	var name string
	for {
		name = fmt.Sprintf("%s_%d%s", stem, n, Extension)
		n++
		if !a.taken(dir, dirKey, name) {
			break
		}
	}
	a.next[key] = n
	a.issued[makeKey(dirKey, name)] = struct{}{}
	a.log.Debug("allocated filename", "file", name, "category", label, "confidence", confidence, "collision", true)
	return name
}

// Reset forgets every issued name. Disk state is consulted afresh on the
// next Allocate.
func (a *Allocator) Reset() {
	clear(a.next)
	clear(a.issued)
}

// Len returns the number of names issued since construction or Reset.
func (a *Allocator) Len() int {
	return len(a.issued)
}

func (a *Allocator) taken(dir, dirKey, name string) bool {
	key := makeKey(dirKey, name)
	if _, ok := a.issued[key]; ok {
		return true
	}
	if _, ok := a.next[key]; ok {
		return true
	}
	return a.exists(filepath.Join(dir, name))
}

func normalizeDir(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return filepath.Clean(dir)
}

func makeKey(dir, name string) string {
	return dir + string(filepath.Separator) + name
}

// fileExists reports whether path names something on disk. Any Lstat error,
// ENAMETOOLONG included, counts as absent; the O_EXCL create reports it.
func fileExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
