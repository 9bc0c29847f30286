package tmpdir

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quay/claircore/toolkit/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Dir is a process-wide test directory.
//
// Use [Shared] to obtain the directory for the current process. [New] is
// available for callers that need a separate, manually managed directory.
type Dir struct {
	path string
	keep atomic.Bool

	once    sync.Once
	removed bool

	// Testing hooks.
	removeAll func(string) error
	attempts  int
	delay     time.Duration
}

var _ interface{ Close() error } = (*Dir)(nil)

// Removal is retried because a file handle released by a just-exited process
// can keep directory entries alive for a moment, notably on Windows.
const (
	removeAttempts = 9
	removeDelay    = 200 * time.Millisecond
)

// New allocates a new directory.
//
// As a side effect, the process's default temporary directory is pointed at
// the new directory and, on unix systems, the process umask is set to 022.
// Neither change is undone by [Dir.Cleanup].
//
// The directory is not kept at cleanup time unless [WithKeep] is passed; the
// [EnvKeep] variable is only consulted by [Shared].
func New(ctx context.Context, opts ...Option) (*Dir, error) {
	var cfg config
	if err := cfg.apply(opts); err != nil {
		return nil, err
	}
	return newDir(ctx, &cfg)
}

func newDir(ctx context.Context, cfg *config) (_ *Dir, err error) {
	ctx, span := tracer.Start(ctx, "New")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "unable to allocate directory")
		}
		span.End()
	}()

	parent := cfg.parent
	if parent == "" {
		parent = envParent()
	}
	ctx = log.With(ctx, "parent", parent)

	name, err := os.MkdirTemp(parent, Prefix)
	if err != nil {
		return nil, &CreateError{Parent: parent, Inner: err}
	}
	defer func() {
		if err != nil {
			os.RemoveAll(name)
		}
	}()

	p, err := canonical(name)
	if err != nil {
		return nil, err
	}
	if err := fixup(ctx, p); err != nil {
		return nil, err
	}
	if err := redirect(p); err != nil {
		return nil, fmt.Errorf("tmpdir: redirecting temporary directory: %w", err)
	}

	d := &Dir{
		path:      p,
		removeAll: os.RemoveAll,
		attempts:  removeAttempts,
		delay:     removeDelay,
	}
	if cfg.keep != nil {
		d.keep.Store(*cfg.keep)
	}
	createdCounter.Inc()
	span.SetAttributes(attribute.String("dir", p))
	slog.DebugContext(ctx, "allocated test directory",
		"dir", p,
		"keep", d.keep.Load())
	return d, nil
}

// Canonical returns the absolute, symlink-free form of "name".
func canonical(name string) (string, error) {
	p, err := filepath.Abs(name)
	if err != nil {
		return "", fmt.Errorf("tmpdir: resolving %q: %w", name, err)
	}
	p, err = filepath.EvalSymlinks(p)
	if err != nil {
		return "", fmt.Errorf("tmpdir: resolving %q: %w", name, err)
	}
	return p, nil
}

// Path returns the canonical path of the directory.
func (d *Dir) Path() string {
	return d.path
}

// SetKeep sets whether [Dir.Cleanup] leaves the directory in place.
//
// Only the value at the time of the first Cleanup call matters.
func (d *Dir) SetKeep(keep bool) {
	d.keep.Store(keep)
}

// Keep reports whether [Dir.Cleanup] will leave the directory in place.
func (d *Dir) Keep() bool {
	return d.keep.Load()
}

// MkdirTemp creates a new, uniquely named directory inside the test
// directory. See [os.MkdirTemp] for the handling of "pattern".
func (d *Dir) MkdirTemp(pattern string) (string, error) {
	return os.MkdirTemp(d.path, pattern)
}

// Cleanup removes the directory tree, unless the directory is being kept.
//
// Removal is retried a bounded number of times. If the tree can't be removed,
// a warning is logged and false is returned; Cleanup never panics because of
// leftover files. Only the first call does any work, later calls report the
// first call's result.
func (d *Dir) Cleanup(ctx context.Context) (removed bool) {
	d.once.Do(func() {
		d.removed = d.cleanup(ctx)
	})
	return d.removed
}

// Close implements [io.Closer] by calling [Dir.Cleanup].
//
// The returned error is always nil.
func (d *Dir) Close() error {
	d.Cleanup(context.Background())
	return nil
}

func (d *Dir) cleanup(ctx context.Context) bool {
	ctx, span := tracer.Start(ctx, "Cleanup",
		trace.WithAttributes(attribute.String("dir", d.path)))
	defer span.End()
	ctx = log.With(ctx, "component", "tmpdir/Dir.Cleanup")

	if d.keep.Load() {
		cleanupCounter.WithLabelValues(resultKept).Inc()
		slog.InfoContext(ctx, "preserving output", "dir", d.path)
		return false
	}

	start := time.Now()
	ok := d.retryRemove(ctx)
	cleanupDuration.Observe(time.Since(start).Seconds())
	if !ok {
		cleanupCounter.WithLabelValues(resultFailed).Inc()
		span.SetStatus(codes.Error, "directory not removed")
		return false
	}
	cleanupCounter.WithLabelValues(resultRemoved).Inc()
	return true
}
