package test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/quay/claircore/toolkit/log"
)

var (
	// Setup installs the routing handler as the default exactly once.
	setup = sync.OnceFunc(func() {
		slog.SetDefault(slog.New(new(handler)))
	})

	// Fallback receives records logged with a Context that carries no
	// Handler, so that messages from teardown code aren't lost.
	fallback = sync.OnceValue(func() slog.Handler {
		return slog.NewTextHandler(os.Stderr, nil)
	})

	// Getwd caches [os.Getwd], since it may be called for every [slog.Record].
	getwd = sync.OnceValue(func() string {
		dir, err := os.Getwd()
		if err != nil {
			panic(err)
		}
		return dir
	})

	// Modname caches the main module name, since it may be needed for every
	// [slog.Record].
	modname = sync.OnceValue(func() string {
		if info, ok := debug.ReadBuildInfo(); ok {
			return info.Main.Path + "/"
		}
		return ""
	})
)

type ctxKey struct{}

var logHandler ctxKey

var _ slog.Handler = (handler)(nil)

// DeferredOp is a closure used with [handler] so that
// [slog.Handler.WithAttrs] and [slog.Handler.WithGroup] can be applied once
// the concrete [slog.Handler] is pulled out of a [context.Context].
type deferredOp func(slog.Handler) slog.Handler

// Handler implements [slog.Handler] by handing records to the [slog.Handler]
// stored in the [context.Context]. Records logged with a Context that has no
// Handler go to standard error.
type handler []deferredOp

func (h handler) lookup(ctx context.Context) slog.Handler {
	if lh, ok := ctx.Value(logHandler).(slog.Handler); ok {
		return lh
	}
	return fallback()
}

// Enabled implements [slog.Handler].
func (h handler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.lookup(ctx).Enabled(ctx, l)
}

// Handle implements [slog.Handler].
func (h handler) Handle(ctx context.Context, r slog.Record) error {
	lh := h.lookup(ctx)
	for _, op := range h {
		lh = op(lh)
	}
	if v, ok := ctx.Value(log.AttrsKey).(slog.Value); ok {
		r.AddAttrs(v.Group()...)
	}
	return lh.Handle(ctx, r)
}

// WithAttrs implements [slog.Handler].
func (h handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return append(h, func(h slog.Handler) slog.Handler {
		return h.WithAttrs(attrs)
	})
}

// WithGroup implements [slog.Handler].
func (h handler) WithGroup(name string) slog.Handler {
	return append(h, func(h slog.Handler) slog.Handler {
		return h.WithGroup(name)
	})
}

func parentContext(parent []context.Context) context.Context {
	if len(parent) > 0 {
		return parent[0]
	}
	// Don't use the test Context: callers should pass that in if that's what
	// they want.
	return context.Background()
}

// Logging returns a [context.Context] that's set up to make the default
// [slog.Logger] write to the output of the provided [testing.TB].
func Logging(t testing.TB, parent ...context.Context) context.Context {
	setup()
	start := time.Now()
	h := slog.NewTextHandler(t.Output(), &slog.HandlerOptions{
		AddSource: true,
		Level:     slog.LevelDebug,
		ReplaceAttr: func(g []string, a slog.Attr) slog.Attr {
			if g != nil {
				return a
			}
			switch a.Key {
			case "time":
				return slog.String("time", "+"+time.Since(start).String())
			case "source":
				return slog.String("source", shortSource(a.Value.Any().(*slog.Source)))
			}
			return a
		},
	})
	return context.WithValue(parentContext(parent), logHandler, h)
}

// CaptureLogs returns a [context.Context] that's set up to make the default
// [slog.Logger] write JSON records to "w", for tests that need to inspect
// what was logged.
func CaptureLogs(w io.Writer, parent ...context.Context) context.Context {
	setup()
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(g []string, a slog.Attr) slog.Attr {
			if g == nil && a.Key == "time" {
				return slog.Attr{}
			}
			return a
		},
	})
	return context.WithValue(parentContext(parent), logHandler, h)
}

func shortSource(src *slog.Source) string {
	if src.Function != "" {
		return strings.TrimPrefix(src.Function, modname())
	}
	f := src.File
	if r, err := filepath.Rel(getwd(), f); err == nil && r != "" {
		f = r
	}
	return fmt.Sprintf("%s:%d", f, src.Line)
}
