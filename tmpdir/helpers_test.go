package tmpdir

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
)

// PreserveEnv arranges for the variables touched by [redirect] to be
// restored when the test finishes, so later tests don't end up with a
// temporary directory that's already been removed.
func preserveEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"TMPDIR", "TMP", "TEMP"} {
		v, ok := os.LookupEnv(k)
		t.Setenv(k, v)
		if !ok {
			os.Unsetenv(k)
		}
	}
}

// NewTestDir allocates a [Dir] inside the test's temporary directory.
func newTestDir(t *testing.T, opts ...Option) *Dir {
	t.Helper()
	parent := t.TempDir()
	preserveEnv(t)
	d, err := New(t.Context(), append([]Option{WithParent(parent)}, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

type record struct {
	Level string `json:"level"`
	Msg   string `json:"msg"`
	Dir   string `json:"dir"`
}

// CaptureLogs swaps the default logger for one writing JSON into the
// returned function's buffer. The returned function decodes everything
// logged so far.
//
// The handler is a plain [slog.JSONHandler], so attributes carried only in
// the Context don't show up.
func captureLogs(t *testing.T) func() []record {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	h := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	slog.SetDefault(slog.New(h))
	t.Cleanup(func() { slog.SetDefault(prev) })

	return func() (out []record) {
		dec := json.NewDecoder(&buf)
		for {
			var r record
			err := dec.Decode(&r)
			switch {
			case err == nil:
			case errors.Is(err, io.EOF):
				return out
			default:
				t.Error(err)
				return out
			}
			out = append(out, r)
		}
	}
}

func filterLevel(rs []record, lvl slog.Level) (out []record) {
	for _, r := range rs {
		if r.Level == lvl.String() {
			out = append(out, r)
		}
	}
	return out
}
