package tmpdir

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Obstruct replaces the removal function with one that does nothing for the
// first "n" calls, then removes for real. The returned function reports the
// number of calls made.
func obstruct(d *Dir, n int) func() int {
	var calls int
	d.removeAll = func(p string) error {
		calls++
		if calls <= n {
			return &fs.PathError{Op: "unlinkat", Path: p, Err: fs.ErrPermission}
		}
		return os.RemoveAll(p)
	}
	d.delay = time.Millisecond
	return func() int { return calls }
}

func TestRetryRemove(t *testing.T) {
	tt := []struct {
		Name     string
		Failures int
		Removed  bool
		Calls    int
		Waits    int
		Warnings int
	}{
		{Name: "Immediate", Failures: 0, Removed: true, Calls: 1},
		{Name: "Eventually", Failures: 3, Removed: true, Calls: 4, Waits: 3},
		{Name: "LastAttempt", Failures: removeAttempts - 1, Removed: true, Calls: removeAttempts, Waits: removeAttempts - 1},
		{Name: "Never", Failures: removeAttempts, Removed: false, Calls: removeAttempts, Waits: removeAttempts - 1, Warnings: 1},
	}
	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			logs := captureLogs(t)
			d := newTestDir(t)
			calls := obstruct(d, tc.Failures)
			failed := testutil.ToFloat64(cleanupCounter.WithLabelValues(resultFailed))

			if got, want := d.Cleanup(t.Context()), tc.Removed; got != want {
				t.Errorf("removed: got: %v, want: %v", got, want)
			}
			if got, want := calls(), tc.Calls; got != want {
				t.Errorf("calls: got: %d, want: %d", got, want)
			}
			_, err := os.Stat(d.Path())
			if got, want := errors.Is(err, fs.ErrNotExist), tc.Removed; got != want {
				t.Errorf("directory gone: got: %v, want: %v", got, want)
			}

			rs := logs()
			var waits int
			for _, r := range filterLevel(rs, slog.LevelInfo) {
				if r.Msg == "waiting to remove temp data" {
					waits++
				}
			}
			if got, want := waits, tc.Waits; got != want {
				t.Errorf("waits: got: %d, want: %d", got, want)
			}
			got := filterLevel(rs, slog.LevelWarn)
			var want []record
			if tc.Warnings != 0 {
				want = append(want, record{
					Level: "WARN",
					Msg:   "failed to completely remove directory",
					Dir:   d.Path(),
				})
			}
			if !cmp.Equal(got, want) {
				t.Error(cmp.Diff(got, want))
			}
			wantFailed := failed
			if !tc.Removed {
				wantFailed++
			}
			if got := testutil.ToFloat64(cleanupCounter.WithLabelValues(resultFailed)); got != wantFailed {
				t.Errorf("failed counter: got: %v, want: %v", got, wantFailed)
			}
		})
	}
}

func TestCleanupOnce(t *testing.T) {
	d := newTestDir(t)
	calls := obstruct(d, 0)
	if !d.Cleanup(t.Context()) {
		t.Error("directory not removed")
	}
	if !d.Cleanup(t.Context()) {
		t.Error("second call reported a different result")
	}
	if got, want := calls(), 1; got != want {
		t.Errorf("calls: got: %d, want: %d", got, want)
	}
}

func TestCleanupBound(t *testing.T) {
	d := newTestDir(t)
	obstruct(d, removeAttempts)
	d.delay = 10 * time.Millisecond
	start := time.Now()
	d.Cleanup(t.Context())
	// Eight sleeps between nine attempts.
	if got, floor := time.Since(start), time.Duration(removeAttempts-1)*d.delay; got < floor {
		t.Errorf("returned too quickly: %v < %v", got, floor)
	}
}
