package tmpdir

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"
)

// RetryRemove tries to remove the directory tree up to d.attempts times,
// sleeping d.delay between attempts.
//
// Errors from the removal itself are ignored: whether the directory is still
// present afterwards is the only thing checked.
func (d *Dir) retryRemove(ctx context.Context) bool {
	for i := 1; i <= d.attempts; i++ {
		removeAttemptsCounter.Inc()
		err := d.removeAll(d.path)
		if !exists(d.path) {
			return true
		}
		if i == d.attempts {
			break
		}
		slog.InfoContext(ctx, "waiting to remove temp data",
			"dir", d.path,
			"attempt", i,
			"reason", err)
		time.Sleep(d.delay)
	}
	slog.WarnContext(ctx, "failed to completely remove directory",
		"dir", d.path,
		"attempts", d.attempts)
	return false
}

// Exists reports whether anything is present at "p".
//
// Any error other than "not exist" is reported as present.
func exists(p string) bool {
	_, err := os.Lstat(p)
	return !errors.Is(err, fs.ErrNotExist)
}
