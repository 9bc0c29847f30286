//go:build unix

package tmpdir

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"
)

const (
	defaultParent = `/tmp`
	umask         = 0o022
)

// EnvParent returns the parent directory named by the environment, or
// [defaultParent].
func envParent() string {
	for _, k := range []string{"TMPDIR", "TMP"} {
		if d, ok := os.LookupEnv(k); ok && d != "" {
			return d
		}
	}
	return defaultParent
}

// Fixup sets the group of "dir" to the effective gid and sets the process
// umask.
//
// Some platforms ignore the setgid bit on a directory when the user isn't a
// member of the directory's group, and some environments run with a umask
// that leaves state directories too open.
//
// A permission error from the group change is logged and otherwise ignored.
func fixup(ctx context.Context, dir string) error {
	gid := unix.Getegid()
	switch err := os.Chown(dir, -1, gid); {
	case err == nil:
	case errors.Is(err, fs.ErrPermission):
		slog.WarnContext(ctx, "unable to change group ownership",
			"dir", dir,
			"gid", gid,
			"reason", err)
	default:
		return fmt.Errorf("tmpdir: setting group of %q: %w", dir, err)
	}
	unix.Umask(umask)
	return nil
}

func redirect(dir string) error {
	return os.Setenv("TMPDIR", dir)
}
