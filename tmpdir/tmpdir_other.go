//go:build !unix

package tmpdir

import (
	"context"
	"errors"
	"os"
)

func envParent() string {
	return os.TempDir()
}

// Fixup is a no-op: there's no group ownership or umask to adjust.
func fixup(_ context.Context, _ string) error { return nil }

// Redirect sets both variables consulted by [os.TempDir] on Windows.
func redirect(dir string) error {
	return errors.Join(
		os.Setenv("TMP", dir),
		os.Setenv("TEMP", dir),
	)
}
