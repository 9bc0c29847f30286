package tmpdir

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestCreateTemp(t *testing.T) {
	d := newTestDir(t)
	defer d.Cleanup(t.Context())

	f, err := d.CreateTemp("TestCreateTemp.")
	if err != nil {
		t.Fatal(err)
	}
	name := f.Name()
	if got, want := filepath.Dir(name), d.Path(); got != want {
		t.Errorf("got: %q, want: %q", got, want)
	}
	const x = `testing`
	if _, err := io.WriteString(f, x); err != nil {
		t.Error(err)
	}
	b, err := os.ReadFile(name)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(b); got != x {
		t.Errorf("got: %q, want: %q", got, x)
	}

	if err := f.Close(); err != nil {
		t.Error(err)
	}
	if _, err := os.Stat(name); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("unexpected error: %v", err)
	}
}
