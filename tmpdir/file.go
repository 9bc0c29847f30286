package tmpdir

import (
	"errors"
	"os"
)

// File is an [*os.File] inside a test directory that is removed from the
// filesystem when closed.
type File struct {
	*os.File
}

// CreateTemp creates a new file inside the test directory. See
// [os.CreateTemp] for the handling of "pattern".
//
// The file is removed by [File.Close], so it doesn't need to wait for
// [Dir.Cleanup].
func (d *Dir) CreateTemp(pattern string) (*File, error) {
	f, err := os.CreateTemp(d.path, pattern)
	if err != nil {
		return nil, err
	}
	return &File{f}, nil
}

// Close closes the file handle and removes the file.
func (f *File) Close() error {
	return errors.Join(f.File.Close(), os.Remove(f.Name()))
}
