package tmpdir

import (
	"fmt"
	"io/fs"
	"os"
)

const (
	// EnvKeep is the environment variable consulted by [Shared] when no
	// [WithKeep] option is provided. A value of "1" keeps the directory.
	EnvKeep = `TESTTMP_KEEP`

	// Prefix is the name prefix of every allocated directory.
	Prefix = `testtmp`
)

type config struct {
	parent string
	keep   *bool
}

// Option is the type for configuring [New] and [Shared].
type Option func(*config) error

// WithParent creates the directory inside "dir" instead of the location
// found in the environment.
func WithParent(dir string) Option {
	return func(c *config) error {
		if dir == "" {
			return fmt.Errorf("tmpdir: empty parent directory: %w", fs.ErrInvalid)
		}
		c.parent = dir
		return nil
	}
}

// WithKeep sets whether the directory is left in place by [Dir.Cleanup].
func WithKeep(keep bool) Option {
	return func(c *config) error {
		c.keep = &keep
		return nil
	}
}

func (c *config) apply(opts []Option) error {
	for _, f := range opts {
		if err := f(c); err != nil {
			return err
		}
	}
	return nil
}

// EnvKeepSet reports whether [EnvKeep] asks for the directory to be kept.
func envKeepSet() bool {
	return os.Getenv(EnvKeep) == "1"
}
