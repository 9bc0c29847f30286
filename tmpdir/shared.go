package tmpdir

import (
	"context"
	"sync"
)

// SharedDir holds a once-allocated [Dir].
type sharedDir struct {
	once sync.Once
	dir  *Dir
	err  error
}

var shared sharedDir

// Shared returns the directory for the current process, allocating it on the
// first call.
//
// Only the first call's options are used; later calls return the same *Dir
// (or the same error) regardless of their arguments. If [WithKeep] isn't
// passed on the first call, the [EnvKeep] environment variable decides.
//
// Shared is safe to call from multiple goroutines.
func Shared(ctx context.Context, opts ...Option) (*Dir, error) {
	return shared.get(ctx, opts)
}

func (s *sharedDir) get(ctx context.Context, opts []Option) (*Dir, error) {
	s.once.Do(func() {
		var cfg *config
		cfg, s.err = sharedConfig(opts)
		if s.err != nil {
			return
		}
		s.dir, s.err = newDir(ctx, cfg)
	})
	return s.dir, s.err
}

func sharedConfig(opts []Option) (*config, error) {
	var cfg config
	if err := cfg.apply(opts); err != nil {
		return nil, err
	}
	if cfg.keep == nil {
		keep := envKeepSet()
		cfg.keep = &keep
	}
	return &cfg, nil
}
