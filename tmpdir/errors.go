package tmpdir

import (
	"strconv"
	"strings"
)

// CreateError is returned by [New] and [Shared] when the filesystem refuses
// to create the directory.
//
// The underlying error is available via [errors.Unwrap], so checks like
// errors.Is(err, fs.ErrPermission) work as expected.
type CreateError struct {
	Parent string
	Inner  error
}

var (
	_ error                       = (*CreateError)(nil)
	_ interface{ Unwrap() error } = (*CreateError)(nil)
)

// Error implements error.
func (e *CreateError) Error() string {
	var b strings.Builder
	b.WriteString("tmpdir: unable to create directory in ")
	b.WriteString(strconv.Quote(e.Parent))
	if e.Inner != nil {
		b.WriteString(": ")
		b.WriteString(e.Inner.Error())
	}
	return b.String()
}

// Unwrap enables [errors.Unwrap].
func (e *CreateError) Unwrap() error {
	return e.Inner
}
