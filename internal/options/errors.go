package options

import (
	"errors"
	"fmt"
	"io/fs"
)

// Kind classifies why a plan could not be built.
type Kind int

const (
	// KindConfig covers invalid values: malformed key=value entries, wrong
	// arity, unknown enumeration values, a missing executable.
	KindConfig Kind = iota
	// KindFlag is a flag syntax error reported by the flag parser.
	KindFlag
	// KindIO is an unreadable or unwritable file.
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindFlag:
		return "flag"
	case KindIO:
		return "io"
	default:
		return "config"
	}
}

// Error is returned by Build. Op names the stage that failed and Path the
// file involved, if any.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Kind == KindFlag {
		return fmt.Sprintf("error parsing flags: %v", e.Err)
	}
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// FlagError wraps a flag parser error so it prints like every other plan
// error.
func FlagError(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindFlag, Err: err}
}

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var oe *Error
	return errors.As(err, &oe) && oe.Kind == k
}

func configErrorf(op, format string, args ...any) error {
	return &Error{Kind: KindConfig, Op: op, Err: fmt.Errorf(format, args...)}
}

// wrap attaches op to err. Errors that carry a *fs.PathError become KindIO
// with the offending path recorded.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return &Error{Kind: KindIO, Op: op, Path: pathErr.Path, Err: err}
	}
	return &Error{Kind: KindConfig, Op: op, Err: err}
}
