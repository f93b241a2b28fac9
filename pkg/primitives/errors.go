package primitives

import "fmt"

// Kind classifies an error by the policy that should apply to it, per the
// error handling design: OS errors leave the session usable, parse errors
// are fatal for the offending object, lookup errors are recoverable, and
// invariant violations indicate a programming mistake in the caller.
type Kind int

const (
	KindOS Kind = iota
	KindParse
	KindLookup
	KindInvariant
	KindTraceeState
)

func (k Kind) String() string {
	switch k {
	case KindOS:
		return "os"
	case KindParse:
		return "parse"
	case KindLookup:
		return "lookup"
	case KindInvariant:
		return "invariant"
	case KindTraceeState:
		return "tracee-state"
	default:
		return "unknown"
	}
}

// Error is the error type produced throughout tracewell. Component carries
// the originating subsystem (e.g. "elf", "dwarf", "process") so a caller
// at the target layer can decide whether the whole session must abort.
type Error struct {
	Kind      Kind
	Component string
	Path      string
	Err       error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %v (%s)", e.Component, e.Kind, e.Err, e.Path)
	}
	return fmt.Sprintf("%s: %s: %v", e.Component, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func Wrap(kind Kind, component string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Component: component, Err: err}
}

func WrapPath(kind Kind, component, path string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Component: component, Path: path, Err: err}
}

func Newf(kind Kind, component, format string, args ...any) error {
	return &Error{Kind: kind, Component: component, Err: fmt.Errorf(format, args...)}
}

// Fatal reports whether an error of this kind should abort the debugging
// session entirely rather than being surfaced as a recoverable failure.
func (e *Error) Fatal() bool {
	return e.Kind == KindParse || e.Kind == KindInvariant
}

// IsFatal reports whether err (or anything it wraps) carries a fatal Kind.
func IsFatal(err error) bool {
	var te *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			te = e
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return te != nil && te.Fatal()
}
