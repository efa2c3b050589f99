package ai

import "fmt"

// Kind classifies generator failures.
type Kind string

const (
	KindTimeout     Kind = "timeout"
	KindUnavailable Kind = "unavailable"
	KindRateLimited Kind = "rate_limited"
	KindEmpty       Kind = "empty"
)

// Error is the typed failure returned by generators.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generator %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("generator %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same Kind, so errors.Is(err, ErrTimeout) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrTimeout     = &Error{Kind: KindTimeout}
	ErrUnavailable = &Error{Kind: KindUnavailable}
	ErrRateLimited = &Error{Kind: KindRateLimited}
	ErrEmpty       = &Error{Kind: KindEmpty}
)
