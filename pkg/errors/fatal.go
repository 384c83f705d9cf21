package errors

import (
	"fmt"
	"runtime/debug"
)

// Fatal aborts the current operation with an internal invariant violation.
// The panic value is an *Error with code ErrCodeInternal so that [Recover]
// can tell it apart from unrelated runtime panics.
func Fatal(format string, args ...any) {
	panic(New(ErrCodeInternal, format, args...))
}

// Recover converts an internal-error panic into a returned error.
// It must be deferred directly:
//
//	defer errors.Recover(&err)
//
// Panics that are not *Error values are re-raised unchanged.
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	e, ok := r.(*Error)
	if !ok {
		panic(r)
	}
	if e.Code == ErrCodeInternal && e.Cause == nil {
		e.Cause = fmt.Errorf("stack:\n%s", debug.Stack())
	}
	*errp = e
}
