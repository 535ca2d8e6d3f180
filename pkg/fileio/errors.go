package fileio

import (
	"errors"
	"fmt"
	"syscall"
)

// Sentinel errors.
//
// Every error returned by a [File] operation is an [*Error]. Use
// [errors.Is] with these sentinels to test the kind or the status:
//
//	n, err := f.Read(buf)
//	if errors.Is(err, fileio.ErrRetry) {
//	    // nothing was read, call again
//	}
//
// Platform failures unwrap to the underlying [syscall.Errno], so
// errors.Is(err, syscall.EISDIR) works as well.
var (
	// ErrInvalidArgument matches errors of [KindInvalidArgument].
	ErrInvalidArgument = errors.New("fileio: invalid argument")

	// ErrUnsupported matches errors of [KindUnsupported].
	ErrUnsupported = errors.New("fileio: unsupported")

	// ErrProgrammer matches errors of [KindProgrammerError].
	//
	// This is a programming error: a precondition of the API was violated.
	ErrProgrammer = errors.New("fileio: programmer error")

	// ErrInternal matches errors of [KindInternalError].
	ErrInternal = errors.New("fileio: internal error")

	// ErrRetry matches any error with [StatusRetry].
	ErrRetry = errors.New("fileio: retry")

	// ErrFatal matches any error whose status is [StatusFatal] or worse.
	ErrFatal = errors.New("fileio: fatal")
)

// Error is the failure reported by a [File] operation.
//
// It pairs the disposition ([Status]) with the reason ([Kind] or a raw
// platform code) and a human readable message.
type Error struct {
	Status Status
	Kind   Kind
	Msg    string

	// Err is the underlying platform error, if any.
	Err error

	code int
}

// Error returns the message. Panics if e is nil.
func (e *Error) Error() string {
	return e.Msg
}

// Code returns the error code stored by [File.ErrorCode]: the numeric kind,
// or the negated platform code for [KindPlatform].
func (e *Error) Code() int {
	if e.Kind == KindPlatform {
		return e.code
	}

	return int(e.Kind)
}

// Unwrap returns the platform error if there is one, otherwise the sentinel
// for the error's kind.
func (e *Error) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}

	switch e.Kind {
	case KindInvalidArgument:
		return ErrInvalidArgument
	case KindUnsupported:
		return ErrUnsupported
	case KindProgrammerError:
		return ErrProgrammer
	case KindInternalError:
		return ErrInternal
	default:
		return nil
	}
}

// Is matches the status sentinels [ErrRetry] and [ErrFatal].
func (e *Error) Is(target error) bool {
	switch target {
	case ErrRetry:
		return e.Status == StatusRetry
	case ErrFatal:
		return e.Status.IsFatal()
	case ErrUnsupported:
		return e.Kind == KindUnsupported || errors.Is(e.Err, errors.ErrUnsupported)
	default:
		return false
	}
}

// NewError returns an [*Error] of the given status and kind with a formatted
// message.
func NewError(status Status, kind Kind, format string, args ...any) *Error {
	return &Error{
		Status: status,
		Kind:   kind,
		Msg:    fmt.Sprintf(format, args...),
	}
}

// NewPlatformError returns an [*Error] wrapping a platform failure.
//
// The message is the formatted prefix followed by the cause's text, e.g.
// "Failed to read file: input/output error". If cause carries a
// [syscall.Errno], the error code is its negated value. A cause matching
// [errors.ErrUnsupported] is reported as [KindUnsupported]; any other cause
// without an errno is [KindInternalError].
func NewPlatformError(status Status, cause error, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	if cause != nil {
		msg += ": " + cause.Error()
	}

	return platformError(status, cause, msg)
}

// platformError is like [NewPlatformError] but uses msg verbatim.
func platformError(status Status, cause error, msg string) *Error {
	e := &Error{Status: status, Msg: msg, Err: cause}

	var errno syscall.Errno

	switch {
	case errors.As(cause, &errno):
		e.Kind = KindPlatform
		e.code = -int(errno)
	case errors.Is(cause, errors.ErrUnsupported):
		e.Kind = KindUnsupported
	default:
		e.Kind = KindInternalError
	}

	return e
}

// StatusOf returns the status carried by err: [StatusOK] for nil, the
// error's own status for an [*Error], and [StatusFailed] for anything else.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}

	var fe *Error
	if errors.As(err, &fe) {
		return fe.Status
	}

	return StatusFailed
}

// asError converts any callback error into an [*Error]. Errors that are not
// already an [*Error] are treated as platform failures with [StatusFailed].
func asError(err error) *Error {
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}

	return platformError(StatusFailed, err, err.Error())
}
