package fileio

import "strconv"

// Status is the disposition of a File operation.
//
// Values are ordered by severity: the lower the value, the worse the outcome.
// Anything above [StatusFatal] leaves the handle usable; anything at or below
// [StatusFatal] makes it unusable except for [File.Close].
type Status int

const (
	// StatusOK means the operation succeeded.
	StatusOK Status = 0
	// StatusRetry means the call was interrupted before any data was
	// transferred. Repeating the same call is safe.
	StatusRetry Status = -1
	// StatusUnsupported means the backend does not implement the operation.
	StatusUnsupported Status = -2
	// StatusWarn means the operation completed with a non-fatal problem.
	StatusWarn Status = -3
	// StatusFailed means the operation failed but the handle is still usable.
	StatusFailed Status = -4
	// StatusFatal means the handle can no longer be used.
	StatusFatal Status = -5
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusRetry:
		return "RETRY"
	case StatusUnsupported:
		return "UNSUPPORTED"
	case StatusWarn:
		return "WARN"
	case StatusFailed:
		return "FAILED"
	case StatusFatal:
		return "FATAL"
	default:
		return "Status(" + strconv.Itoa(int(s)) + ")"
	}
}

// IsFatal reports whether s renders a handle unusable.
func (s Status) IsFatal() bool {
	return s <= StatusFatal
}

// Worst returns the most severe of the given statuses, or [StatusOK] if none
// are given.
func Worst(statuses ...Status) Status {
	worst := StatusOK
	for _, s := range statuses {
		if s < worst {
			worst = s
		}
	}

	return worst
}

// Kind describes why an operation failed.
//
// The non-negative kinds share their numeric values with [File.ErrorCode], so
// a code of 1 is always [KindInvalidArgument]. Failures carrying a raw
// platform error code use [KindPlatform]; their [File.ErrorCode] is the
// negated errno (or negated Win32 error).
type Kind int

const (
	KindNone            Kind = 0
	KindInvalidArgument Kind = 1
	KindUnsupported     Kind = 2
	KindProgrammerError Kind = 3
	KindInternalError   Kind = 4

	// KindPlatform marks an error that carries a platform error code.
	KindPlatform Kind = -1
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "NONE"
	case KindInvalidArgument:
		return "INVALID_ARGUMENT"
	case KindUnsupported:
		return "UNSUPPORTED"
	case KindProgrammerError:
		return "PROGRAMMER_ERROR"
	case KindInternalError:
		return "INTERNAL_ERROR"
	case KindPlatform:
		return "PLATFORM"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// State is the lifecycle state of a [File].
//
// States are bit flags so a precondition can accept a set of states.
type State uint16

const (
	StateNew    State = 1 << 0
	StateOpened State = 1 << 1
	StateClosed State = 1 << 2
	StateFatal  State = 1 << 3
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateOpened:
		return "OPENED"
	case StateClosed:
		return "CLOSED"
	case StateFatal:
		return "FATAL"
	default:
		return "State(0x" + strconv.FormatUint(uint64(s), 16) + ")"
	}
}

// Whence selects the reference point of [File.Seek]. The values match
// [io.SeekStart], [io.SeekCurrent] and [io.SeekEnd].
type Whence int

const (
	SeekSet Whence = 0
	SeekCur Whence = 1
	SeekEnd Whence = 2
)

func (w Whence) String() string {
	switch w {
	case SeekSet:
		return "SET"
	case SeekCur:
		return "CUR"
	case SeekEnd:
		return "END"
	default:
		return "Whence(" + strconv.Itoa(int(w)) + ")"
	}
}

func (w Whence) valid() bool {
	return w == SeekSet || w == SeekCur || w == SeekEnd
}
