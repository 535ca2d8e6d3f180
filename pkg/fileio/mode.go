package fileio

import (
	"os"
	"strconv"
)

// OpenMode selects how a path is opened by the path-based backends.
type OpenMode int

const (
	// ModeReadOnly opens an existing file for reading.
	ModeReadOnly OpenMode = iota
	// ModeReadWrite opens an existing file for reading and writing.
	ModeReadWrite
	// ModeWriteOnly creates or truncates a file for writing.
	ModeWriteOnly
	// ModeReadWriteTrunc creates or truncates a file for reading and writing.
	ModeReadWriteTrunc
	// ModeAppend creates a file if needed; every write goes to the end.
	ModeAppend
	// ModeReadAppend is ModeAppend with reads allowed.
	ModeReadAppend
)

func (m OpenMode) String() string {
	switch m {
	case ModeReadOnly:
		return "read-only"
	case ModeReadWrite:
		return "read-write"
	case ModeWriteOnly:
		return "write-only"
	case ModeReadWriteTrunc:
		return "read-write-trunc"
	case ModeAppend:
		return "append"
	case ModeReadAppend:
		return "read-append"
	default:
		return "OpenMode(" + strconv.Itoa(int(m)) + ")"
	}
}

// ParseOpenMode parses the names produced by [OpenMode.String].
func ParseOpenMode(s string) (OpenMode, bool) {
	for m := ModeReadOnly; m <= ModeReadAppend; m++ {
		if m.String() == s {
			return m, true
		}
	}

	return 0, false
}

// defaultPerm is the permission for files created by the path-based backends,
// before umask.
const defaultPerm = 0o666

// osFlags translates m to [os.OpenFile] flags. Reports false for an unknown
// mode.
func (m OpenMode) osFlags() (int, bool) {
	switch m {
	case ModeReadOnly:
		return os.O_RDONLY, true
	case ModeReadWrite:
		return os.O_RDWR, true
	case ModeWriteOnly:
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC, true
	case ModeReadWriteTrunc:
		return os.O_RDWR | os.O_CREATE | os.O_TRUNC, true
	case ModeAppend:
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND, true
	case ModeReadAppend:
		return os.O_RDWR | os.O_CREATE | os.O_APPEND, true
	default:
		return 0, false
	}
}

func invalidModeError(m OpenMode) *Error {
	return NewError(StatusFatal, KindInvalidArgument, "Invalid mode: %d", int(m))
}
