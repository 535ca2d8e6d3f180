package fileio

import (
	"math"
	"syscall"
)

// Handle is a native Win32 file handle.
type Handle uintptr

// InvalidHandle is INVALID_HANDLE_VALUE.
const InvalidHandle = ^Handle(0)

// Win32 constants used by the handle backend. They are defined here so the
// backend logic builds and tests on every platform.
const (
	genericRead  uint32 = 0x80000000
	genericWrite uint32 = 0x40000000

	fileShareRead  uint32 = 0x00000001
	fileShareWrite uint32 = 0x00000002

	createAlways uint32 = 2
	openExisting uint32 = 3
	openAlways   uint32 = 4

	fileAttributeNormal uint32 = 0x80

	fileBegin   uint32 = 0
	fileCurrent uint32 = 1
	fileEnd     uint32 = 2
)

// HandleFuncs is the system call table used by the native-handle backend.
//
// Errors should carry the Win32 error code as a [syscall.Errno]. The default
// table, [RealHandleFuncs], calls the Win32 API.
type HandleFuncs interface {
	// CreateFile opens path, a UTF-16 string without a terminating NUL.
	CreateFile(path []uint16, access, share, creation, attrs uint32) (Handle, error)
	Close(h Handle) error
	// Read returns 0 and no error at end of file.
	Read(h Handle, p []byte) (int, error)
	Write(h Handle, p []byte) (int, error)
	// SetFilePointer moves the file pointer and returns its new position.
	SetFilePointer(h Handle, dist int64, method uint32) (int64, error)
	SetEndOfFile(h Handle) error
	IsDirectory(h Handle) (bool, error)
}

// RealHandleFuncs returns the [HandleFuncs] backed by the Win32 API. On other
// platforms every call fails with [errors.ErrUnsupported].
func RealHandleFuncs() HandleFuncs {
	return realHandleFuncs{}
}

// maxHandleRW caps a single ReadFile or WriteFile call, whose length is a
// DWORD.
var maxHandleRW uint64 = math.MaxUint32

type handleCtx struct {
	funcs  HandleFuncs
	h      Handle
	owned  bool
	append bool

	byName   bool
	path     []uint16
	access   uint32
	creation uint32
}

// OpenHandle opens f over an existing handle. If owned is true the handle is
// closed when f is closed. With appendMode set every write first moves to
// the end of the file, since Win32 has no native append mode.
func OpenHandle(f *File, h Handle, owned, appendMode bool) error {
	return OpenHandleWith(RealHandleFuncs(), f, h, owned, appendMode)
}

// OpenHandleWith is [OpenHandle] using funcs for all system calls.
func OpenHandleWith(funcs HandleFuncs, f *File, h Handle, owned, appendMode bool) error {
	ctx := &handleCtx{funcs: funcs, h: h, owned: owned, append: appendMode}

	return openHandleCtx(f, ctx)
}

// OpenHandleFilename opens path in the given mode and attaches the new
// handle to f. The handle is owned by f.
func OpenHandleFilename(f *File, path string, mode OpenMode) error {
	return OpenHandleFilenameWith(RealHandleFuncs(), f, path, mode)
}

// OpenHandleFilenameWith is [OpenHandleFilename] using funcs for all system
// calls.
func OpenHandleFilenameWith(funcs HandleFuncs, f *File, path string, mode OpenMode) error {
	wide, err := stringToUTF16(path)
	if err != nil {
		return f.fail(err)
	}

	return OpenHandleFilenameWWith(funcs, f, wide, mode)
}

// OpenHandleFilenameW is [OpenHandleFilename] for a UTF-16 path.
func OpenHandleFilenameW(f *File, path []uint16, mode OpenMode) error {
	return OpenHandleFilenameWWith(RealHandleFuncs(), f, path, mode)
}

// OpenHandleFilenameWWith is [OpenHandleFilenameW] using funcs for all
// system calls.
func OpenHandleFilenameWWith(funcs HandleFuncs, f *File, path []uint16, mode OpenMode) error {
	access, creation, appendMode, ok := mode.win32()
	if !ok {
		return f.fail(invalidModeError(mode))
	}

	ctx := &handleCtx{
		funcs:    funcs,
		h:        InvalidHandle,
		owned:    true,
		byName:   true,
		append:   appendMode,
		path:     trimNul(path),
		access:   access,
		creation: creation,
	}

	return openHandleCtx(f, ctx)
}

// win32 translates m to the desired access, the creation disposition, and
// whether append has to be emulated.
func (m OpenMode) win32() (access, creation uint32, appendMode, ok bool) {
	switch m {
	case ModeReadOnly:
		return genericRead, openExisting, false, true
	case ModeReadWrite:
		return genericRead | genericWrite, openExisting, false, true
	case ModeWriteOnly:
		return genericWrite, createAlways, false, true
	case ModeReadWriteTrunc:
		return genericRead | genericWrite, createAlways, false, true
	case ModeAppend:
		return genericWrite, openAlways, true, true
	case ModeReadAppend:
		return genericRead | genericWrite, openAlways, true, true
	default:
		return 0, 0, false, false
	}
}

func openHandleCtx(f *File, ctx *handleCtx) error {
	return OpenCallbacks(f, Callbacks{
		Open:     handleOpen,
		Close:    handleClose,
		Read:     handleRead,
		Write:    handleWrite,
		Seek:     handleSeek,
		Truncate: handleTruncate,
	}, ctx)
}

func handleOpen(_ *File, data any) error {
	ctx := data.(*handleCtx)

	if ctx.byName {
		h, err := ctx.funcs.CreateFile(ctx.path, ctx.access,
			fileShareRead|fileShareWrite, ctx.creation, fileAttributeNormal)
		if err != nil {
			return NewPlatformError(StatusFailed, err, "Failed to open file")
		}

		ctx.h = h
	}

	dir, err := ctx.funcs.IsDirectory(ctx.h)
	if err != nil {
		return NewPlatformError(StatusFailed, err, "Failed to stat file")
	}

	if dir {
		return platformError(StatusFailed, syscall.EISDIR, "Cannot open directory")
	}

	return nil
}

func handleClose(_ *File, data any) error {
	ctx := data.(*handleCtx)

	h := ctx.h
	ctx.h = InvalidHandle

	if !ctx.owned || h == InvalidHandle {
		return nil
	}

	if err := ctx.funcs.Close(h); err != nil {
		return NewPlatformError(StatusFailed, err, "Failed to close file")
	}

	return nil
}

func handleRead(_ *File, data any, p []byte) (int, error) {
	ctx := data.(*handleCtx)

	if uint64(len(p)) > maxHandleRW {
		p = p[:maxHandleRW]
	}

	n, err := ctx.funcs.Read(ctx.h, p)
	if err != nil {
		return 0, NewPlatformError(StatusFailed, err, "Failed to read file")
	}

	return n, nil
}

func handleWrite(f *File, data any, p []byte) (int, error) {
	ctx := data.(*handleCtx)

	if ctx.append {
		if _, err := handleSeek(f, data, 0, SeekEnd); err != nil {
			return 0, err
		}
	}

	if uint64(len(p)) > maxHandleRW {
		p = p[:maxHandleRW]
	}

	n, err := ctx.funcs.Write(ctx.h, p)
	if err != nil {
		return 0, NewPlatformError(StatusFailed, err, "Failed to write file")
	}

	return n, nil
}

func handleSeek(_ *File, data any, offset int64, whence Whence) (uint64, error) {
	ctx := data.(*handleCtx)

	var method uint32

	switch whence {
	case SeekSet:
		method = fileBegin
	case SeekCur:
		method = fileCurrent
	case SeekEnd:
		method = fileEnd
	default:
		return 0, NewError(StatusFailed, KindInvalidArgument, "Invalid whence argument: %d", int(whence))
	}

	pos, err := ctx.funcs.SetFilePointer(ctx.h, offset, method)
	if err != nil {
		return 0, NewPlatformError(StatusFailed, err, "Failed to seek file")
	}

	return uint64(pos), nil
}

func handleTruncate(f *File, data any, size uint64) error {
	ctx := data.(*handleCtx)

	if size > math.MaxInt64 {
		return NewError(StatusFailed, KindInvalidArgument, "Invalid truncate size %d", size)
	}

	cur, err := handleSeek(f, data, 0, SeekCur)
	if err != nil {
		return err
	}

	if _, err := handleSeek(f, data, int64(size), SeekSet); err != nil {
		return err
	}

	var result error
	if err := ctx.funcs.SetEndOfFile(ctx.h); err != nil {
		result = NewPlatformError(StatusFailed, err, "Failed to set EOF position")
	}

	if _, err := handleSeek(f, data, int64(cur), SeekSet); err != nil {
		// The position is unknown now.
		return NewPlatformError(StatusFatal, asError(err).Err, "Failed to restore file position")
	}

	return result
}

func trimNul(path []uint16) []uint16 {
	for i, c := range path {
		if c == 0 {
			return path[:i]
		}
	}

	return path
}
