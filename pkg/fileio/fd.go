package fileio

import (
	"errors"
	"io/fs"
	"syscall"
)

// FdFuncs is the system call table used by the descriptor backend.
//
// Errors should carry a [syscall.Errno] so that the resulting [*Error] has a
// platform code. The default table, [RealFdFuncs], calls the operating system
// directly.
type FdFuncs interface {
	// Open opens path with the given os.O_* flags and permission bits and
	// returns the new descriptor.
	Open(path string, flags int, perm uint32) (int, error)
	// Fstat returns the mode of the file behind fd.
	Fstat(fd int) (fs.FileMode, error)
	Close(fd int) error
	Ftruncate(fd int, size int64) error
	Seek(fd int, offset int64, whence int) (int64, error)
	Read(fd int, p []byte) (int, error)
	Write(fd int, p []byte) (int, error)
}

// RealFdFuncs returns the [FdFuncs] backed by the operating system. On
// platforms without POSIX descriptors every call fails with
// [errors.ErrUnsupported].
func RealFdFuncs() FdFuncs {
	return realFdFuncs{}
}

// maxRW caps a single read or write system call.
const maxRW = 1 << 30

type fdCtx struct {
	funcs FdFuncs
	fd    int
	owned bool

	// byName is set when the backend opens path itself.
	byName bool
	path   string
	flags  int
}

// OpenFd opens f over an existing descriptor. If owned is true the
// descriptor is closed when f is closed.
func OpenFd(f *File, fd int, owned bool) error {
	return OpenFdWith(RealFdFuncs(), f, fd, owned)
}

// OpenFdWith is [OpenFd] using funcs for all system calls.
func OpenFdWith(funcs FdFuncs, f *File, fd int, owned bool) error {
	ctx := &fdCtx{funcs: funcs, fd: fd, owned: owned}

	return openFdCtx(f, ctx)
}

// OpenFdFilename opens path in the given mode and attaches the new descriptor
// to f. The descriptor is owned by f.
func OpenFdFilename(f *File, path string, mode OpenMode) error {
	return OpenFdFilenameWith(RealFdFuncs(), f, path, mode)
}

// OpenFdFilenameWith is [OpenFdFilename] using funcs for all system calls.
func OpenFdFilenameWith(funcs FdFuncs, f *File, path string, mode OpenMode) error {
	flags, ok := mode.osFlags()
	if !ok {
		return f.fail(invalidModeError(mode))
	}

	ctx := &fdCtx{funcs: funcs, fd: -1, owned: true, byName: true, path: path, flags: flags}

	return openFdCtx(f, ctx)
}

// OpenFdFilenameW is [OpenFdFilename] for a UTF-16 path.
func OpenFdFilenameW(f *File, path []uint16, mode OpenMode) error {
	return OpenFdFilenameWWith(RealFdFuncs(), f, path, mode)
}

// OpenFdFilenameWWith is [OpenFdFilenameW] using funcs for all system calls.
func OpenFdFilenameWWith(funcs FdFuncs, f *File, path []uint16, mode OpenMode) error {
	name, err := utf16ToString(path)
	if err != nil {
		return f.fail(err)
	}

	return OpenFdFilenameWith(funcs, f, name, mode)
}

func openFdCtx(f *File, ctx *fdCtx) error {
	return OpenCallbacks(f, Callbacks{
		Open:     fdOpen,
		Close:    fdClose,
		Read:     fdRead,
		Write:    fdWrite,
		Seek:     fdSeek,
		Truncate: fdTruncate,
	}, ctx)
}

func fdOpen(_ *File, data any) error {
	ctx := data.(*fdCtx)

	if ctx.byName {
		fd, err := ctx.funcs.Open(ctx.path, ctx.flags, defaultPerm)
		if err != nil {
			return NewPlatformError(StatusFailed, err, "Failed to open file")
		}

		ctx.fd = fd
	}

	mode, err := ctx.funcs.Fstat(ctx.fd)
	if err != nil {
		return NewPlatformError(StatusFailed, err, "Failed to stat file")
	}

	if mode.IsDir() {
		return platformError(StatusFailed, syscall.EISDIR, "Cannot open directory")
	}

	return nil
}

func fdClose(_ *File, data any) error {
	ctx := data.(*fdCtx)

	fd := ctx.fd
	ctx.fd = -1

	if !ctx.owned || fd < 0 {
		return nil
	}

	if err := ctx.funcs.Close(fd); err != nil {
		return NewPlatformError(StatusFailed, err, "Failed to close file")
	}

	return nil
}

func fdRead(_ *File, data any, p []byte) (int, error) {
	ctx := data.(*fdCtx)

	if len(p) > maxRW {
		p = p[:maxRW]
	}

	n, err := ctx.funcs.Read(ctx.fd, p)
	if err != nil {
		return 0, NewPlatformError(retryStatus(err), err, "Failed to read file")
	}

	return n, nil
}

func fdWrite(_ *File, data any, p []byte) (int, error) {
	ctx := data.(*fdCtx)

	if len(p) > maxRW {
		p = p[:maxRW]
	}

	n, err := ctx.funcs.Write(ctx.fd, p)
	if err != nil {
		return 0, NewPlatformError(retryStatus(err), err, "Failed to write file")
	}

	return n, nil
}

func fdSeek(_ *File, data any, offset int64, whence Whence) (uint64, error) {
	ctx := data.(*fdCtx)

	pos, err := ctx.funcs.Seek(ctx.fd, offset, int(whence))
	if err != nil {
		return 0, NewPlatformError(StatusFailed, err, "Failed to seek file")
	}

	return uint64(pos), nil
}

func fdTruncate(_ *File, data any, size uint64) error {
	ctx := data.(*fdCtx)

	if size > 1<<63-1 {
		return NewError(StatusFailed, KindInvalidArgument, "Invalid truncate size %d", size)
	}

	if err := ctx.funcs.Ftruncate(ctx.fd, int64(size)); err != nil {
		return NewPlatformError(StatusFailed, err, "Failed to truncate file")
	}

	return nil
}

// retryStatus maps an interrupted call to [StatusRetry] and anything else to
// [StatusFailed].
func retryStatus(err error) Status {
	if errors.Is(err, syscall.EINTR) {
		return StatusRetry
	}

	return StatusFailed
}
