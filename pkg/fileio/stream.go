package fileio

import (
	"errors"
	"io"
	"io/fs"
	"runtime"
	"syscall"
)

// Stream is an open file as seen by the stream backend. It is satisfied by
// [os.File].
//
// Read must follow [io.Reader]: at end of stream it returns 0 and [io.EOF].
// Fd returns ^uintptr(0) if the stream has no descriptor; such streams cannot
// be truncated.
type Stream interface {
	io.ReadWriteCloser
	io.Seeker

	Fd() uintptr
	Stat() (fs.FileInfo, error)
	Truncate(size int64) error
}

// StreamFS opens streams by path. See [RealStreamFS].
type StreamFS interface {
	// OpenFile opens path with os.O_* flags. See [os.OpenFile].
	OpenFile(path string, flag int, perm fs.FileMode) (Stream, error)
}

// noFd is what [Stream.Fd] returns for a stream without a descriptor.
const noFd = ^uintptr(0)

type streamCtx struct {
	fsys    StreamFS
	s       Stream
	owned   bool
	canSeek bool

	byName bool
	path   string
	flags  int
}

// OpenStream opens f over an already open stream. If owned is true the stream
// is closed when f is closed.
func OpenStream(f *File, s Stream, owned bool) error {
	if s == nil {
		return f.fail(NewError(StatusFatal, KindProgrammerError, "OpenStream: stream is nil"))
	}

	ctx := &streamCtx{s: s, owned: owned}

	return openStreamCtx(f, ctx)
}

// OpenStreamFilename opens path in the given mode through [RealStreamFS] and
// attaches the stream to f. The stream is owned by f.
func OpenStreamFilename(f *File, path string, mode OpenMode) error {
	return OpenStreamFilenameWith(RealStreamFS(), f, path, mode)
}

// OpenStreamFilenameWith is [OpenStreamFilename] opening through fsys.
func OpenStreamFilenameWith(fsys StreamFS, f *File, path string, mode OpenMode) error {
	flags, ok := mode.osFlags()
	if !ok {
		return f.fail(invalidModeError(mode))
	}

	ctx := &streamCtx{fsys: fsys, owned: true, byName: true, path: path, flags: flags}

	return openStreamCtx(f, ctx)
}

// OpenStreamFilenameW is [OpenStreamFilename] for a UTF-16 path.
func OpenStreamFilenameW(f *File, path []uint16, mode OpenMode) error {
	return OpenStreamFilenameWWith(RealStreamFS(), f, path, mode)
}

// OpenStreamFilenameWWith is [OpenStreamFilenameW] opening through fsys.
func OpenStreamFilenameWWith(fsys StreamFS, f *File, path []uint16, mode OpenMode) error {
	name, err := utf16ToString(path)
	if err != nil {
		return f.fail(err)
	}

	return OpenStreamFilenameWith(fsys, f, name, mode)
}

func openStreamCtx(f *File, ctx *streamCtx) error {
	return OpenCallbacks(f, Callbacks{
		Open:     streamOpen,
		Close:    streamClose,
		Read:     streamRead,
		Write:    streamWrite,
		Seek:     streamSeek,
		Truncate: streamTruncate,
	}, ctx)
}

func streamOpen(_ *File, data any) error {
	ctx := data.(*streamCtx)

	if ctx.byName {
		s, err := ctx.fsys.OpenFile(ctx.path, ctx.flags, defaultPerm)
		if err != nil {
			return NewPlatformError(StatusFailed, err, "Failed to open file")
		}

		ctx.s = s
	}

	if ctx.s.Fd() == noFd {
		return nil
	}

	info, err := ctx.s.Stat()
	if err != nil {
		return NewPlatformError(StatusFailed, err, "Failed to stat file")
	}

	mode := info.Mode()
	if mode.IsDir() {
		return platformError(StatusFailed, syscall.EISDIR, "Cannot open directory")
	}

	// Some descriptors accept a relative seek without being seekable, so
	// seekability is decided by the file type.
	ctx.canSeek = mode.IsRegular() || (runtime.GOOS == "linux" && isBlockDevice(mode))

	return nil
}

func streamClose(_ *File, data any) error {
	ctx := data.(*streamCtx)

	s := ctx.s
	ctx.s = nil

	if !ctx.owned || s == nil {
		return nil
	}

	if err := s.Close(); err != nil {
		return NewPlatformError(StatusFailed, err, "Failed to close file")
	}

	return nil
}

func streamRead(_ *File, data any, p []byte) (int, error) {
	ctx := data.(*streamCtx)

	if len(p) > maxRW {
		p = p[:maxRW]
	}

	n, err := ctx.s.Read(p)

	// Report the bytes now; a persistent error shows up on the next call.
	if n > 0 || err == nil || errors.Is(err, io.EOF) {
		return n, nil
	}

	return 0, NewPlatformError(retryStatus(err), err, "Failed to read file")
}

func streamWrite(_ *File, data any, p []byte) (int, error) {
	ctx := data.(*streamCtx)

	if len(p) > maxRW {
		p = p[:maxRW]
	}

	n, err := ctx.s.Write(p)
	if n > 0 || err == nil {
		return n, nil
	}

	return 0, NewPlatformError(retryStatus(err), err, "Failed to write file")
}

func streamSeek(_ *File, data any, offset int64, whence Whence) (uint64, error) {
	ctx := data.(*streamCtx)

	if !ctx.canSeek {
		return 0, NewError(StatusUnsupported, KindUnsupported, "Seek not supported")
	}

	old, err := ctx.s.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, NewPlatformError(StatusFailed, err, "Failed to get file position")
	}

	if _, err := ctx.s.Seek(offset, int(whence)); err != nil {
		return 0, NewPlatformError(StatusFailed, err, "Failed to seek file")
	}

	pos, err := ctx.s.Seek(0, io.SeekCurrent)
	if err != nil {
		status := StatusFailed
		if _, rerr := ctx.s.Seek(old, io.SeekStart); rerr != nil {
			status = StatusFatal
		}

		return 0, NewPlatformError(status, err, "Failed to get file position")
	}

	return uint64(pos), nil
}

func streamTruncate(_ *File, data any, size uint64) error {
	ctx := data.(*streamCtx)

	if ctx.s.Fd() == noFd {
		return NewError(StatusUnsupported, KindUnsupported, "Stream has no file descriptor")
	}

	if size > 1<<63-1 {
		return NewError(StatusFailed, KindInvalidArgument, "Invalid truncate size %d", size)
	}

	if err := ctx.s.Truncate(int64(size)); err != nil {
		return NewPlatformError(StatusFailed, err, "Failed to truncate file")
	}

	return nil
}

func isBlockDevice(mode fs.FileMode) bool {
	return mode&fs.ModeDevice != 0 && mode&fs.ModeCharDevice == 0
}
