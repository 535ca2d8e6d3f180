package fileio_test

import (
	"io/fs"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/patchkit/pkg/fileio"
)

// fakeFds is an in-memory descriptor table. Errors set on it are returned by
// the next call of the matching operation.
type fakeFds struct {
	data  []byte
	pos   int64
	mode  fs.FileMode
	fd    int
	flags int

	openErr, statErr, closeErr error
	readErrs, writeErrs        []error

	closed []int
}

var _ fileio.FdFuncs = (*fakeFds)(nil)

func newFakeFds() *fakeFds {
	return &fakeFds{fd: 7, mode: 0o644}
}

func (f *fakeFds) Open(_ string, flags int, _ uint32) (int, error) {
	if f.openErr != nil {
		return -1, f.openErr
	}

	f.flags = flags

	return f.fd, nil
}

func (f *fakeFds) Fstat(int) (fs.FileMode, error) {
	return f.mode, f.statErr
}

func (f *fakeFds) Close(fd int) error {
	f.closed = append(f.closed, fd)

	return f.closeErr
}

func (f *fakeFds) Ftruncate(_ int, size int64) error {
	if size < int64(len(f.data)) {
		f.data = f.data[:size]
	} else {
		f.data = append(f.data, make([]byte, size-int64(len(f.data)))...)
	}

	return nil
}

func (f *fakeFds) Seek(_ int, offset int64, whence int) (int64, error) {
	switch whence {
	case 0:
	case 1:
		offset += f.pos
	case 2:
		offset += int64(len(f.data))
	default:
		return 0, syscall.EINVAL
	}

	if offset < 0 {
		return 0, syscall.EINVAL
	}

	f.pos = offset

	return f.pos, nil
}

func (f *fakeFds) Read(_ int, p []byte) (int, error) {
	if len(f.readErrs) > 0 {
		err := f.readErrs[0]
		f.readErrs = f.readErrs[1:]

		return -1, err
	}

	if f.pos >= int64(len(f.data)) {
		return 0, nil
	}

	n := copy(p, f.data[f.pos:])
	f.pos += int64(n)

	return n, nil
}

func (f *fakeFds) Write(_ int, p []byte) (int, error) {
	if len(f.writeErrs) > 0 {
		err := f.writeErrs[0]
		f.writeErrs = f.writeErrs[1:]

		return -1, err
	}

	if end := f.pos + int64(len(p)); end > int64(len(f.data)) {
		f.data = append(f.data, make([]byte, end-int64(len(f.data)))...)
	}

	n := copy(f.data[f.pos:], p)
	f.pos += int64(n)

	return n, nil
}

func TestFd_Filename_OpensWithModeFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mode  fileio.OpenMode
		flags int
	}{
		{mode: fileio.ModeReadOnly, flags: os.O_RDONLY},
		{mode: fileio.ModeReadWrite, flags: os.O_RDWR},
		{mode: fileio.ModeWriteOnly, flags: os.O_WRONLY | os.O_CREATE | os.O_TRUNC},
		{mode: fileio.ModeReadWriteTrunc, flags: os.O_RDWR | os.O_CREATE | os.O_TRUNC},
		{mode: fileio.ModeAppend, flags: os.O_WRONLY | os.O_CREATE | os.O_APPEND},
		{mode: fileio.ModeReadAppend, flags: os.O_RDWR | os.O_CREATE | os.O_APPEND},
	}

	for _, tc := range tests {
		t.Run(tc.mode.String(), func(t *testing.T) {
			t.Parallel()

			fds := newFakeFds()
			f := fileio.New()

			require.NoError(t, fileio.OpenFdFilenameWith(fds, f, "x", tc.mode))
			assert.Equal(t, tc.flags, fds.flags)

			require.NoError(t, f.Close())
			assert.Equal(t, []int{7}, fds.closed, "descriptor opened by name is owned")
		})
	}
}

func TestFd_InvalidMode_IsFatal(t *testing.T) {
	t.Parallel()

	f := fileio.New()
	defer f.Close()

	err := fileio.OpenFdFilenameWith(newFakeFds(), f, "x", fileio.OpenMode(42))
	require.ErrorIs(t, err, fileio.ErrInvalidArgument)
	assert.Equal(t, fileio.StatusFatal, fileio.StatusOf(err))
	assert.Equal(t, "Invalid mode: 42", f.ErrorString())
	assert.Equal(t, fileio.StateFatal, f.State())
}

func TestFd_OpenFailure_ReportsPlatformCode(t *testing.T) {
	t.Parallel()

	fds := newFakeFds()
	fds.openErr = syscall.ENOENT

	f := fileio.New()
	defer f.Close()

	err := fileio.OpenFdFilenameWith(fds, f, "missing", fileio.ModeReadOnly)
	require.ErrorIs(t, err, syscall.ENOENT)
	assert.Equal(t, fileio.StatusFailed, fileio.StatusOf(err))
	assert.Equal(t, fileio.KindPlatform, f.ErrorKind())
	assert.Equal(t, -int(syscall.ENOENT), f.ErrorCode())
	assert.Equal(t, "Failed to open file: "+syscall.ENOENT.Error(), f.ErrorString())
	assert.Equal(t, fileio.StateNew, f.State())
	assert.Empty(t, fds.closed, "nothing was opened")
}

func TestFd_Directory_IsRejected(t *testing.T) {
	t.Parallel()

	fds := newFakeFds()
	fds.mode = fs.ModeDir | 0o755

	f := fileio.New()
	defer f.Close()

	err := fileio.OpenFdFilenameWith(fds, f, "dir", fileio.ModeReadOnly)
	require.ErrorIs(t, err, syscall.EISDIR)
	assert.Equal(t, "Cannot open directory", f.ErrorString())
	assert.Equal(t, -int(syscall.EISDIR), f.ErrorCode())
	assert.Equal(t, []int{7}, fds.closed, "descriptor released after failed open")
}

func TestFd_Close_OnlyClosesOwnedDescriptor(t *testing.T) {
	t.Parallel()

	for _, owned := range []bool{true, false} {
		fds := newFakeFds()
		f := fileio.New()

		require.NoError(t, fileio.OpenFdWith(fds, f, 3, owned))
		require.NoError(t, f.Close())

		if owned {
			assert.Equal(t, []int{3}, fds.closed)
		} else {
			assert.Empty(t, fds.closed)
		}
	}
}

func TestFd_CloseFailure_IsReported(t *testing.T) {
	t.Parallel()

	fds := newFakeFds()
	fds.closeErr = syscall.EIO

	f := fileio.New()
	require.NoError(t, fileio.OpenFdWith(fds, f, 3, true))

	err := f.Close()
	require.ErrorIs(t, err, syscall.EIO)
	assert.Equal(t, fileio.StateClosed, f.State())
}

func TestFd_Interrupted_IsRetry(t *testing.T) {
	t.Parallel()

	fds := newFakeFds()
	fds.data = []byte("hello")
	fds.readErrs = []error{syscall.EINTR, syscall.EINTR}
	fds.writeErrs = []error{syscall.EINTR}

	f := fileio.New()
	defer f.Close()

	require.NoError(t, fileio.OpenFdWith(fds, f, 3, false))

	_, err := f.Read(make([]byte, 5))
	require.ErrorIs(t, err, fileio.ErrRetry)
	assert.Equal(t, fileio.StatusRetry, fileio.StatusOf(err))

	buf := make([]byte, 5)
	n, err := fileio.ReadFully(f, buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))

	n, err = fileio.WriteFully(f, []byte("!"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "hello!", string(fds.data))
}

func TestFd_ReadFailure_IsFailed(t *testing.T) {
	t.Parallel()

	fds := newFakeFds()
	fds.readErrs = []error{syscall.EIO}

	f := fileio.New()
	defer f.Close()

	require.NoError(t, fileio.OpenFdWith(fds, f, 3, false))

	_, err := f.Read(make([]byte, 1))
	require.ErrorIs(t, err, syscall.EIO)
	assert.Equal(t, fileio.StatusFailed, fileio.StatusOf(err))
	assert.Equal(t, fileio.StateOpened, f.State())
}

func TestFd_SeekAndTruncate(t *testing.T) {
	t.Parallel()

	fds := newFakeFds()
	fds.data = []byte("abcdef")

	f := fileio.New()
	defer f.Close()

	require.NoError(t, fileio.OpenFdWith(fds, f, 3, false))

	pos, err := f.Seek(-2, fileio.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), pos)

	require.NoError(t, f.Truncate(3))
	assert.Equal(t, "abc", string(fds.data))

	_, err = f.Seek(-10, fileio.SeekCur)
	require.ErrorIs(t, err, syscall.EINVAL)
	assert.Contains(t, f.ErrorString(), "Failed to seek file")

	err = f.Truncate(1 << 63)
	require.ErrorIs(t, err, fileio.ErrInvalidArgument)
}

func TestFd_FilenameW_InvalidSurrogate_IsFatal(t *testing.T) {
	t.Parallel()

	fds := newFakeFds()
	f := fileio.New()
	defer f.Close()

	err := fileio.OpenFdFilenameWWith(fds, f, []uint16{'a', 0xD800, 'b'}, fileio.ModeReadOnly)
	require.ErrorIs(t, err, fileio.ErrInvalidArgument)
	assert.Equal(t, fileio.StatusFatal, fileio.StatusOf(err))
	assert.Equal(t, "Failed to convert WCS filename to MBS", f.ErrorString())
	assert.Equal(t, fileio.StateFatal, f.State())
}
