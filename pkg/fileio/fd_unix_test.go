//go:build unix

package fileio_test

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/patchkit/pkg/fileio"
)

func TestFd_RealFile_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data.bin")

	f := fileio.New()
	require.NoError(t, fileio.OpenFdFilename(f, path, fileio.ModeReadWriteTrunc))

	n, err := fileio.WriteFully(f, []byte("hello, world"))
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	pos, err := f.Seek(7, fileio.SeekSet)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), pos)

	buf := make([]byte, 16)
	n, err = fileio.ReadFully(f, buf)
	require.NoError(t, err)
	assert.Equal(t, "world", string(buf[:n]))

	require.NoError(t, f.Truncate(5))
	require.NoError(t, f.Close())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestFd_RealFile_Append(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "log.txt")
	require.NoError(t, os.WriteFile(path, []byte("one\n"), 0o600))

	f := fileio.New()
	require.NoError(t, fileio.OpenFdFilename(f, path, fileio.ModeAppend))

	_, err := f.Seek(0, fileio.SeekSet)
	require.NoError(t, err)

	_, err = fileio.WriteFully(f, []byte("two\n"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(got))
}

func TestFd_RealDirectory_IsRejected(t *testing.T) {
	t.Parallel()

	f := fileio.New()
	defer f.Close()

	err := fileio.OpenFdFilename(f, t.TempDir(), fileio.ModeReadOnly)
	require.ErrorIs(t, err, syscall.EISDIR)
	assert.Equal(t, fileio.StateNew, f.State())
}

func TestFd_RealMissingFile_IsENOENT(t *testing.T) {
	t.Parallel()

	f := fileio.New()
	defer f.Close()

	err := fileio.OpenFdFilename(f, filepath.Join(t.TempDir(), "nope"), fileio.ModeReadOnly)
	require.ErrorIs(t, err, syscall.ENOENT)
	assert.Equal(t, -int(syscall.ENOENT), f.ErrorCode())
}

func TestFd_Unowned_LeavesDescriptorOpen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "shared")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o600))

	osf, err := os.Open(path)
	require.NoError(t, err)

	defer osf.Close()

	f := fileio.New()
	require.NoError(t, fileio.OpenFd(f, int(osf.Fd()), false))
	require.NoError(t, f.Close())

	buf := make([]byte, 3)
	_, err = osf.ReadAt(buf, 0)
	require.NoError(t, err, "descriptor must still be usable")
	assert.Equal(t, "abc", string(buf))
}
