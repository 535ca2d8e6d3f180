package fileio_test

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/patchkit/pkg/fileio"
)

func openFixed(t *testing.T, buf []byte) *fileio.File {
	t.Helper()

	f := fileio.New()
	require.NoError(t, fileio.OpenMemory(f, buf))
	t.Cleanup(func() { _ = f.Close() })

	return f
}

func openDynamic(t *testing.T, buf *[]byte) *fileio.File {
	t.Helper()

	f := fileio.New()
	require.NoError(t, fileio.OpenMemoryDynamic(f, buf))
	t.Cleanup(func() { _ = f.Close() })

	return f
}

func TestMemory_Read_CopiesRemainingBytes(t *testing.T) {
	t.Parallel()

	f := openFixed(t, []byte("hello"))

	buf := make([]byte, 3)
	n, err := f.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "hel", string(buf[:n]))

	n, err = f.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "lo", string(buf[:n]))

	n, err = f.Read(buf)
	require.NoError(t, err)
	assert.Zero(t, n, "end of stream")
}

func TestMemory_Read_PastEnd_ReturnsZero(t *testing.T) {
	t.Parallel()

	f := openFixed(t, []byte("abc"))

	_, err := f.Seek(10, fileio.SeekSet)
	require.NoError(t, err)

	n, err := f.Read(make([]byte, 4))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemory_FixedWrite_IsTruncatedToFit(t *testing.T) {
	t.Parallel()

	buf := []byte("abcdef")
	f := openFixed(t, buf)

	_, err := f.Seek(4, fileio.SeekSet)
	require.NoError(t, err)

	n, err := f.Write([]byte("XYZ"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "abcdXY", string(buf), "writes land in the caller's buffer")

	n, err = f.Write([]byte("Q"))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemory_FixedWrite_PastEnd_WritesNothing(t *testing.T) {
	t.Parallel()

	buf := []byte("abc")
	f := openFixed(t, buf)

	_, err := f.Seek(10, fileio.SeekSet)
	require.NoError(t, err)

	n, err := f.Write([]byte("x"))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, "abc", string(buf))
}

func TestMemory_FixedTruncate_IsUnsupported(t *testing.T) {
	t.Parallel()

	f := openFixed(t, []byte("abc"))

	err := f.Truncate(1)
	require.ErrorIs(t, err, fileio.ErrUnsupported)
	assert.Equal(t, fileio.StatusUnsupported, fileio.StatusOf(err))
	assert.Equal(t, fileio.StateOpened, f.State())
}

func TestMemory_DynamicWrite_GrowsAndZeroFillsGap(t *testing.T) {
	t.Parallel()

	data := []byte("ab")
	f := openDynamic(t, &data)

	_, err := f.Seek(5, fileio.SeekSet)
	require.NoError(t, err)

	n, err := f.Write([]byte("xy"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	want := []byte{'a', 'b', 0, 0, 0, 'x', 'y'}
	if diff := cmp.Diff(want, data); diff != "" {
		t.Fatalf("buffer mismatch (-want +got):\n%s", diff)
	}

	pos, err := f.Seek(0, fileio.SeekCur)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), pos)
}

func TestMemory_DynamicWrite_StartingFromNil(t *testing.T) {
	t.Parallel()

	var data []byte
	f := openDynamic(t, &data)

	n, err := fileio.WriteFully(f, []byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, 11, n)
	assert.Equal(t, "hello world", string(data))
}

func TestMemory_DynamicTruncate_ResizesAndKeepsPosition(t *testing.T) {
	t.Parallel()

	data := []byte("abcdef")
	f := openDynamic(t, &data)

	_, err := f.Seek(4, fileio.SeekSet)
	require.NoError(t, err)

	require.NoError(t, f.Truncate(2))
	assert.Equal(t, "ab", string(data))

	pos, err := f.Seek(0, fileio.SeekCur)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), pos, "truncate must not move the position")

	require.NoError(t, f.Truncate(5))

	want := []byte{'a', 'b', 0, 0, 0}
	if diff := cmp.Diff(want, data); diff != "" {
		t.Fatalf("buffer mismatch (-want +got):\n%s", diff)
	}
}

func TestMemory_DynamicTruncate_ZeroFillsReusedCapacity(t *testing.T) {
	t.Parallel()

	backing := []byte("abcdef")
	data := backing[:2]
	f := openDynamic(t, &data)

	require.NoError(t, f.Truncate(4))
	assert.Equal(t, []byte{'a', 'b', 0, 0}, data)
}

func TestMemory_Seek(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		start   uint64
		offset  int64
		whence  fileio.Whence
		want    uint64
		wantErr string
	}{
		{name: "set", offset: 3, whence: fileio.SeekSet, want: 3},
		{name: "set past end", offset: 100, whence: fileio.SeekSet, want: 100},
		{name: "set negative", offset: -1, whence: fileio.SeekSet, wantErr: "Invalid SEEK_SET offset"},
		{name: "cur forward", start: 2, offset: 2, whence: fileio.SeekCur, want: 4},
		{name: "cur backward", start: 4, offset: -4, whence: fileio.SeekCur, want: 0},
		{name: "cur underflow", start: 2, offset: -3, whence: fileio.SeekCur, wantErr: "Invalid SEEK_CUR offset"},
		{name: "cur overflow", start: 2, offset: math.MaxInt64, whence: fileio.SeekCur, wantErr: "Invalid SEEK_CUR offset"},
		{name: "end", offset: -2, whence: fileio.SeekEnd, want: 4},
		{name: "end underflow", offset: -7, whence: fileio.SeekEnd, wantErr: "Invalid SEEK_END offset"},
		{name: "cur underflow MinInt64", start: 2, offset: math.MinInt64, whence: fileio.SeekCur, wantErr: "Invalid SEEK_CUR offset"},
		{name: "end underflow MinInt64", offset: math.MinInt64, whence: fileio.SeekEnd, wantErr: "Invalid SEEK_END offset"},
		{name: "bad whence", start: 1, offset: 0, whence: fileio.Whence(7), wantErr: "Invalid whence argument: 7"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := openFixed(t, []byte("abcdef"))

			_, err := f.Seek(int64(tc.start), fileio.SeekSet)
			require.NoError(t, err)

			pos, err := f.Seek(tc.offset, tc.whence)
			if tc.wantErr != "" {
				require.ErrorIs(t, err, fileio.ErrInvalidArgument)
				assert.Equal(t, fileio.StatusFailed, fileio.StatusOf(err))
				assert.Contains(t, f.ErrorString(), tc.wantErr)

				cur, err := f.Seek(0, fileio.SeekCur)
				require.NoError(t, err)
				assert.Equal(t, tc.start, cur, "position unchanged on failure")

				_, err = f.Read(make([]byte, 4))
				require.NoError(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, pos)
		})
	}
}

func TestMemory_Close_KeepsCallerBuffer(t *testing.T) {
	t.Parallel()

	data := []byte("abc")

	f := fileio.New()
	require.NoError(t, fileio.OpenMemoryDynamic(f, &data))

	_, err := f.Write([]byte("XYZW"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	assert.Equal(t, "XYZW", string(data))
}

func TestMemory_OpenDynamic_NilPointer_IsProgrammerError(t *testing.T) {
	t.Parallel()

	f := fileio.New()
	defer f.Close()

	err := fileio.OpenMemoryDynamic(f, nil)
	requireProgrammerError(t, f, err)
}
