package fileio

import (
	"bytes"
	"errors"
	"io"
)

// DefaultSearchBufferSize is the search buffer size used when
// [SearchOptions.BufferSize] is zero.
const DefaultSearchBufferSize = 8 * 1024

// moveBufferSize is the chunk size used by [Move] and [ReadDiscard].
const moveBufferSize = 10240

// ErrStopSearch can be returned by a [SearchFunc] to end the search early.
// [Search] then returns nil.
var ErrStopSearch = errors.New("fileio: stop search")

// ReadFully reads until p is full or the end of the stream is reached.
//
// Retryable failures are retried. On any other failure the bytes read so
// far are still reported. Reaching the end of the stream early is not an
// error; compare the count with len(p).
func ReadFully(f *File, p []byte) (int, error) {
	total := 0

	for total < len(p) {
		n, err := f.Read(p[total:])
		if errors.Is(err, ErrRetry) {
			continue
		}

		if err != nil {
			return total, err
		}

		if n == 0 {
			break
		}

		total += n
	}

	return total, nil
}

// WriteFully writes all of p, retrying partial and retryable writes. It
// stops early, without an error, if a write makes no progress.
func WriteFully(f *File, p []byte) (int, error) {
	total := 0

	for total < len(p) {
		n, err := f.Write(p[total:])
		if errors.Is(err, ErrRetry) {
			continue
		}

		if err != nil {
			return total, err
		}

		if n == 0 {
			break
		}

		total += n
	}

	return total, nil
}

// ReadDiscard reads and throws away up to n bytes. It returns the number of
// bytes discarded, which is less than n only at the end of the stream or on
// failure.
func ReadDiscard(f *File, n uint64) (uint64, error) {
	buf := make([]byte, min(n, moveBufferSize))

	var total uint64

	for total < n {
		chunk := min(n-total, uint64(len(buf)))

		got, err := ReadFully(f, buf[:chunk])
		total += uint64(got)

		if err != nil {
			return total, err
		}

		if uint64(got) < chunk {
			break
		}
	}

	return total, nil
}

// SearchOptions bounds a [Search].
type SearchOptions struct {
	// Start is the inclusive offset to start at. Negative means the
	// beginning of the file.
	Start int64
	// End is the exclusive offset to stop at. Negative means the end of the
	// file.
	End int64
	// BufferSize is the read buffer size. Zero selects
	// [DefaultSearchBufferSize]. It must not be smaller than the pattern.
	BufferSize int
	// MaxMatches limits the number of reported matches. Negative means no
	// limit; zero returns immediately.
	MaxMatches int64
}

// DefaultSearchOptions returns options searching the whole file for every
// match.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{Start: -1, End: -1, MaxMatches: -1}
}

// SearchFunc is called by [Search] with the offset of each match.
//
// The file position is restored after the call, so the function may seek,
// read and write freely. Returning [ErrStopSearch] ends the search
// successfully; any other error aborts it.
type SearchFunc func(f *File, offset uint64) error

// Search reports every occurrence of pattern between opts.Start and
// opts.End, in order. Overlapping occurrences are all reported.
//
// The zero SearchOptions has MaxMatches 0 and returns nil without reading
// anything; start from [DefaultSearchOptions] instead.
//
// The file must support seeking.
func Search(f *File, opts SearchOptions, pattern []byte, fn SearchFunc) error {
	if opts.Start >= 0 && opts.End >= 0 && opts.End < opts.Start {
		return f.SetError(NewError(StatusFailed, KindInvalidArgument, "End offset < start offset"))
	}

	if opts.MaxMatches == 0 || len(pattern) == 0 {
		return nil
	}

	bufSize := opts.BufferSize
	if bufSize == 0 {
		bufSize = DefaultSearchBufferSize
	}

	if bufSize < len(pattern) {
		return f.SetError(NewError(StatusFailed, KindInvalidArgument,
			"Buffer size cannot be less than pattern size"))
	}

	start := uint64(max(opts.Start, 0))

	if _, err := f.Seek(int64(start), SeekSet); err != nil {
		return err
	}

	s := searcher{
		f:       f,
		pattern: pattern,
		buf:     make([]byte, bufSize),
		offset:  start,
		end:     opts.End,
		left:    opts.MaxMatches,
		fn:      fn,
	}

	err := s.run()
	if errors.Is(err, ErrStopSearch) {
		return nil
	}

	return err
}

type searcher struct {
	f       *File
	pattern []byte
	buf     []byte
	fn      SearchFunc

	// offset is the file offset of buf[0]; n is the number of valid bytes.
	offset uint64
	n      int

	end  int64
	left int64
}

func (s *searcher) run() error {
	for {
		want := len(s.buf) - s.n
		if s.end >= 0 {
			remaining := max(int64(0), s.end-int64(s.offset)-int64(s.n))
			want = int(min(int64(want), remaining))
		}

		got, err := ReadFully(s.f, s.buf[s.n:s.n+want])
		if err != nil {
			return err
		}

		s.n += got

		if err := s.scan(); err != nil {
			return err
		}

		if got == 0 {
			return nil
		}

		// Keep a tail shorter than the pattern. No match fits entirely in
		// it, so nothing is reported twice.
		keep := min(len(s.pattern)-1, s.n)
		copy(s.buf, s.buf[s.n-keep:s.n])
		s.offset += uint64(s.n - keep)
		s.n = keep
	}
}

func (s *searcher) scan() error {
	window := s.buf[:s.n]

	for i := 0; i+len(s.pattern) <= len(window); {
		idx := bytes.Index(window[i:], s.pattern)
		if idx < 0 {
			return nil
		}

		if err := s.report(s.offset + uint64(i+idx)); err != nil {
			return err
		}

		i += idx + 1
	}

	return nil
}

func (s *searcher) report(match uint64) error {
	resume := s.offset + uint64(s.n)

	err := s.fn(s.f, match)

	if _, serr := s.f.Seek(int64(resume), SeekSet); serr != nil {
		return serr
	}

	if err != nil {
		return err
	}

	if s.left > 0 {
		s.left--
		if s.left == 0 {
			return ErrStopSearch
		}
	}

	return nil
}

// Move copies size bytes from offset src to offset dest within f, like
// memmove. Overlapping ranges are handled. The range is clamped to the
// current file size; the returned count is the number of bytes moved.
//
// If src equals dest, or size is zero, nothing is touched and size is
// returned.
func Move(f *File, src, dest, size uint64) (uint64, error) {
	if src == dest || size == 0 {
		return size, nil
	}

	fileSize, err := f.Seek(0, SeekEnd)
	if err != nil {
		return 0, err
	}

	if limit := max(src, dest); limit >= fileSize {
		size = 0
	} else {
		size = min(size, fileSize-limit)
	}

	buf := make([]byte, min(size, moveBufferSize))

	var moved uint64

	for moved < size {
		chunk := min(size-moved, uint64(len(buf)))

		// Copy from the front when moving down and from the back when moving
		// up so that overlapping bytes are read before they are overwritten.
		off := moved
		if dest > src {
			off = size - moved - chunk
		}

		if err := moveChunk(f, src+off, dest+off, buf[:chunk]); err != nil {
			return moved, err
		}

		moved += chunk
	}

	return moved, nil
}

func moveChunk(f *File, src, dest uint64, buf []byte) error {
	if _, err := f.Seek(int64(src), SeekSet); err != nil {
		return err
	}

	n, err := ReadFully(f, buf)
	if err != nil {
		return err
	}

	if n != len(buf) {
		return f.SetError(NewError(StatusFailed, KindInternalError, "Unexpected EOF when reading file"))
	}

	if _, err := f.Seek(int64(dest), SeekSet); err != nil {
		return err
	}

	n, err = WriteFully(f, buf)
	if err != nil {
		return err
	}

	if n != len(buf) {
		return f.SetError(NewError(StatusFailed, KindInternalError, "Unexpected EOF when writing file"))
	}

	return nil
}

// ReadWriteSeeker adapts f to the [io] interfaces.
//
// Read reports the end of the stream as [io.EOF], Write reports a short
// write as [io.ErrShortWrite], and retryable failures are retried.
func ReadWriteSeeker(f *File) io.ReadWriteSeeker {
	return fileRWS{f: f}
}

type fileRWS struct {
	f *File
}

func (r fileRWS) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	for {
		n, err := r.f.Read(p)
		if errors.Is(err, ErrRetry) {
			continue
		}

		if err != nil {
			return 0, err
		}

		if n == 0 {
			return 0, io.EOF
		}

		return n, nil
	}
}

func (r fileRWS) Write(p []byte) (int, error) {
	n, err := WriteFully(r.f, p)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}

	return n, err
}

func (r fileRWS) Seek(offset int64, whence int) (int64, error) {
	pos, err := r.f.Seek(offset, Whence(whence))
	if err != nil {
		return 0, err
	}

	return int64(pos), nil
}
