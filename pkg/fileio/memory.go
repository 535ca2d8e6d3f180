package fileio

import (
	"math"
	"slices"
)

// memoryCtx is the backend state of a memory-backed [File].
type memoryCtx struct {
	data  []byte
	pos   int
	fixed bool

	// ptr receives data after every resize (dynamic buffers only).
	ptr *[]byte
}

// OpenMemory opens f over buf.
//
// The buffer has a fixed size: writes land in buf's backing array, writes past
// the end are cut short, and [File.Truncate] is unsupported. The caller keeps
// ownership of buf.
func OpenMemory(f *File, buf []byte) error {
	ctx := &memoryCtx{data: buf, fixed: true}

	return openMemoryCtx(f, ctx)
}

// OpenMemoryDynamic opens f over the growable buffer *buf.
//
// Writes past the end grow the buffer, zero-filling any gap, and
// [File.Truncate] resizes it. Every resize is stored back into *buf, so the
// caller always sees the current contents and size, even while f is open.
func OpenMemoryDynamic(f *File, buf *[]byte) error {
	if buf == nil {
		return f.fail(NewError(StatusFatal, KindProgrammerError, "OpenMemoryDynamic: buffer pointer is nil"))
	}

	ctx := &memoryCtx{data: *buf, ptr: buf}

	return openMemoryCtx(f, ctx)
}

func openMemoryCtx(f *File, ctx *memoryCtx) error {
	return OpenCallbacks(f, Callbacks{
		Close:    memoryClose,
		Read:     memoryRead,
		Write:    memoryWrite,
		Seek:     memorySeek,
		Truncate: memoryTruncate,
	}, ctx)
}

func memoryClose(_ *File, data any) error {
	ctx := data.(*memoryCtx)
	ctx.data = nil
	ctx.ptr = nil

	return nil
}

func memoryRead(_ *File, data any, p []byte) (int, error) {
	ctx := data.(*memoryCtx)

	if ctx.pos >= len(ctx.data) {
		return 0, nil
	}

	n := copy(p, ctx.data[ctx.pos:])
	ctx.pos += n

	return n, nil
}

func memoryWrite(_ *File, data any, p []byte) (int, error) {
	ctx := data.(*memoryCtx)

	if ctx.pos > math.MaxInt-len(p) {
		return 0, NewError(StatusFailed, KindInvalidArgument, "Write would overflow buffer size")
	}

	desired := ctx.pos + len(p)
	toWrite := len(p)

	if desired > len(ctx.data) {
		if ctx.fixed {
			toWrite = max(len(ctx.data)-ctx.pos, 0)
			if toWrite == 0 {
				return 0, nil
			}
		} else {
			ctx.resize(desired)
		}
	}

	copy(ctx.data[ctx.pos:ctx.pos+toWrite], p[:toWrite])
	ctx.pos += toWrite

	return toWrite, nil
}

func memorySeek(_ *File, data any, offset int64, whence Whence) (uint64, error) {
	ctx := data.(*memoryCtx)

	var base int64

	switch whence {
	case SeekSet:
		if offset < 0 || uint64(offset) > math.MaxInt {
			return 0, NewError(StatusFailed, KindInvalidArgument, "Invalid SEEK_SET offset %d", offset)
		}

		ctx.pos = int(offset)

		return uint64(ctx.pos), nil
	case SeekCur:
		base = int64(ctx.pos)
	case SeekEnd:
		base = int64(len(ctx.data))
	default:
		return 0, NewError(StatusFailed, KindInvalidArgument, "Invalid whence argument: %d", int(whence))
	}

	if (offset < 0 && uint64(-(offset+1))+1 > uint64(base)) || (offset > 0 && uint64(offset) > math.MaxInt-uint64(base)) {
		if whence == SeekCur {
			return 0, NewError(StatusFailed, KindInvalidArgument,
				"Invalid SEEK_CUR offset %d for position %d", offset, ctx.pos)
		}

		return 0, NewError(StatusFailed, KindInvalidArgument,
			"Invalid SEEK_END offset %d for file of size %d", offset, len(ctx.data))
	}

	ctx.pos = int(base + offset)

	return uint64(ctx.pos), nil
}

func memoryTruncate(_ *File, data any, size uint64) error {
	ctx := data.(*memoryCtx)

	if ctx.fixed {
		return NewError(StatusUnsupported, KindUnsupported, "Cannot truncate fixed buffer")
	}

	if size > math.MaxInt {
		return NewError(StatusFailed, KindInvalidArgument, "Invalid truncate size %d", size)
	}

	ctx.resize(int(size))

	return nil
}

// resize sets the buffer length to size, zero-filling newly exposed bytes,
// and publishes the result through ptr.
func (ctx *memoryCtx) resize(size int) {
	old := len(ctx.data)

	if size > old {
		ctx.data = slices.Grow(ctx.data, size-old)[:size]
		clear(ctx.data[old:])
	} else {
		ctx.data = ctx.data[:size]
	}

	if ctx.ptr != nil {
		*ctx.ptr = ctx.data
	}
}
