package fileio

import (
	"context"
	"log/slog"
	"runtime"
)

// Callback signatures. Every callback receives the [File] it is registered on
// (so it can inspect or record errors) and the opaque value passed to
// [File.SetCallbackData].
//
// A callback reports failure by returning an error, normally an [*Error]
// built with [NewError] or [NewPlatformError]. Errors of any other type are
// treated as platform failures with [StatusFailed].
type (
	OpenFunc     func(f *File, data any) error
	CloseFunc    func(f *File, data any) error
	ReadFunc     func(f *File, data any, p []byte) (int, error)
	WriteFunc    func(f *File, data any, p []byte) (int, error)
	SeekFunc     func(f *File, data any, offset int64, whence Whence) (uint64, error)
	TruncateFunc func(f *File, data any, size uint64) error
)

// File is a handle to a byte-addressable stream whose behavior is supplied by
// callbacks.
//
// A File starts in [StateNew]. Callbacks and callback data may only be set in
// that state. [File.Open] moves it to [StateOpened], after which [File.Read],
// [File.Write], [File.Seek] and [File.Truncate] dispatch to the callbacks.
// [File.Close] always ends in [StateClosed].
//
// An operation returning a [StatusFatal] error moves the handle to
// [StateFatal]; only Close is allowed afterwards. Calling an operation in the
// wrong state is a programmer error, reported as [KindProgrammerError] with
// [StatusFatal].
//
// A File that becomes unreachable without being closed is closed by the
// garbage collector. The result of that implicit close is lost; call Close
// explicitly when it matters.
//
// A File is not safe for concurrent use.
type File struct {
	state State

	openFn     OpenFunc
	closeFn    CloseFunc
	readFn     ReadFunc
	writeFn    WriteFunc
	seekFn     SeekFunc
	truncateFn TruncateFunc
	data       any

	// released is set once the close callback may no longer run for the
	// current open attempt: after a failed Open or any Close.
	released bool

	err    *Error
	logger *slog.Logger
}

// Option configures a [File] created by [New].
type Option func(*File)

// WithLogger makes the File log state transitions and fatal errors at debug
// level.
func WithLogger(l *slog.Logger) Option {
	return func(f *File) {
		f.logger = l
	}
}

// New returns a File in [StateNew] with no callbacks registered.
func New(opts ...Option) *File {
	f := &File{state: StateNew}
	for _, opt := range opts {
		opt(f)
	}

	runtime.SetFinalizer(f, (*File).finalize)

	return f
}

func (f *File) finalize() {
	_ = f.Close()
}

// State returns the current state.
func (f *File) State() State {
	return f.state
}

// --- Callbacks ---

// SetOpenCallback registers the open callback. Fails with a programmer error
// unless the File is in [StateNew].
func (f *File) SetOpenCallback(fn OpenFunc) error {
	if err := f.ensureState(StateNew, "SetOpenCallback"); err != nil {
		return err
	}

	f.openFn = fn

	return nil
}

// SetCloseCallback registers the close callback. Fails with a programmer
// error unless the File is in [StateNew].
func (f *File) SetCloseCallback(fn CloseFunc) error {
	if err := f.ensureState(StateNew, "SetCloseCallback"); err != nil {
		return err
	}

	f.closeFn = fn

	return nil
}

// SetReadCallback registers the read callback. Fails with a programmer error
// unless the File is in [StateNew].
func (f *File) SetReadCallback(fn ReadFunc) error {
	if err := f.ensureState(StateNew, "SetReadCallback"); err != nil {
		return err
	}

	f.readFn = fn

	return nil
}

// SetWriteCallback registers the write callback. Fails with a programmer
// error unless the File is in [StateNew].
func (f *File) SetWriteCallback(fn WriteFunc) error {
	if err := f.ensureState(StateNew, "SetWriteCallback"); err != nil {
		return err
	}

	f.writeFn = fn

	return nil
}

// SetSeekCallback registers the seek callback. Fails with a programmer error
// unless the File is in [StateNew].
func (f *File) SetSeekCallback(fn SeekFunc) error {
	if err := f.ensureState(StateNew, "SetSeekCallback"); err != nil {
		return err
	}

	f.seekFn = fn

	return nil
}

// SetTruncateCallback registers the truncate callback. Fails with a
// programmer error unless the File is in [StateNew].
func (f *File) SetTruncateCallback(fn TruncateFunc) error {
	if err := f.ensureState(StateNew, "SetTruncateCallback"); err != nil {
		return err
	}

	f.truncateFn = fn

	return nil
}

// SetCallbackData sets the value passed to every callback. Fails with a
// programmer error unless the File is in [StateNew].
func (f *File) SetCallbackData(data any) error {
	if err := f.ensureState(StateNew, "SetCallbackData"); err != nil {
		return err
	}

	f.data = data

	return nil
}

// --- Open/close ---

// Open runs the open callback, if any, and moves the File to [StateOpened]
// on success.
//
// On failure the close callback runs to release anything the open callback
// acquired. A [StatusFatal] failure moves the File to [StateFatal]; any other
// failure leaves it in [StateNew] so Open may be retried. A retried Open
// starts with a clean error state.
func (f *File) Open() error {
	if err := f.ensureState(StateNew, "Open"); err != nil {
		return err
	}

	f.err = nil
	f.released = false

	var err error
	if f.openFn != nil {
		err = f.openFn(f, f.data)
	}

	if err == nil {
		f.transition(StateOpened)

		return nil
	}

	fe := f.record(err)
	if fe.Status.IsFatal() {
		f.transition(StateFatal)
	}

	if f.closeFn != nil {
		_ = f.closeFn(f, f.data)
		f.released = true
	}

	return fe
}

// Close runs the close callback and moves the File to [StateClosed].
//
// Closing a File that was never opened, or is already closed, does nothing.
// The File is closed even if the callback fails; the callback's error is
// returned but does not move the File to [StateFatal].
func (f *File) Close() error {
	runtime.SetFinalizer(f, nil)

	var err error

	if f.state&(StateClosed|StateNew) == 0 && !f.released && f.closeFn != nil {
		err = f.closeFn(f, f.data)
	}

	f.released = true

	if f.state != StateClosed {
		f.transition(StateClosed)
	}

	if err != nil {
		return f.record(err)
	}

	return nil
}

// --- Operations ---

// Read reads up to len(p) bytes into p.
//
// A return of (0, nil) with len(p) > 0 means end of stream; there is no
// separate EOF error. [ErrRetry] means nothing was read and the call may be
// repeated. Without a read callback, Read fails with [StatusUnsupported].
func (f *File) Read(p []byte) (int, error) {
	if err := f.ensureState(StateOpened, "Read"); err != nil {
		return 0, err
	}

	if f.readFn == nil {
		return 0, f.fail(NewError(StatusUnsupported, KindUnsupported, "Read: No read callback registered"))
	}

	n, err := f.readFn(f, f.data, p)
	if err != nil {
		return 0, f.fail(err)
	}

	if n < 0 || n > len(p) {
		return 0, f.fail(NewError(StatusFatal, KindProgrammerError,
			"Read: callback returned invalid count %d for buffer of size %d", n, len(p)))
	}

	return n, nil
}

// Write writes up to len(p) bytes from p. A short count without an error is a
// partial write; callers wanting all of p written use [WriteFully].
func (f *File) Write(p []byte) (int, error) {
	if err := f.ensureState(StateOpened, "Write"); err != nil {
		return 0, err
	}

	if f.writeFn == nil {
		return 0, f.fail(NewError(StatusUnsupported, KindUnsupported, "Write: No write callback registered"))
	}

	n, err := f.writeFn(f, f.data, p)
	if err != nil {
		return 0, f.fail(err)
	}

	if n < 0 || n > len(p) {
		return 0, f.fail(NewError(StatusFatal, KindProgrammerError,
			"Write: callback returned invalid count %d for buffer of size %d", n, len(p)))
	}

	return n, nil
}

// Seek sets the position for the next Read or Write and returns the new
// absolute position.
func (f *File) Seek(offset int64, whence Whence) (uint64, error) {
	if err := f.ensureState(StateOpened, "Seek"); err != nil {
		return 0, err
	}

	if f.seekFn == nil {
		return 0, f.fail(NewError(StatusUnsupported, KindUnsupported, "Seek: No seek callback registered"))
	}

	pos, err := f.seekFn(f, f.data, offset, whence)
	if err != nil {
		return 0, f.fail(err)
	}

	return pos, nil
}

// Truncate changes the size of the file. The position is not changed.
func (f *File) Truncate(size uint64) error {
	if err := f.ensureState(StateOpened, "Truncate"); err != nil {
		return err
	}

	if f.truncateFn == nil {
		return f.fail(NewError(StatusUnsupported, KindUnsupported, "Truncate: No truncate callback registered"))
	}

	if err := f.truncateFn(f, f.data, size); err != nil {
		return f.fail(err)
	}

	return nil
}

// --- Error state ---

// SetError records err as the File's last error and returns it as an
// [*Error]. It does not change the state. Returns nil if err is nil.
func (f *File) SetError(err error) error {
	if err == nil {
		return nil
	}

	return f.record(err)
}

// Err returns the last recorded error, or nil.
//
// The value is only meaningful right after an operation failed; the next
// operation may replace it.
func (f *File) Err() error {
	if f.err == nil {
		return nil
	}

	return f.err
}

// ErrorKind returns the kind of the last recorded error, or [KindNone].
func (f *File) ErrorKind() Kind {
	if f.err == nil {
		return KindNone
	}

	return f.err.Kind
}

// ErrorCode returns the code of the last recorded error: a [Kind] value, or a
// negated platform code. Zero if no error was recorded.
func (f *File) ErrorCode() int {
	if f.err == nil {
		return 0
	}

	return f.err.Code()
}

// ErrorString returns the message of the last recorded error, or "".
func (f *File) ErrorString() string {
	if f.err == nil {
		return ""
	}

	return f.err.Msg
}

// --- Private ---

// ensureState fails with a fatal programmer error if the File is not in one
// of the given states.
func (f *File) ensureState(states State, op string) error {
	if f.state&states != 0 {
		return nil
	}

	return f.fail(NewError(StatusFatal, KindProgrammerError,
		"%s: Invalid state: expected 0x%x, actual: 0x%x", op, uint16(states), uint16(f.state)))
}

func (f *File) record(err error) *Error {
	fe := asError(err)
	f.err = fe

	return fe
}

// fail records err and moves the File to [StateFatal] if err is fatal.
func (f *File) fail(err error) error {
	fe := f.record(err)

	if fe.Status.IsFatal() && f.state != StateFatal {
		f.transition(StateFatal)
	}

	return fe
}

func (f *File) transition(to State) {
	from := f.state
	f.state = to

	if f.logger == nil {
		return
	}

	attrs := []slog.Attr{slog.String("from", from.String()), slog.String("to", to.String())}
	if to == StateFatal && f.err != nil {
		attrs = append(attrs, slog.String("error", f.err.Msg), slog.String("kind", f.err.Kind.String()))
	}

	f.logger.LogAttrs(context.Background(), slog.LevelDebug, "file state", attrs...)
}
