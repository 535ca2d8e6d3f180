package testutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"
	"sync"

	"github.com/calvinalkan/patchkit/pkg/fileio"
)

// TestBuilder is the subset of [testing.T] used by [StrictStreamFS].
type TestBuilder interface {
	// [testing.T.Helper]
	Helper()
	// [testing.T.Cleanup]
	Cleanup(func())
	// [testing.T.Failed]
	Failed() bool
	// [testing.T.Logf]
	Logf(format string, args ...any)
	// [testing.T.Fatalf]
	Fatalf(format string, args ...any)
}

// StrictStreamFS wraps a [fileio.StreamFS] for tests:
//   - Records a bounded trace of recent stream operations
//   - Fails the test on any non-injected (real) error
//
// Use it under [fileio.Chaos] to tell injected faults from environment
// failures.
type StrictStreamFS struct {
	tb    TestBuilder
	fs    fileio.StreamFS
	trace *traceLog
}

// StrictStreamFSOptions configures a [StrictStreamFS].
type StrictStreamFSOptions struct {
	// FS is the stream filesystem to wrap.
	FS fileio.StreamFS
	// TraceCapacity is the max number of operations kept in the trace.
	// Defaults to 200. Set to a pointer to 0 to disable tracing.
	TraceCapacity *int
}

// NewStrictStreamFS creates a [StrictStreamFS]. On test failure the trace of
// recent operations is logged via tb.Cleanup.
func NewStrictStreamFS(tb TestBuilder, opts StrictStreamFSOptions) *StrictStreamFS {
	tb.Helper()

	s := &StrictStreamFS{
		tb:    tb,
		fs:    opts.FS,
		trace: newTraceLog(opts.TraceCapacity),
	}

	tb.Cleanup(func() {
		if tb.Failed() {
			if trace := s.Trace(); trace != "" {
				tb.Logf("stream trace:\n%s", trace)
			}
		}
	})

	return s
}

// Trace returns a formatted string of recent operations.
func (s *StrictStreamFS) Trace() string {
	return s.trace.String()
}

func (s *StrictStreamFS) OpenFile(path string, flag int, perm fs.FileMode) (fileio.Stream, error) {
	s.tb.Helper()

	st, err := s.fs.OpenFile(path, flag, perm)
	if err := check(s.tb, s.trace, "open", path, err, attr("flag", strconv.Itoa(flag)), attr("perm", fmt.Sprintf("%#o", perm))); err != nil {
		return nil, err
	}

	return &strictStream{tb: s.tb, s: st, trace: s.trace, path: path}, nil
}

// Interface compliance.
var _ fileio.StreamFS = (*StrictStreamFS)(nil)

// check traces the operation and fatals on real (non-injected) errors.
func check(tb TestBuilder, trace *traceLog, op, path string, err error, attrs ...kv) error {
	tb.Helper()

	trace.add(op, path, err, attrs...)

	if err != nil && !fileio.IsInjected(err) && !errors.Is(err, io.EOF) {
		t := trace.String()
		if t != "" {
			t = "\n" + t
		}

		tb.Fatalf("strict: unexpected real error: %v%s", err, t)
	}

	return err
}

type strictStream struct {
	tb    TestBuilder
	s     fileio.Stream
	trace *traceLog
	path  string
}

var _ fileio.Stream = (*strictStream)(nil)

func (ss *strictStream) Read(p []byte) (int, error) {
	ss.tb.Helper()
	n, err := ss.s.Read(p)

	return n, check(ss.tb, ss.trace, "read", ss.path, err, attr("n", strconv.Itoa(n)))
}

func (ss *strictStream) Write(p []byte) (int, error) {
	ss.tb.Helper()
	n, err := ss.s.Write(p)

	return n, check(ss.tb, ss.trace, "write", ss.path, err, attr("n", strconv.Itoa(n)))
}

func (ss *strictStream) Seek(offset int64, whence int) (int64, error) {
	ss.tb.Helper()
	pos, err := ss.s.Seek(offset, whence)

	return pos, check(ss.tb, ss.trace, "seek", ss.path, err,
		attr("offset", strconv.FormatInt(offset, 10)), attr("whence", strconv.Itoa(whence)), attr("pos", strconv.FormatInt(pos, 10)))
}

func (ss *strictStream) Truncate(size int64) error {
	ss.tb.Helper()

	return check(ss.tb, ss.trace, "truncate", ss.path, ss.s.Truncate(size), attr("size", strconv.FormatInt(size, 10)))
}

func (ss *strictStream) Close() error {
	ss.tb.Helper()

	return check(ss.tb, ss.trace, "close", ss.path, ss.s.Close())
}

func (ss *strictStream) Fd() uintptr {
	return ss.s.Fd()
}

func (ss *strictStream) Stat() (fs.FileInfo, error) {
	ss.tb.Helper()
	info, err := ss.s.Stat()

	return info, check(ss.tb, ss.trace, "stat", ss.path, err)
}

// kv is a key-value pair for trace context.
type kv struct {
	k string
	v string
}

func attr(k, v string) kv {
	return kv{k: k, v: v}
}

// traceEvent records a single operation.
type traceEvent struct {
	seq      uint64
	op       string
	path     string
	err      error
	injected bool
	attrs    []kv
}

func (e traceEvent) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "#%d %s", e.seq, e.op)

	if e.path != "" {
		fmt.Fprintf(&b, " path=%q", e.path)
	}

	for _, a := range e.attrs {
		fmt.Fprintf(&b, " %s=%s", a.k, a.v)
	}

	if e.err == nil {
		b.WriteString(" ok")

		return b.String()
	}

	fmt.Fprintf(&b, " err=%v injected=%t", e.err, e.injected)

	return b.String()
}

// traceLog is a bounded circular buffer of [traceEvent].
type traceLog struct {
	mu       sync.Mutex
	capacity int
	events   []traceEvent
	next     int
	seq      uint64
}

func newTraceLog(capacity *int) *traceLog {
	size := 200
	if capacity != nil {
		size = *capacity
	}

	return &traceLog{
		capacity: size,
		events:   make([]traceEvent, 0, size),
	}
}

func (t *traceLog) add(op, path string, err error, attrs ...kv) {
	if t.capacity == 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.seq++

	event := traceEvent{
		seq:      t.seq,
		op:       op,
		path:     path,
		err:      err,
		injected: fileio.IsInjected(err),
		attrs:    attrs,
	}

	if len(t.events) < t.capacity {
		t.events = append(t.events, event)

		return
	}

	t.events[t.next] = event
	t.next = (t.next + 1) % t.capacity
}

func (t *traceLog) String() string {
	t.mu.Lock()
	events := append([]traceEvent(nil), t.events[t.next:]...)
	events = append(events, t.events[:t.next]...)
	t.mu.Unlock()

	var b strings.Builder

	for i, e := range events {
		if i > 0 {
			b.WriteByte('\n')
		}

		b.WriteString(e.String())
	}

	return b.String()
}
