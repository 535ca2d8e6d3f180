package fileio

import (
	"errors"
	"io/fs"
	"math/rand"
	"sync"
	"sync/atomic"
	"syscall"
)

// ChaosConfig controls fault injection probabilities.
// Each rate is a float64 from 0.0 (never) to 1.0 (always).
type ChaosConfig struct {
	// Open faults
	OpenFailRate float64 // Fail Open/OpenFile

	// Transfer faults
	InterruptRate    float64 // Fail read or write with EINTR before any transfer
	ReadFailRate     float64 // Fail read operations entirely
	PartialReadRate  float64 // Return fewer bytes than requested
	WriteFailRate    float64 // Fail write operations entirely
	PartialWriteRate float64 // Write a prefix of the buffer

	// Other faults
	SeekFailRate     float64 // Fail Seek
	TruncateFailRate float64 // Fail Truncate/Ftruncate
}

// DefaultChaosConfig returns a config with reasonable fault rates for testing.
func DefaultChaosConfig() ChaosConfig {
	return ChaosConfig{
		OpenFailRate:     0.02,
		InterruptRate:    0.05,
		ReadFailRate:     0.01,
		PartialReadRate:  0.10,
		WriteFailRate:    0.01,
		PartialWriteRate: 0.10,
		SeekFailRate:     0.01,
		TruncateFailRate: 0.02,
	}
}

// ChaosMode controls how [Chaos] behaves.
type ChaosMode uint8

const (
	// ChaosModePassthrough behaves like the wrapped backend.
	ChaosModePassthrough ChaosMode = iota

	// ChaosModeInject enables fault-rate injection.
	ChaosModeInject
)

// Chaos wraps the system call tables of the stream and descriptor backends
// and injects random failures for testing.
//
// Injected failures are real errno values wrapped in [InjectedError], so the
// backends translate them exactly like real failures: EINTR becomes
// [StatusRetry], everything else [StatusFailed] with a platform code.
//
// Chaos is safe for concurrent use. The zero mode is
// [ChaosModePassthrough]; call [Chaos.SetMode] to start injecting.
type Chaos struct {
	rng    *rand.Rand
	mu     sync.Mutex
	config ChaosConfig
	mode   atomic.Uint32

	// Counters for testing verification
	openFails     atomic.Int64
	interrupts    atomic.Int64
	readFails     atomic.Int64
	partialReads  atomic.Int64
	writeFails    atomic.Int64
	partialWrites atomic.Int64
	seekFails     atomic.Int64
	truncateFails atomic.Int64
}

// NewChaos creates a fault injector. The seed controls random fault
// injection for reproducibility.
func NewChaos(seed int64, config ChaosConfig) *Chaos {
	return &Chaos{
		rng:    rand.New(rand.NewSource(seed)),
		config: config,
	}
}

// SetMode updates Chaos behavior. Safe to call concurrently with I/O.
func (c *Chaos) SetMode(m ChaosMode) { c.mode.Store(uint32(m)) }

// ChaosStats contains counts of injected faults.
type ChaosStats struct {
	OpenFails     int64
	Interrupts    int64
	ReadFails     int64
	PartialReads  int64
	WriteFails    int64
	PartialWrites int64
	SeekFails     int64
	TruncateFails int64
}

// Stats returns the current fault injection counts.
func (c *Chaos) Stats() ChaosStats {
	return ChaosStats{
		OpenFails:     c.openFails.Load(),
		Interrupts:    c.interrupts.Load(),
		ReadFails:     c.readFails.Load(),
		PartialReads:  c.partialReads.Load(),
		WriteFails:    c.writeFails.Load(),
		PartialWrites: c.partialWrites.Load(),
		SeekFails:     c.seekFails.Load(),
		TruncateFails: c.truncateFails.Load(),
	}
}

// TotalFaults returns the total number of injected faults.
func (c *Chaos) TotalFaults() int64 {
	s := c.Stats()

	return s.OpenFails + s.Interrupts + s.ReadFails + s.PartialReads +
		s.WriteFails + s.PartialWrites + s.SeekFails + s.TruncateFails
}

// StreamFS wraps inner so that opened streams inject faults.
func (c *Chaos) StreamFS(inner StreamFS) StreamFS {
	return &chaosStreamFS{fs: inner, chaos: c}
}

// Stream wraps an already open stream.
func (c *Chaos) Stream(inner Stream) Stream {
	return &chaosStream{s: inner, chaos: c}
}

// FdFuncs wraps inner so that its system calls inject faults.
func (c *Chaos) FdFuncs(inner FdFuncs) FdFuncs {
	return &chaosFdFuncs{funcs: inner, chaos: c}
}

// InjectedError marks an error as intentionally injected by [Chaos].
//
// It wraps the underlying error so errors.Is/As continue to work.
type InjectedError struct {
	Err error
}

// Error returns the underlying error's message. Panics if e or e.Err is nil.
func (e *InjectedError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error. Panics if e is nil.
func (e *InjectedError) Unwrap() error {
	return e.Err
}

// IsInjected reports whether err (or any wrapped error) was injected by
// [Chaos]. Returns false if err is nil.
func IsInjected(err error) bool {
	var injected *InjectedError

	return errors.As(err, &injected)
}

// --- Private api ---

func (c *Chaos) injecting() bool {
	return ChaosMode(c.mode.Load()) == ChaosModeInject
}

// should returns true with the given probability when chaos is injecting.
func (c *Chaos) should(rate float64) bool {
	if !c.injecting() || rate <= 0 {
		return false
	}

	return c.randFloat() < rate
}

// randFloat returns a random float64 in [0.0, 1.0) (thread-safe).
func (c *Chaos) randFloat() float64 {
	c.mu.Lock()
	result := c.rng.Float64()
	c.mu.Unlock()

	return result
}

// randIntn returns a random int in [0, n) (thread-safe).
func (c *Chaos) randIntn(n int) int {
	c.mu.Lock()
	result := c.rng.Intn(n)
	c.mu.Unlock()

	return result
}

// pickError selects an errno that the operation could really fail with.
func (c *Chaos) pickError(op string) error {
	var valid []syscall.Errno

	switch op {
	case "open":
		valid = []syscall.Errno{syscall.EACCES, syscall.EIO, syscall.EMFILE, syscall.ENOENT}
	case "write", "truncate":
		valid = []syscall.Errno{syscall.EIO, syscall.ENOSPC}
	default:
		valid = []syscall.Errno{syscall.EIO}
	}

	return &InjectedError{Err: valid[c.randIntn(len(valid))]}
}

func injectedErrno(errno syscall.Errno) error {
	return &InjectedError{Err: errno}
}

// cut returns a random length in [1, n-1] for a partial transfer of n bytes.
// Callers ensure n > 1.
func (c *Chaos) cut(n int) int {
	return c.randIntn(n-1) + 1
}

// beforeRead decides the fate of a read of n bytes: an error to return, or
// the number of bytes to request from the wrapped backend.
func (c *Chaos) beforeRead(n int) (int, error) {
	if c.should(c.config.InterruptRate) {
		c.interrupts.Add(1)

		return 0, injectedErrno(syscall.EINTR)
	}

	if c.should(c.config.ReadFailRate) {
		c.readFails.Add(1)

		return 0, c.pickError("read")
	}

	// Limit the underlying read, not just the returned count, so no bytes
	// are skipped.
	if n > 1 && c.should(c.config.PartialReadRate) {
		c.partialReads.Add(1)

		return c.cut(n), nil
	}

	return n, nil
}

// beforeWrite is beforeRead for writes.
func (c *Chaos) beforeWrite(n int) (int, error) {
	if c.should(c.config.InterruptRate) {
		c.interrupts.Add(1)

		return 0, injectedErrno(syscall.EINTR)
	}

	if c.should(c.config.WriteFailRate) {
		c.writeFails.Add(1)

		return 0, c.pickError("write")
	}

	if n > 1 && c.should(c.config.PartialWriteRate) {
		c.partialWrites.Add(1)

		return c.cut(n), nil
	}

	return n, nil
}

func (c *Chaos) beforeOpen() error {
	if c.should(c.config.OpenFailRate) {
		c.openFails.Add(1)

		return c.pickError("open")
	}

	return nil
}

func (c *Chaos) beforeSeek() error {
	if c.should(c.config.SeekFailRate) {
		c.seekFails.Add(1)

		return c.pickError("seek")
	}

	return nil
}

func (c *Chaos) beforeTruncate() error {
	if c.should(c.config.TruncateFailRate) {
		c.truncateFails.Add(1)

		return c.pickError("truncate")
	}

	return nil
}

// --- Streams ---

type chaosStreamFS struct {
	fs    StreamFS
	chaos *Chaos
}

func (c *chaosStreamFS) OpenFile(path string, flag int, perm fs.FileMode) (Stream, error) {
	if err := c.chaos.beforeOpen(); err != nil {
		return nil, &fs.PathError{Op: "open", Path: path, Err: err}
	}

	s, err := c.fs.OpenFile(path, flag, perm)
	if err != nil {
		return nil, err
	}

	return &chaosStream{s: s, chaos: c.chaos}, nil
}

type chaosStream struct {
	s     Stream
	chaos *Chaos
}

func (cs *chaosStream) Read(p []byte) (int, error) {
	n, err := cs.chaos.beforeRead(len(p))
	if err != nil {
		return 0, err
	}

	return cs.s.Read(p[:n])
}

func (cs *chaosStream) Write(p []byte) (int, error) {
	n, err := cs.chaos.beforeWrite(len(p))
	if err != nil {
		return 0, err
	}

	written, err := cs.s.Write(p[:n])
	if err == nil && written < len(p) {
		// A stream reports a short write with an error, like [os.File].
		err = injectedErrno(syscall.EIO)
	}

	return written, err
}

func (cs *chaosStream) Seek(offset int64, whence int) (int64, error) {
	if err := cs.chaos.beforeSeek(); err != nil {
		return 0, err
	}

	return cs.s.Seek(offset, whence)
}

func (cs *chaosStream) Truncate(size int64) error {
	if err := cs.chaos.beforeTruncate(); err != nil {
		return err
	}

	return cs.s.Truncate(size)
}

func (cs *chaosStream) Close() error {
	return cs.s.Close()
}

func (cs *chaosStream) Fd() uintptr {
	return cs.s.Fd()
}

func (cs *chaosStream) Stat() (fs.FileInfo, error) {
	return cs.s.Stat()
}

// --- Descriptors ---

type chaosFdFuncs struct {
	funcs FdFuncs
	chaos *Chaos
}

func (c *chaosFdFuncs) Open(path string, flags int, perm uint32) (int, error) {
	if err := c.chaos.beforeOpen(); err != nil {
		return -1, err
	}

	return c.funcs.Open(path, flags, perm)
}

func (c *chaosFdFuncs) Fstat(fd int) (fs.FileMode, error) {
	return c.funcs.Fstat(fd)
}

func (c *chaosFdFuncs) Close(fd int) error {
	return c.funcs.Close(fd)
}

func (c *chaosFdFuncs) Ftruncate(fd int, size int64) error {
	if err := c.chaos.beforeTruncate(); err != nil {
		return err
	}

	return c.funcs.Ftruncate(fd, size)
}

func (c *chaosFdFuncs) Seek(fd int, offset int64, whence int) (int64, error) {
	if err := c.chaos.beforeSeek(); err != nil {
		return 0, err
	}

	return c.funcs.Seek(fd, offset, whence)
}

func (c *chaosFdFuncs) Read(fd int, p []byte) (int, error) {
	n, err := c.chaos.beforeRead(len(p))
	if err != nil {
		return 0, err
	}

	return c.funcs.Read(fd, p[:n])
}

func (c *chaosFdFuncs) Write(fd int, p []byte) (int, error) {
	n, err := c.chaos.beforeWrite(len(p))
	if err != nil {
		return 0, err
	}

	return c.funcs.Write(fd, p[:n])
}

// Compile-time interface checks.
var (
	_ StreamFS = (*chaosStreamFS)(nil)
	_ Stream   = (*chaosStream)(nil)
	_ FdFuncs  = (*chaosFdFuncs)(nil)
)
