// Package fileio provides a portable, callback-driven file handle.
//
// A [File] is a byte-addressable stream whose open, close, read, write, seek
// and truncate operations are supplied as callbacks. The package ships
// backends for in-memory buffers, POSIX descriptors, [os.File]-like streams
// and Win32 handles, so code written against [File] behaves the same no
// matter where the bytes live.
//
// # Basic Usage
//
//	f := fileio.New()
//	defer f.Close()
//
//	if err := fileio.OpenFilename(f, "boot.img", fileio.ModeReadOnly); err != nil {
//	    return err
//	}
//
//	buf := make([]byte, 4096)
//	n, err := fileio.ReadFully(f, buf)
//
// In-memory buffers:
//
//	var data []byte
//	f := fileio.New()
//	fileio.OpenMemoryDynamic(f, &data) // data grows as f is written
//
// # Lifecycle
//
// A File moves through [StateNew], [StateOpened] and [StateClosed]. Callbacks
// are registered in StateNew only. Any operation that fails with
// [StatusFatal] moves the File to [StateFatal], after which only
// [File.Close] is allowed.
//
// # Error Handling
//
// Every failure is an [*Error] carrying a [Status] and a [Kind]:
//
//   - [StatusRetry] ([ErrRetry]): interrupted before any transfer; call again.
//     [ReadFully] and [WriteFully] do this for you.
//   - [StatusUnsupported]: the backend cannot do this (e.g. seeking a pipe).
//   - [StatusFailed]: the operation failed, the File is still usable.
//   - [StatusFatal] ([ErrFatal]): the File is unusable; close it.
//
// Platform failures unwrap to their [syscall.Errno]. The most recent error is
// also kept on the File ([File.Err], [File.ErrorString]).
//
// # Testing
//
// The descriptor, stream and handle backends take their system calls from a
// table ([FdFuncs], [StreamFS], [HandleFuncs]). Tests substitute mocks, or
// wrap the real tables with [Chaos] to inject interrupts, partial transfers
// and I/O errors.
package fileio
