package fsh

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/calvinalkan/patchkit/pkg/fileio"
)

// Session is one file opened for inspection.
type Session struct {
	file    *fileio.File
	cfg     Config
	path    string
	backend string
	logger  *slog.Logger

	// dir resolves relative paths given to commands. Empty uses the process
	// working directory.
	dir string

	// mem is the live buffer of the memory backend, nil otherwise.
	mem *[]byte
}

// OpenSession opens path with the backend and mode from cfg.
//
// On failure the returned error carries the File's status and message, so
// callers can print it as is.
func OpenSession(cfg Config, path string, logger *slog.Logger) (*Session, error) {
	if path == "" {
		return nil, ErrPathRequired
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	// Every record carries a per-session id.
	logger = logger.With(slog.String("session", uuid.NewString()))

	s := &Session{
		file:    fileio.New(fileio.WithLogger(logger)),
		cfg:     cfg,
		path:    path,
		backend: cfg.Backend,
		logger:  logger,
	}

	if err := s.open(); err != nil {
		_ = s.file.Close()

		return nil, fmt.Errorf("opening %s (%s backend): %w", path, s.backend, err)
	}

	logger.Debug("session opened", slog.String("path", path), slog.String("backend", s.backend),
		slog.String("mode", cfg.Mode))

	return s, nil
}

func (s *Session) open() error {
	mode := s.cfg.OpenMode()

	switch s.backend {
	case "auto":
		s.backend = fileio.Backend()

		return fileio.OpenFilename(s.file, s.path, mode)
	case "stream":
		return fileio.OpenStreamFilename(s.file, s.path, mode)
	case "fd":
		return fileio.OpenFdFilename(s.file, s.path, mode)
	case "handle":
		return fileio.OpenHandleFilename(s.file, s.path, mode)
	case "memory":
		return s.openMemory(mode)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, s.backend)
	}
}

// openMemory loads the file into a growable buffer, applying the create and
// truncate rules of mode the way the path backends would.
func (s *Session) openMemory(mode fileio.OpenMode) error {
	data, err := os.ReadFile(s.path)

	switch {
	case err == nil:
	case os.IsNotExist(err) && mode != fileio.ModeReadOnly && mode != fileio.ModeReadWrite:
	default:
		return err
	}

	if mode == fileio.ModeWriteOnly || mode == fileio.ModeReadWriteTrunc {
		data = data[:0]
	}

	s.mem = &data

	return fileio.OpenMemoryDynamic(s.file, s.mem)
}

// File returns the underlying handle.
func (s *Session) File() *fileio.File {
	return s.file
}

// Backend returns the name of the backend in use. "auto" is resolved to the
// platform backend.
func (s *Session) Backend() string {
	return s.backend
}

// Close closes the file. The memory backend does not write its buffer
// back; use the save command for that.
func (s *Session) Close() error {
	err := s.file.Close()

	s.logger.Debug("session closed", slog.String("path", s.path))

	return err
}
