//go:build unix

package fileio

import (
	"io/fs"

	"golang.org/x/sys/unix"
)

type realFdFuncs struct{}

func (realFdFuncs) Open(path string, flags int, perm uint32) (int, error) {
	for {
		fd, err := unix.Open(path, flags|unix.O_CLOEXEC, perm)
		if err == unix.EINTR {
			continue
		}

		return fd, err
	}
}

func (realFdFuncs) Fstat(fd int) (fs.FileMode, error) {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return 0, err
	}

	return statMode(uint32(st.Mode)), nil
}

func (realFdFuncs) Close(fd int) error {
	return unix.Close(fd)
}

func (realFdFuncs) Ftruncate(fd int, size int64) error {
	return unix.Ftruncate(fd, size)
}

func (realFdFuncs) Seek(fd int, offset int64, whence int) (int64, error) {
	return unix.Seek(fd, offset, whence)
}

func (realFdFuncs) Read(fd int, p []byte) (int, error) {
	return unix.Read(fd, p)
}

func (realFdFuncs) Write(fd int, p []byte) (int, error) {
	return unix.Write(fd, p)
}

// statMode converts the type bits of a raw st_mode.
func statMode(raw uint32) fs.FileMode {
	mode := fs.FileMode(raw & 0o777)

	switch raw & unix.S_IFMT {
	case unix.S_IFDIR:
		mode |= fs.ModeDir
	case unix.S_IFCHR:
		mode |= fs.ModeDevice | fs.ModeCharDevice
	case unix.S_IFBLK:
		mode |= fs.ModeDevice
	case unix.S_IFIFO:
		mode |= fs.ModeNamedPipe
	case unix.S_IFLNK:
		mode |= fs.ModeSymlink
	case unix.S_IFSOCK:
		mode |= fs.ModeSocket
	}

	return mode
}
