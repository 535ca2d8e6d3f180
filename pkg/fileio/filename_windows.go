//go:build windows

package fileio

const nativeBackend = "handle"

func openFilename(f *File, path string, mode OpenMode) error {
	return OpenHandleFilename(f, path, mode)
}

func openFilenameW(f *File, path []uint16, mode OpenMode) error {
	return OpenHandleFilenameW(f, path, mode)
}
