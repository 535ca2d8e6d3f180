//go:build !windows && !android

package fileio

const nativeBackend = "stream"

func openFilename(f *File, path string, mode OpenMode) error {
	return OpenStreamFilename(f, path, mode)
}

func openFilenameW(f *File, path []uint16, mode OpenMode) error {
	return OpenStreamFilenameW(f, path, mode)
}
