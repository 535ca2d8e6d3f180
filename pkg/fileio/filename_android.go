//go:build android

package fileio

const nativeBackend = "fd"

func openFilename(f *File, path string, mode OpenMode) error {
	return OpenFdFilename(f, path, mode)
}

func openFilenameW(f *File, path []uint16, mode OpenMode) error {
	return OpenFdFilenameW(f, path, mode)
}
