package fileio

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// OpenFilename opens path in the given mode with the backend native to the
// platform: native handles on Windows, descriptors on Android and streams
// everywhere else. See [Backend].
func OpenFilename(f *File, path string, mode OpenMode) error {
	return openFilename(f, path, mode)
}

// OpenFilenameW is [OpenFilename] for a UTF-16 path.
func OpenFilenameW(f *File, path []uint16, mode OpenMode) error {
	return openFilenameW(f, path, mode)
}

// Backend names the backend used by [OpenFilename]: "handle", "fd" or
// "stream".
func Backend() string {
	return nativeBackend
}

// utf16ToString decodes a UTF-16 path, stopping at the first NUL. Unpaired
// surrogates are rejected.
func utf16ToString(path []uint16) (string, error) {
	path = trimNul(path)

	var b strings.Builder
	b.Grow(len(path))

	for i := 0; i < len(path); i++ {
		r := rune(path[i])

		if utf16.IsSurrogate(r) {
			if i+1 >= len(path) {
				return "", invalidPathError("Failed to convert WCS filename to MBS")
			}

			r = utf16.DecodeRune(r, rune(path[i+1]))
			if r == utf8.RuneError {
				return "", invalidPathError("Failed to convert WCS filename to MBS")
			}

			i++
		}

		b.WriteRune(r)
	}

	return b.String(), nil
}

// stringToUTF16 encodes a UTF-8 path. Invalid UTF-8 and embedded NULs are
// rejected.
func stringToUTF16(path string) ([]uint16, error) {
	if !utf8.ValidString(path) || strings.IndexByte(path, 0) >= 0 {
		return nil, invalidPathError("Failed to convert MBS filename to WCS")
	}

	return utf16.Encode([]rune(path)), nil
}

func invalidPathError(msg string) *Error {
	return NewError(StatusFatal, KindInvalidArgument, "%s", msg)
}
