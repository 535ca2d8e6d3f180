package fileio

import (
	"io/fs"
	"os"
)

type realStreamFS struct{}

// RealStreamFS returns the [StreamFS] backed by [os.OpenFile].
func RealStreamFS() StreamFS {
	return realStreamFS{}
}

func (realStreamFS) OpenFile(path string, flag int, perm fs.FileMode) (Stream, error) {
	f, err := os.OpenFile(path, flag, perm)
	if err != nil {
		return nil, err
	}

	return f, nil
}

// Compile-time interface check.
var _ Stream = (*os.File)(nil)
