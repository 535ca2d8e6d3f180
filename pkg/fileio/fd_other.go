//go:build !unix

package fileio

import (
	"errors"
	"io/fs"
)

type realFdFuncs struct{}

func (realFdFuncs) Open(string, int, uint32) (int, error) {
	return -1, errors.ErrUnsupported
}

func (realFdFuncs) Fstat(int) (fs.FileMode, error) {
	return 0, errors.ErrUnsupported
}

func (realFdFuncs) Close(int) error {
	return errors.ErrUnsupported
}

func (realFdFuncs) Ftruncate(int, int64) error {
	return errors.ErrUnsupported
}

func (realFdFuncs) Seek(int, int64, int) (int64, error) {
	return 0, errors.ErrUnsupported
}

func (realFdFuncs) Read(int, []byte) (int, error) {
	return 0, errors.ErrUnsupported
}

func (realFdFuncs) Write(int, []byte) (int, error) {
	return 0, errors.ErrUnsupported
}
