//go:build !windows

package fileio

import "errors"

type realHandleFuncs struct{}

func (realHandleFuncs) CreateFile([]uint16, uint32, uint32, uint32, uint32) (Handle, error) {
	return InvalidHandle, errors.ErrUnsupported
}

func (realHandleFuncs) Close(Handle) error {
	return errors.ErrUnsupported
}

func (realHandleFuncs) Read(Handle, []byte) (int, error) {
	return 0, errors.ErrUnsupported
}

func (realHandleFuncs) Write(Handle, []byte) (int, error) {
	return 0, errors.ErrUnsupported
}

func (realHandleFuncs) SetFilePointer(Handle, int64, uint32) (int64, error) {
	return 0, errors.ErrUnsupported
}

func (realHandleFuncs) SetEndOfFile(Handle) error {
	return errors.ErrUnsupported
}

func (realHandleFuncs) IsDirectory(Handle) (bool, error) {
	return false, errors.ErrUnsupported
}
