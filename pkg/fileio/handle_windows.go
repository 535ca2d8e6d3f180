//go:build windows

package fileio

import (
	"errors"

	"golang.org/x/sys/windows"
)

type realHandleFuncs struct{}

func (realHandleFuncs) CreateFile(path []uint16, access, share, creation, attrs uint32) (Handle, error) {
	name := make([]uint16, len(path)+1)
	copy(name, path)

	h, err := windows.CreateFile(&name[0], access, share, nil, creation, attrs, 0)
	if err != nil {
		return InvalidHandle, err
	}

	return Handle(h), nil
}

func (realHandleFuncs) Close(h Handle) error {
	return windows.CloseHandle(windows.Handle(h))
}

func (realHandleFuncs) Read(h Handle, p []byte) (int, error) {
	var done uint32

	err := windows.ReadFile(windows.Handle(h), p, &done, nil)
	if errors.Is(err, windows.ERROR_HANDLE_EOF) || errors.Is(err, windows.ERROR_BROKEN_PIPE) {
		return 0, nil
	}

	return int(done), err
}

func (realHandleFuncs) Write(h Handle, p []byte) (int, error) {
	var done uint32

	err := windows.WriteFile(windows.Handle(h), p, &done, nil)

	return int(done), err
}

func (realHandleFuncs) SetFilePointer(h Handle, dist int64, method uint32) (int64, error) {
	var pos int64

	err := windows.SetFilePointerEx(windows.Handle(h), dist, &pos, method)

	return pos, err
}

func (realHandleFuncs) SetEndOfFile(h Handle) error {
	return windows.SetEndOfFile(windows.Handle(h))
}

func (realHandleFuncs) IsDirectory(h Handle) (bool, error) {
	var info windows.ByHandleFileInformation
	if err := windows.GetFileInformationByHandle(windows.Handle(h), &info); err != nil {
		return false, err
	}

	return info.FileAttributes&windows.FILE_ATTRIBUTE_DIRECTORY != 0, nil
}
