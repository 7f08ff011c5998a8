//go:build windows

package core

import (
	"syscall"
	"unsafe"
)

var (
	kernel32           = syscall.NewLazyDLL("kernel32.dll")
	openProcess        = kernel32.NewProc("OpenProcess")
	closeHandle        = kernel32.NewProc("CloseHandle")
	getExitCodeProcess = kernel32.NewProc("GetExitCodeProcess")
)

const (
	processQueryLimitedInformation = 0x1000
	stillActive                    = 259
)

func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	handle, _, _ := openProcess.Call(processQueryLimitedInformation, 0, uintptr(pid))
	if handle == 0 {
		return false
	}
	defer closeHandle.Call(handle)

	var code uint32
	if ok, _, _ := getExitCodeProcess.Call(handle, uintptr(unsafe.Pointer(&code))); ok == 0 {
		return false
	}
	return code == stillActive
}
