//go:build windows

package registry

import "syscall"

const processQueryInformation = 0x0400

var (
	kernel32        = syscall.NewLazyDLL("kernel32.dll")
	procOpenProcess = kernel32.NewProc("OpenProcess")
	procCloseHandle = kernel32.NewProc("CloseHandle")
)

// processAlive checks whether a process handle can still be opened for pid.
func processAlive(pid int) bool {
	ret, _, _ := procOpenProcess.Call(uintptr(processQueryInformation), 0, uintptr(uint32(pid)))
	if ret == 0 {
		return false
	}
	_, _, _ = procCloseHandle.Call(ret)
	return true
}
