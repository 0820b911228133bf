//go:build !windows

package registry

import (
	"bytes"
	"os"
	"runtime"
	"strconv"
	"syscall"
)

// processAlive probes pid with signal 0. On Linux a quickly-exiting child can
// linger as a zombie until reaped; a zombie is treated as not alive.
func processAlive(pid int) bool {
	if runtime.GOOS == "linux" && isZombieLinux(pid) {
		return false
	}
	return syscall.Kill(pid, 0) == nil
}

// isZombieLinux returns true if /proc/<pid>/status reports state Z.
func isZombieLinux(pid int) bool {
	b, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/status")
	if err != nil {
		return false
	}
	return bytes.Contains(b, []byte("State:\tZ"))
}
