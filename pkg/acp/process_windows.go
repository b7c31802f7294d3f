//go:build windows

package acp

import (
	"os"

	"golang.org/x/sys/windows"
)

// processIsAlive checks if a spawned agent process is still running by
// opening a handle and inspecting its exit code.
func processIsAlive(proc *os.Process) bool {
	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(proc.Pid))
	if err != nil {
		return false
	}
	defer windows.CloseHandle(handle)

	var exitCode uint32
	if err := windows.GetExitCodeProcess(handle, &exitCode); err != nil {
		return false
	}
	// STILL_ACTIVE (259) means the process has not exited yet.
	return exitCode == 259
}

// sendGracefulStop asks the agent subprocess to shut down cleanly. Windows
// has no SIGTERM equivalent that every process honors, so this terminates
// it directly.
func sendGracefulStop(proc *os.Process) error {
	return proc.Kill()
}
