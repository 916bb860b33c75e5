//go:build linux

package runner

import (
	"os/exec"
	"syscall"
)

// peakRSSKb reads the child's maximum resident set size from its rusage.
// Only an estimate: it reflects the direct child, not the whole tree.
func peakRSSKb(cmd *exec.Cmd) int {
	if cmd.ProcessState == nil {
		return 0
	}
	if ru, ok := cmd.ProcessState.SysUsage().(*syscall.Rusage); ok {
		return int(ru.Maxrss)
	}
	return 0
}
