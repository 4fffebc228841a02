//go:build unix

package job

import (
	"os/exec"
	"syscall"
)

// detach puts the process into its own process group, so a terminal Ctrl+C
// sent to the foreground group reaches only jobvisor. Cancellation kills the
// whole group, including children spawned by a shell.
func detach(c *exec.Cmd) {
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error {
		// the process leads its group, so pgid == pid
		if err := syscall.Kill(-c.Process.Pid, syscall.SIGKILL); err != nil {
			return c.Process.Kill()
		}
		return nil
	}
}
