//go:build !windows
// +build !windows

package launcher

import (
	"syscall"

	"golang.org/x/sys/execabs"
	"golang.org/x/sys/unix"
)

// killGroupOnCancel makes the cancellation of c kill its process group.
// Processes started in a pseudo-terminal already lead their own session,
// only the others need a new group.
func killGroupOnCancel(c *execabs.Cmd, newGroup bool) {
	if newGroup {
		if c.SysProcAttr == nil {
			c.SysProcAttr = &syscall.SysProcAttr{}
		}
		c.SysProcAttr.Setpgid = true
	}
	c.Cancel = func() error {
		if err := unix.Kill(-c.Process.Pid, unix.SIGKILL); err != nil {
			return c.Process.Kill()
		}
		return nil
	}
}
