//go:build !windows

package session

import (
	"os"

	"golang.org/x/sys/unix"
)

// killPasses bounds how often killGroup rescans the session for processes
// forked while it was killing.
const killPasses = 3

// killGroup sends SIGKILL to the shell's process group and then to every
// other process still in the shell's terminal session. A job-control shell
// puts each background job in its own process group, so the group signal
// alone would leave those jobs running; they keep the shell's pid as their
// session id even after the shell is gone.
func killGroup(p *os.Process) error {
	sid := p.Pid
	members := sessionMembers(sid)

	var err error
	if kerr := unix.Kill(-p.Pid, unix.SIGKILL); kerr != nil && kerr != unix.ESRCH {
		err = p.Kill()
	}

	for pass := 0; pass < killPasses && len(members) > 0; pass++ {
		for _, pid := range members {
			_ = unix.Kill(pid, unix.SIGKILL)
		}
		members = sessionMembers(sid)
	}
	return err
}
