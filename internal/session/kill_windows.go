//go:build windows

package session

import "os"

// killGroup kills the shell itself; Windows has no process groups to signal.
func killGroup(p *os.Process) error {
	return p.Kill()
}
