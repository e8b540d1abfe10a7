//go:build unix

package process

import (
	"os"
	"syscall"
)

func pauseProcess(p *os.Process) error { return p.Signal(syscall.SIGSTOP) }

func resumeProcess(p *os.Process) error { return p.Signal(syscall.SIGCONT) }

// interrupt continues a stopped process first, otherwise it could never handle
// the interrupt.
func interrupt(p *os.Process) error {
	_ = p.Signal(syscall.SIGCONT)
	return p.Signal(os.Interrupt)
}
