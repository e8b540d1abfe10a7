//go:build !unix

package process

import (
	"errors"
	"os"
)

func pauseProcess(p *os.Process) error { return errors.ErrUnsupported }

func resumeProcess(p *os.Process) error { return errors.ErrUnsupported }

// Windows cannot deliver os.Interrupt to a child process.
func interrupt(p *os.Process) error { return p.Kill() }
