package process

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/creack/pty"
	"github.com/mattn/go-isatty"
)

// attachTTY gives c's stdio a fresh pseudo-terminal, mirroring the
// teacher's attachProcessToTTY: the tracee's input and output are kept
// off the debugger's own stdin/stdout so the REPL's prompt never
// interleaves with the inferior's output mid-line. The returned file is
// the master end; callers read/write through it.
func attachTTY(c *exec.Cmd) (*os.File, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, err
	}
	if !isatty.IsTerminal(slave.Fd()) {
		master.Close()
		slave.Close()
		return nil, fmt.Errorf("%s is not a terminal", slave.Name())
	}
	c.Stdin = slave
	c.Stdout = slave
	c.Stderr = slave
	c.SysProcAttr.Setsid = true
	c.SysProcAttr.Setctty = true
	return master, nil
}
