package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/tracewell/tracewell/pkg/config"
	"github.com/tracewell/tracewell/pkg/primitives"
	"github.com/tracewell/tracewell/pkg/process"
	"github.com/tracewell/tracewell/pkg/registers"
	"github.com/tracewell/tracewell/pkg/stopoint"
	"github.com/tracewell/tracewell/pkg/target"
)

// cmdFunc is one REPL command's implementation, mirroring the teacher's
// cmdfunc shape in pkg/terminal/command.go, minus the RPC client that
// shape threads through (tracewell drives pkg/target in-process; see
// DESIGN.md).
type cmdFunc func(t *target.Target, args string) error

type replCommand struct {
	aliases []string
	helpMsg string
	fn      cmdFunc
}

func (c replCommand) match(name string) bool {
	for _, a := range c.aliases {
		if a == name {
			return true
		}
	}
	return false
}

var commands = buildCommands()

func buildCommands() []replCommand {
	cmds := []replCommand{
		{[]string{"break", "b"}, "break <addr|func|file:line>  set a breakpoint", cmdBreak},
		{[]string{"watch"}, "watch <addr> <r|w|rw> <1|2|4|8>  set a watchpoint", cmdWatch},
		{[]string{"continue", "c"}, "continue  resume execution", cmdContinue},
		{[]string{"step", "s"}, "step  step into the next source line", cmdStep},
		{[]string{"next", "n"}, "next  step over the next source line", cmdNext},
		{[]string{"stepout", "so"}, "stepout  run until the current function returns", cmdStepOut},
		{[]string{"regs"}, "regs  print the tracee's general-purpose registers", cmdRegs},
		{[]string{"quit", "q"}, "quit  detach and exit", cmdQuit},
		{[]string{"help", "h"}, "help  print this message", nil},
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].aliases[0] < cmds[j].aliases[0] })
	return cmds
}

var errQuit = fmt.Errorf("quit")

// runREPL reads commands from stdin until eof or "quit", dispatching
// through the same alias-matched command table shape as the teacher's
// terminal package, splitting quoted arguments with
// config.SplitQuotedFields instead of pulling in a third-party argv
// parser.
func runREPL(t *target.Target) error {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("(tracewell) ")
		if !scanner.Scan() {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := config.SplitQuotedFields(line, '"')
		name, rest := fields[0], strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

		if name == "help" || name == "h" {
			printHelp()
			continue
		}

		found := false
		for _, c := range commands {
			if c.match(name) {
				found = true
				if err := c.fn(t, rest); err != nil {
					if err == errQuit {
						return nil
					}
					fmt.Fprintln(os.Stderr, err)
				}
				break
			}
		}
		if !found {
			fmt.Fprintf(os.Stderr, "unknown command %q, type help for a list\n", name)
		}
	}
}

func printHelp() {
	for _, c := range commands {
		fmt.Println("  " + c.helpMsg)
	}
}

func cmdQuit(t *target.Target, args string) error { return errQuit }

func cmdContinue(t *target.Target, args string) error {
	return reportStop(t.Process.Resume(0), t)
}

func cmdStep(t *target.Target, args string) error {
	reason, err := t.StepIn()
	return reportStopReason(reason, err)
}

func cmdNext(t *target.Target, args string) error {
	reason, err := t.StepOver()
	return reportStopReason(reason, err)
}

func cmdStepOut(t *target.Target, args string) error {
	reason, err := t.StepOut()
	return reportStopReason(reason, err)
}

func cmdRegs(t *target.Target, args string) error {
	for _, name := range []string{"rip", "rsp", "rbp", "rax", "rbx", "rcx", "rdx"} {
		info, ok := registers.ByName(name)
		if !ok {
			continue
		}
		v, err := t.Process.Registers().ReadUint(info.ID)
		if err != nil {
			return err
		}
		fmt.Printf("%-5s 0x%016x\n", name, v)
	}
	return nil
}

func cmdBreak(t *target.Target, args string) error {
	args = strings.TrimSpace(args)
	if args == "" {
		return fmt.Errorf("break requires a target")
	}
	var bp *stopoint.Breakpoint
	switch {
	case strings.HasPrefix(args, "0x"):
		v, err := strconv.ParseUint(args[2:], 16, 64)
		if err != nil {
			return err
		}
		bp = t.Breakpoints.CreateAddressBreakpoint(primitives.VirtAddr{Value: v}, false)
	case strings.Contains(args, ":"):
		parts := strings.SplitN(args, ":", 2)
		line, err := strconv.Atoi(parts[1])
		if err != nil {
			return err
		}
		bp = t.Breakpoints.CreateLineBreakpoint(parts[0], line, false)
	default:
		bp = t.Breakpoints.CreateFunctionBreakpoint(args, false)
	}
	if err := bp.Enable(t); err != nil {
		return err
	}
	fmt.Printf("breakpoint %d set at %s\n", bp.ID, args)
	return nil
}

func cmdWatch(t *target.Target, args string) error {
	fields := strings.Fields(args)
	if len(fields) != 3 {
		return fmt.Errorf("usage: watch <addr> <r|w|rw> <1|2|4|8>")
	}
	addr, err := strconv.ParseUint(strings.TrimPrefix(fields[0], "0x"), 16, 64)
	if err != nil {
		return err
	}
	var mode registers.WatchMode
	switch fields[1] {
	case "r", "rw":
		mode = registers.WatchReadWrite
	case "w":
		mode = registers.WatchWrite
	default:
		return fmt.Errorf("mode must be r, w, or rw")
	}
	size, err := strconv.Atoi(fields[2])
	if err != nil {
		return err
	}
	wp := t.Breakpoints.CreateWatchpoint(primitives.VirtAddr{Value: addr}, mode, size)
	if err := wp.Enable(); err != nil {
		return err
	}
	fmt.Printf("watchpoint %d set at 0x%x\n", wp.ID, addr)
	return nil
}

func reportStop(err error, t *target.Target) error {
	if err != nil {
		return err
	}
	reason, err := t.Process.WaitOnSignal()
	return reportStopReason(reason, err)
}

func reportStopReason(reason process.StopReason, err error) error {
	if err != nil {
		return err
	}
	switch reason.State {
	case process.StateExited:
		fmt.Printf("process exited with status %d\n", reason.ExitStatus)
		return errQuit
	case process.StateTerminated:
		fmt.Printf("process terminated by signal %v\n", reason.Signal)
		return errQuit
	default:
		fmt.Printf("stopped, trap=%v\n", reason.TrapType)
		return nil
	}
}
