// Command tracewell is the CLI entry point: it launches or attaches to a
// target, then hands control to an interactive REPL, mirroring the
// cobra-rooted command structure of the teacher's cmd/dlv, minus the
// separate RPC client/server split (see DESIGN.md).
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tracewell/tracewell/pkg/logflags"
	"github.com/tracewell/tracewell/pkg/target"
	"github.com/tracewell/tracewell/pkg/version"
)

var (
	logEnabled bool
	logFlags   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tracewell",
		Short: "tracewell is a native ptrace/DWARF debugger for Linux/x86-64.",
	}
	rootCmd.PersistentFlags().BoolVar(&logEnabled, "log", false, "enable layer logging")
	rootCmd.PersistentFlags().StringVar(&logFlags, "log-output", "", "comma-separated list of layers to log: elf,dwarf,process,stopoint,target,rpc")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "print the tracewell version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.String())
		},
	}

	execCmd := &cobra.Command{
		Use:   "exec <binary> [args...]",
		Short: "launch a binary under tracewell and begin debugging",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := logflags.Setup(logEnabled, logFlags); err != nil {
				return err
			}
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			t, err := target.Launch(args, wd, layerLogger())
			if err != nil {
				return err
			}
			defer t.Detach()
			return runREPL(t)
		},
	}

	attachCmd := &cobra.Command{
		Use:   "attach <pid> <binary>",
		Short: "attach to a running process and begin debugging",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := logflags.Setup(logEnabled, logFlags); err != nil {
				return err
			}
			pid, err := parsePid(args[0])
			if err != nil {
				return err
			}
			t, err := target.Attach(pid, args[1], layerLogger())
			if err != nil {
				return err
			}
			defer t.Detach()
			return runREPL(t)
		},
	}

	rootCmd.AddCommand(versionCmd, execCmd, attachCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func layerLogger() *logrus.Entry {
	if logflags.Target() {
		return logflags.TargetLogger()
	}
	return nil
}

func parsePid(s string) (int, error) {
	var pid int
	_, err := fmt.Sscanf(s, "%d", &pid)
	return pid, err
}
