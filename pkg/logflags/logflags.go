// Package logflags turns the --log/--log-output CLI flags into per-layer
// logrus loggers, so each layer of tracewell (elf, dwarf, process,
// stopoint, target, rpc) can be switched on independently rather than
// all-or-nothing.
package logflags

import (
	"errors"
	"io/ioutil"
	"log"
	"strings"

	"github.com/sirupsen/logrus"
)

var elfFlag = false
var dwarfFlag = false
var processFlag = false
var stopointFlag = false
var targetFlag = false
var rpc = false
var debugLineErrors = false

func makeLogger(flag bool, fields logrus.Fields) *logrus.Entry {
	logger := logrus.New().WithFields(fields)
	logger.Logger.Level = logrus.DebugLevel
	if !flag {
		logger.Logger.Level = logrus.PanicLevel
	}
	return logger
}

// Elf returns true if the elf package should log.
func Elf() bool { return elfFlag }

// ElfLogger returns a configured logger for the elf package.
func ElfLogger() *logrus.Entry { return makeLogger(elfFlag, logrus.Fields{"layer": "elf"}) }

// Dwarf returns true if the dwarf package should log.
func Dwarf() bool { return dwarfFlag }

// DwarfLogger returns a configured logger for the dwarf package.
func DwarfLogger() *logrus.Entry { return makeLogger(dwarfFlag, logrus.Fields{"layer": "dwarf"}) }

// DebugLineErrors returns true if the dwarf line-number program should
// log the malformed rows it recovers from.
func DebugLineErrors() bool { return debugLineErrors }

// Process returns true if the process package should log.
func Process() bool { return processFlag }

// ProcessLogger returns a configured logger for the process package.
func ProcessLogger() *logrus.Entry {
	return makeLogger(processFlag, logrus.Fields{"layer": "process"})
}

// Stopoint returns true if the stopoint package should log.
func Stopoint() bool { return stopointFlag }

// StopointLogger returns a configured logger for the stopoint package.
func StopointLogger() *logrus.Entry {
	return makeLogger(stopointFlag, logrus.Fields{"layer": "stopoint"})
}

// Target returns true if the target package should log.
func Target() bool { return targetFlag }

// TargetLogger returns a configured logger for the target package.
func TargetLogger() *logrus.Entry { return makeLogger(targetFlag, logrus.Fields{"layer": "target"}) }

// RPC returns true if RPC messages exchanged with the CLI frontend
// should be logged.
func RPC() bool { return rpc }

// RPCLogger returns a logger for RPC messages.
func RPCLogger() *logrus.Entry { return makeLogger(rpc, logrus.Fields{"layer": "rpc"}) }

var errLogstrWithoutLog = errors.New("--log-output specified without --log")

// Setup sets layer log flags based on the contents of logstr, a
// comma-separated list of layer names.
func Setup(logFlag bool, logstr string) error {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	if !logFlag {
		log.SetOutput(ioutil.Discard)
		if logstr != "" {
			return errLogstrWithoutLog
		}
		return nil
	}
	if logstr == "" {
		logstr = "target"
	}
	for _, logcmd := range strings.Split(logstr, ",") {
		switch logcmd {
		case "elf":
			elfFlag = true
		case "dwarf":
			dwarfFlag = true
		case "debuglineerr":
			debugLineErrors = true
		case "process":
			processFlag = true
		case "stopoint":
			stopointFlag = true
		case "target":
			targetFlag = true
		case "rpc":
			rpc = true
		}
	}
	return nil
}
