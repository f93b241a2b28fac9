package logflags

import "testing"

func resetFlags() {
	elfFlag, dwarfFlag, processFlag = false, false, false
	stopointFlag, targetFlag, rpc, debugLineErrors = false, false, false, false
}

func TestSetup_withLogDisabled(t *testing.T) {
	resetFlags()
	if err := Setup(false, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if Elf() || Dwarf() || Process() || Stopoint() || Target() || RPC() {
		t.Fatalf("expected every layer flag to remain false")
	}
}

func TestSetup_logOutputWithoutLogIsAnError(t *testing.T) {
	resetFlags()
	if err := Setup(false, "target"); err != errLogstrWithoutLog {
		t.Fatalf("expected errLogstrWithoutLog, got %v", err)
	}
}

func TestSetup_defaultsToTarget(t *testing.T) {
	resetFlags()
	if err := Setup(true, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !Target() {
		t.Fatalf("expected target logging to default on")
	}
	if Elf() || Dwarf() || Process() || Stopoint() || RPC() {
		t.Fatalf("expected only target to be enabled")
	}
}

func TestSetup_selectsNamedLayers(t *testing.T) {
	resetFlags()
	if err := Setup(true, "elf,dwarf,debuglineerr"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !Elf() || !Dwarf() || !DebugLineErrors() {
		t.Fatalf("expected elf, dwarf and debuglineerr to be enabled")
	}
	if Process() || Stopoint() || Target() || RPC() {
		t.Fatalf("expected unnamed layers to stay disabled")
	}
}

func TestLoggers_levelFollowsFlag(t *testing.T) {
	resetFlags()
	if err := Setup(true, "process,rpc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ProcessLogger().Logger.Level.String() != "debug" {
		t.Fatalf("expected an enabled layer's logger to run at debug level")
	}
	if DwarfLogger().Logger.Level.String() != "panic" {
		t.Fatalf("expected a disabled layer's logger to run at panic level")
	}
}
