package process

// StepOverBreakpointSite performs the disable/single-step/re-enable
// dance spec §4.5 requires when resuming from a PC that currently has a
// software breakpoint's 0xCC installed: the trap byte is masked out,
// one instruction executes, and the trap byte is restored before any
// other stop observer sees memory. pkg/target calls this rather than
// duplicating the byte-patching logic, since Process alone owns
// installed.
func (p *Process) StepOverBreakpointSite(addr uint64) error {
	site, ok := p.installed[addr]
	if !ok {
		return p.SingleStep()
	}
	if err := p.WriteMemory(addr, []byte{site.original}); err != nil {
		return err
	}
	defer p.WriteMemory(addr, []byte{0xCC})
	if err := p.SingleStep(); err != nil {
		return err
	}
	if _, err := p.WaitOnSignal(); err != nil {
		return err
	}
	return nil
}
