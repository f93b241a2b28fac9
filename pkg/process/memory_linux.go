package process

import (
	"golang.org/x/sys/unix"

	"github.com/tracewell/tracewell/pkg/primitives"
)

// processVmRead reads data from the tracee via process_vm_readv, which
// avoids the word-at-a-time overhead of PTRACE_PEEKDATA for bulk reads.
func processVmRead(pid int, addr uintptr, data []byte) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}
	local := []unix.Iovec{{Base: &data[0], Len: uint64(len(data))}}
	remote := []unix.RemoteIovec{{Base: addr, Len: len(data)}}
	return unix.ProcessVMReadv(pid, local, remote, 0)
}

// processVmWrite is processVmRead's write counterpart.
func processVmWrite(pid int, addr uintptr, data []byte) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}
	local := []unix.Iovec{{Base: &data[0], Len: uint64(len(data))}}
	remote := []unix.RemoteIovec{{Base: addr, Len: len(data)}}
	return unix.ProcessVMWritev(pid, local, remote, 0)
}

// ReadMemory reads n bytes from the tracee's address space at addr,
// including the 0xCC trap byte of any installed software breakpoint;
// callers wanting the original program bytes must use
// ReadMemoryWithoutTraps, per spec §4.5's distinction between the two.
func (p *Process) ReadMemory(addr uint64, n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := processVmRead(p.Pid, uintptr(addr), buf); err == nil {
		return buf, nil
	}
	if _, err := unix.PtracePeekData(p.Pid, uintptr(addr), buf); err != nil {
		return nil, primitives.Wrap(primitives.KindOS, component, err)
	}
	return buf, nil
}

// ReadMemoryWithoutTraps is ReadMemory with every installed software
// breakpoint's original byte masked back in, per spec §5's
// read_memory_without_traps invariant.
func (p *Process) ReadMemoryWithoutTraps(addr uint64, n int) ([]byte, error) {
	buf, err := p.ReadMemory(addr, n)
	if err != nil {
		return nil, err
	}
	for siteAddr, site := range p.installed {
		if siteAddr >= addr && siteAddr < addr+uint64(n) {
			buf[siteAddr-addr] = site.original
		}
	}
	return buf, nil
}

// WriteMemory writes data into the tracee's address space at addr.
func (p *Process) WriteMemory(addr uint64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if _, err := processVmWrite(p.Pid, uintptr(addr), data); err == nil {
		return nil
	}
	if _, err := unix.PtracePokeData(p.Pid, uintptr(addr), data); err != nil {
		return primitives.Wrap(primitives.KindOS, component, err)
	}
	return nil
}

// ReadString reads exactly n bytes at addr and returns them as a string,
// for fixed-length char arrays.
func (p *Process) ReadString(addr uint64, n int) (string, error) {
	buf, err := p.ReadMemory(addr, n)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// readStringPageSize is the chunk size ReadCString reads at a time while
// scanning for a terminating NUL.
const readStringPageSize = 64

// ReadCString reads a NUL-terminated string starting at addr, one chunk
// at a time, per spec §4.7's visualization support for char* values.
func (p *Process) ReadCString(addr uint64) (string, error) {
	var out []byte
	for {
		chunk, err := p.ReadMemory(addr, readStringPageSize)
		if err != nil {
			if len(out) > 0 {
				return string(out), nil
			}
			return "", err
		}
		if idx := indexByte(chunk, 0); idx >= 0 {
			out = append(out, chunk[:idx]...)
			return string(out), nil
		}
		out = append(out, chunk...)
		addr += uint64(len(chunk))
		if len(out) > 1<<20 {
			return string(out), primitives.Newf(primitives.KindInvariant, component, "string at 0x%x exceeds maximum length without a terminator", addr)
		}
	}
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}
