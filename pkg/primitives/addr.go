// Package primitives defines the address types, byte spans and bit-copy
// helpers shared by every other layer of tracewell. None of the types here
// know how to talk to a tracee; they only encode which address space a u64
// belongs to.
package primitives

import "fmt"

// FileAddr is an address as laid out in an ELF object: the value a linker
// would have written into the file, before any load bias is applied.
// Converting to a VirtAddr requires knowing which Elf it came from.
type FileAddr struct {
	Elf   ElfHandle
	Value uint64
}

// VirtAddr is an address as observed in the tracee's virtual memory.
type VirtAddr struct {
	Value uint64
}

// FileOffset is a byte offset into the mapped ELF file, as opposed to an
// address the file declares for its sections.
type FileOffset struct {
	Elf   ElfHandle
	Value uint64
}

// ElfHandle is satisfied by *elf.File. It is declared here, instead of
// importing the elf package directly, to avoid a dependency cycle: the elf
// package needs FileAddr and FileAddr needs to compare the owning object.
type ElfHandle interface {
	LoadBias() uint64
}

// NullVirtAddr is the zero value returned whenever an address conversion is
// attempted against the wrong ELF object.
var NullVirtAddr = VirtAddr{}

// ToVirt converts a FileAddr into the tracee's address space. It requires
// elf to be the same object the FileAddr was produced against; passing any
// other object yields the null address.
func (f FileAddr) ToVirt(elf ElfHandle) VirtAddr {
	if f.Elf != elf {
		return NullVirtAddr
	}
	return VirtAddr{Value: f.Value + elf.LoadBias()}
}

// ToFile is the inverse of FileAddr.ToVirt: it maps back into the file's
// declared address space by subtracting elf's load bias and tags the
// result with elf. It does not check that elf actually maps v.
func (v VirtAddr) ToFile(elf ElfHandle) FileAddr {
	return FileAddr{Elf: elf, Value: v.Value - elf.LoadBias()}
}

func (f FileAddr) IsNull() bool { return f.Elf == nil && f.Value == 0 }
func (v VirtAddr) IsNull() bool { return v.Value == 0 }

func (f FileAddr) Add(n uint64) FileAddr  { return FileAddr{Elf: f.Elf, Value: f.Value + n} }
func (v VirtAddr) Add(n uint64) VirtAddr  { return VirtAddr{Value: v.Value + n} }
func (f FileAddr) Sub(n uint64) FileAddr  { return FileAddr{Elf: f.Elf, Value: f.Value - n} }
func (v VirtAddr) Sub(n uint64) VirtAddr  { return VirtAddr{Value: v.Value - n} }

// Diff returns v - o as a signed distance in bytes.
func (v VirtAddr) Diff(o VirtAddr) int64 { return int64(v.Value) - int64(o.Value) }

func (v VirtAddr) Less(o VirtAddr) bool { return v.Value < o.Value }

func (f FileAddr) String() string { return fmt.Sprintf("file:0x%x", f.Value) }
func (v VirtAddr) String() string { return fmt.Sprintf("0x%x", v.Value) }
func (o FileOffset) String() string { return fmt.Sprintf("offset:0x%x", o.Value) }
