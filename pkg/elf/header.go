package elf

import "encoding/binary"

// Constants from the ELF64 and section/symbol header layouts this loader
// understands. Only what §6 of the spec requires is modeled: ET_EXEC/ET_DYN
// little-endian EM_X86_64 objects.
const (
	magic0, magic1, magic2, magic3 = 0x7f, 'E', 'L', 'F'

	classNone = 0
	class32   = 1
	class64   = 2

	dataNone   = 0
	dataLittle = 1
	dataBig    = 2

	ET_EXEC = 2
	ET_DYN  = 3

	EM_X86_64 = 62

	SHT_SYMTAB = 2
	SHT_STRTAB = 3
	SHT_DYNSYM = 11

	PT_DYNAMIC = 2

	DT_DEBUG = 21
)

// Header64 is the ELF64 file header, exactly as laid out on disk.
type Header64 struct {
	Ident     [16]byte
	Type      uint16
	Machine   uint16
	Version   uint32
	Entry     uint64
	Phoff     uint64
	Shoff     uint64
	Flags     uint32
	Ehsize    uint16
	Phentsize uint16
	Phnum     uint16
	Shentsize uint16
	Shnum     uint16
	Shstrndx  uint16
}

// SectionHeader64 is one entry of the ELF64 section header table.
type SectionHeader64 struct {
	Name      uint32
	Type      uint32
	Flags     uint64
	Addr      uint64
	Off       uint64
	Size      uint64
	Link      uint32
	Info      uint32
	AddrAlign uint64
	EntSize   uint64
}

// ProgramHeader64 is one entry of the ELF64 program header table.
type ProgramHeader64 struct {
	Type   uint32
	Flags  uint32
	Off    uint64
	Vaddr  uint64
	Paddr  uint64
	Filesz uint64
	Memsz  uint64
	Align  uint64
}

// Sym64 is one entry of an ELF64 symbol table (.symtab or .dynsym).
type Sym64 struct {
	Name  uint32
	Info  uint8
	Other uint8
	Shndx uint16
	Value uint64
	Size  uint64
}

var byteOrder = binary.LittleEndian

func validIdent(b []byte) bool {
	return len(b) >= 16 && b[0] == magic0 && b[1] == magic1 && b[2] == magic2 && b[3] == magic3 &&
		b[4] == class64 && b[5] == dataLittle
}
