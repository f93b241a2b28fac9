// Package registers implements the register metadata table and typed
// access layer described in spec §4.4: a compile-time table of every
// register the debugger knows about, and a cache of one stop's worth of
// the tracee's "user area" that serves typed reads and keeps one dirty
// flag per register category (GPR, DR, FPR) for flush-on-resume;
// individual dirty words are not tracked.
package registers

import (
	"strconv"
	"unsafe"
)

// Category classifies how a register's bytes are addressed.
type Category int

const (
	CategoryGPR Category = iota
	CategorySubGPR
	CategoryFPR
	CategoryDR
)

// Format classifies how a register's bytes should be interpreted.
type Format int

const (
	FormatUint Format = iota
	FormatDouble
	FormatLongDouble
	FormatVector
)

// ID identifies one entry in the register table.
type ID int

// DwarfNone marks a register with no DWARF register number (sub-GPRs,
// segment registers, debug registers).
const DwarfNone = -1

// Info is one compile-time row of the register table: {id, name,
// dwarf_id, size, user-area offset, category, format}, per spec §3.
type Info struct {
	ID      ID
	Name    string
	DwarfID int
	Size    int
	Offset  int
	Category
	Format
}

// ptraceRegsLayout mirrors the kernel's struct user_regs_struct for
// x86-64 (the same layout golang.org/x/sys/unix.PtraceRegs uses), solely
// to compute real field byte offsets via unsafe.Offsetof rather than
// hand-transcribing them.
type ptraceRegsLayout struct {
	R15, R14, R13, R12         uint64
	Rbp, Rbx                   uint64
	R11, R10, R9, R8           uint64
	Rax, Rcx, Rdx, Rsi, Rdi    uint64
	OrigRax                    uint64
	Rip                        uint64
	Cs                         uint64
	Eflags                     uint64
	Rsp                        uint64
	Ss                         uint64
	FsBase, GsBase             uint64
	Ds, Es, Fs, Gs             uint64
}

func off(f func(*ptraceRegsLayout) *uint64) int {
	var z ptraceRegsLayout
	return int(uintptr(unsafe.Pointer(f(&z))) - uintptr(unsafe.Pointer(&z)))
}

// userDebugRegOffset is the byte offset of u_debugreg[0] within glibc's
// struct user on x86-64: sizeof(user_regs_struct)=216 + int+pad(8) +
// sizeof(user_fpregs_struct)=512 + 3 longs(24) + 2 longs(16) + signal(8) +
// int+pad(8) + 2 pointers(16) + magic(8) + u_comm[32] = 848.
const userDebugRegOffset = 848

// byID is the table's primary store, keyed by ID rather than by slice
// position, so that registration order in init() need not match the
// declaration order of the ID constants (it doesn't: GPRs are added in
// DWARF register number order).
var byID map[ID]*Info
var byName map[string]*Info
var byDwarf map[int]*Info

func add(id ID, name string, dwarfID, size, offset int, cat Category, fmtKind Format) {
	info := &Info{ID: id, Name: name, DwarfID: dwarfID, Size: size, Offset: offset, Category: cat, Format: fmtKind}
	byID[id] = info
	byName[name] = info
	if dwarfID != DwarfNone {
		byDwarf[dwarfID] = info
	}
}

// Register IDs for every entry the table carries.
const (
	RAX ID = iota
	RBX
	RCX
	RDX
	RSI
	RDI
	RBP
	RSP
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
	RIP
	EFLAGS
	CS
	SS
	DS
	ES
	FS
	GS
	FS_BASE
	GS_BASE
	ORIG_RAX
	EAX
	EBX
	ECX
	EDX
	ESI
	EDI
	EBP
	ESP
	AX
	BX
	CX
	DX
	AL
	BL
	CL
	DL
	AH
	BH
	CH
	DH
	DR0
	DR1
	DR2
	DR3
	DR6
	DR7
	FCW
	FSW
	MXCSR
	ST0
	ST1
	ST2
	ST3
	ST4
	ST5
	ST6
	ST7
	XMM0
	XMM1
	XMM2
	XMM3
	XMM4
	XMM5
	XMM6
	XMM7
	XMM8
	XMM9
	XMM10
	XMM11
	XMM12
	XMM13
	XMM14
	XMM15
	XMM0D
	XMM1D
	XMM2D
	XMM3D
	XMM4D
	XMM5D
	XMM6D
	XMM7D
	XMM8D
	XMM9D
	XMM10D
	XMM11D
	XMM12D
	XMM13D
	XMM14D
	XMM15D
)

// user_fpregs_struct (the fxsave layout PTRACE_GETFPREGS/SETFPREGS fill)
// byte offsets, relative to the start of Registers.fpregs rather than the
// GPR/DR user area: cwd/swd/ftw/fop(2 each)@0,2,4,6, rip/rdp(8 each)@8,16,
// mxcsr/mxcr_mask(4 each)@24,28, st_space[32]@32 (8 slots x 16 bytes),
// xmm_space[64]@160 (16 slots x 16 bytes).
const (
	fpCwdOffset    = 0
	fpSwdOffset    = 2
	fpMxcsrOffset  = 24
	fpStSpaceBase  = 32
	fpStSlotSize   = 16
	fpXmmSpaceBase = 160
	fpXmmSlotSize  = 16
)

func init() {
	byID = make(map[ID]*Info)
	byName = make(map[string]*Info)
	byDwarf = make(map[int]*Info)

	rax := off(func(r *ptraceRegsLayout) *uint64 { return &r.Rax })
	rbx := off(func(r *ptraceRegsLayout) *uint64 { return &r.Rbx })
	rcx := off(func(r *ptraceRegsLayout) *uint64 { return &r.Rcx })
	rdx := off(func(r *ptraceRegsLayout) *uint64 { return &r.Rdx })
	rsi := off(func(r *ptraceRegsLayout) *uint64 { return &r.Rsi })
	rdi := off(func(r *ptraceRegsLayout) *uint64 { return &r.Rdi })
	rbp := off(func(r *ptraceRegsLayout) *uint64 { return &r.Rbp })
	rsp := off(func(r *ptraceRegsLayout) *uint64 { return &r.Rsp })
	r8 := off(func(r *ptraceRegsLayout) *uint64 { return &r.R8 })
	r9 := off(func(r *ptraceRegsLayout) *uint64 { return &r.R9 })
	r10 := off(func(r *ptraceRegsLayout) *uint64 { return &r.R10 })
	r11 := off(func(r *ptraceRegsLayout) *uint64 { return &r.R11 })
	r12 := off(func(r *ptraceRegsLayout) *uint64 { return &r.R12 })
	r13 := off(func(r *ptraceRegsLayout) *uint64 { return &r.R13 })
	r14 := off(func(r *ptraceRegsLayout) *uint64 { return &r.R14 })
	r15 := off(func(r *ptraceRegsLayout) *uint64 { return &r.R15 })
	rip := off(func(r *ptraceRegsLayout) *uint64 { return &r.Rip })
	eflags := off(func(r *ptraceRegsLayout) *uint64 { return &r.Eflags })
	cs := off(func(r *ptraceRegsLayout) *uint64 { return &r.Cs })
	ss := off(func(r *ptraceRegsLayout) *uint64 { return &r.Ss })
	ds := off(func(r *ptraceRegsLayout) *uint64 { return &r.Ds })
	es := off(func(r *ptraceRegsLayout) *uint64 { return &r.Es })
	fs := off(func(r *ptraceRegsLayout) *uint64 { return &r.Fs })
	gs := off(func(r *ptraceRegsLayout) *uint64 { return &r.Gs })
	fsBase := off(func(r *ptraceRegsLayout) *uint64 { return &r.FsBase })
	gsBase := off(func(r *ptraceRegsLayout) *uint64 { return &r.GsBase })
	origRax := off(func(r *ptraceRegsLayout) *uint64 { return &r.OrigRax })

	add(RAX, "rax", 0, 8, rax, CategoryGPR, FormatUint)
	add(RDX, "rdx", 1, 8, rdx, CategoryGPR, FormatUint)
	add(RCX, "rcx", 2, 8, rcx, CategoryGPR, FormatUint)
	add(RBX, "rbx", 3, 8, rbx, CategoryGPR, FormatUint)
	add(RSI, "rsi", 4, 8, rsi, CategoryGPR, FormatUint)
	add(RDI, "rdi", 5, 8, rdi, CategoryGPR, FormatUint)
	add(RBP, "rbp", 6, 8, rbp, CategoryGPR, FormatUint)
	add(RSP, "rsp", 7, 8, rsp, CategoryGPR, FormatUint)
	add(R8, "r8", 8, 8, r8, CategoryGPR, FormatUint)
	add(R9, "r9", 9, 8, r9, CategoryGPR, FormatUint)
	add(R10, "r10", 10, 8, r10, CategoryGPR, FormatUint)
	add(R11, "r11", 11, 8, r11, CategoryGPR, FormatUint)
	add(R12, "r12", 12, 8, r12, CategoryGPR, FormatUint)
	add(R13, "r13", 13, 8, r13, CategoryGPR, FormatUint)
	add(R14, "r14", 14, 8, r14, CategoryGPR, FormatUint)
	add(R15, "r15", 15, 8, r15, CategoryGPR, FormatUint)
	add(RIP, "rip", 16, 8, rip, CategoryGPR, FormatUint)
	add(EFLAGS, "eflags", DwarfNone, 8, eflags, CategoryGPR, FormatUint)
	add(CS, "cs", DwarfNone, 8, cs, CategoryGPR, FormatUint)
	add(SS, "ss", DwarfNone, 8, ss, CategoryGPR, FormatUint)
	add(DS, "ds", DwarfNone, 8, ds, CategoryGPR, FormatUint)
	add(ES, "es", DwarfNone, 8, es, CategoryGPR, FormatUint)
	add(FS, "fs", DwarfNone, 8, fs, CategoryGPR, FormatUint)
	add(GS, "gs", DwarfNone, 8, gs, CategoryGPR, FormatUint)
	add(FS_BASE, "fs_base", DwarfNone, 8, fsBase, CategoryGPR, FormatUint)
	add(GS_BASE, "gs_base", DwarfNone, 8, gsBase, CategoryGPR, FormatUint)
	add(ORIG_RAX, "orig_rax", DwarfNone, 8, origRax, CategoryGPR, FormatUint)

	add(EAX, "eax", DwarfNone, 4, rax, CategorySubGPR, FormatUint)
	add(EBX, "ebx", DwarfNone, 4, rbx, CategorySubGPR, FormatUint)
	add(ECX, "ecx", DwarfNone, 4, rcx, CategorySubGPR, FormatUint)
	add(EDX, "edx", DwarfNone, 4, rdx, CategorySubGPR, FormatUint)
	add(ESI, "esi", DwarfNone, 4, rsi, CategorySubGPR, FormatUint)
	add(EDI, "edi", DwarfNone, 4, rdi, CategorySubGPR, FormatUint)
	add(EBP, "ebp", DwarfNone, 4, rbp, CategorySubGPR, FormatUint)
	add(ESP, "esp", DwarfNone, 4, rsp, CategorySubGPR, FormatUint)

	add(AX, "ax", DwarfNone, 2, rax, CategorySubGPR, FormatUint)
	add(BX, "bx", DwarfNone, 2, rbx, CategorySubGPR, FormatUint)
	add(CX, "cx", DwarfNone, 2, rcx, CategorySubGPR, FormatUint)
	add(DX, "dx", DwarfNone, 2, rdx, CategorySubGPR, FormatUint)

	add(AL, "al", DwarfNone, 1, rax, CategorySubGPR, FormatUint)
	add(BL, "bl", DwarfNone, 1, rbx, CategorySubGPR, FormatUint)
	add(CL, "cl", DwarfNone, 1, rcx, CategorySubGPR, FormatUint)
	add(DL, "dl", DwarfNone, 1, rdx, CategorySubGPR, FormatUint)
	add(AH, "ah", DwarfNone, 1, rax+1, CategorySubGPR, FormatUint)
	add(BH, "bh", DwarfNone, 1, rbx+1, CategorySubGPR, FormatUint)
	add(CH, "ch", DwarfNone, 1, rcx+1, CategorySubGPR, FormatUint)
	add(DH, "dh", DwarfNone, 1, rdx+1, CategorySubGPR, FormatUint)

	add(DR0, "dr0", DwarfNone, 8, userDebugRegOffset+0*8, CategoryDR, FormatUint)
	add(DR1, "dr1", DwarfNone, 8, userDebugRegOffset+1*8, CategoryDR, FormatUint)
	add(DR2, "dr2", DwarfNone, 8, userDebugRegOffset+2*8, CategoryDR, FormatUint)
	add(DR3, "dr3", DwarfNone, 8, userDebugRegOffset+3*8, CategoryDR, FormatUint)
	add(DR6, "dr6", DwarfNone, 8, userDebugRegOffset+6*8, CategoryDR, FormatUint)
	add(DR7, "dr7", DwarfNone, 8, userDebugRegOffset+7*8, CategoryDR, FormatUint)

	add(FCW, "fcw", DwarfNone, 2, fpCwdOffset, CategoryFPR, FormatUint)
	add(FSW, "fsw", DwarfNone, 2, fpSwdOffset, CategoryFPR, FormatUint)
	add(MXCSR, "mxcsr", DwarfNone, 4, fpMxcsrOffset, CategoryFPR, FormatUint)

	stRegs := []ID{ST0, ST1, ST2, ST3, ST4, ST5, ST6, ST7}
	for i, id := range stRegs {
		add(id, stName(i), 33+i, fpStSlotSize, fpStSpaceBase+i*fpStSlotSize, CategoryFPR, FormatLongDouble)
	}

	xmmRegs := []ID{XMM0, XMM1, XMM2, XMM3, XMM4, XMM5, XMM6, XMM7,
		XMM8, XMM9, XMM10, XMM11, XMM12, XMM13, XMM14, XMM15}
	for i, id := range xmmRegs {
		add(id, xmmName(i), 17+i, fpXmmSlotSize, fpXmmSpaceBase+i*fpXmmSlotSize, CategoryFPR, FormatVector)
	}

	// xmmNd aliases the low 8 bytes of xmmN: the scalar-double convention
	// movsd/addsd etc. use, where a double lives in an XMM register's
	// bottom qword.
	xmmDoubleRegs := []ID{XMM0D, XMM1D, XMM2D, XMM3D, XMM4D, XMM5D, XMM6D, XMM7D,
		XMM8D, XMM9D, XMM10D, XMM11D, XMM12D, XMM13D, XMM14D, XMM15D}
	for i, id := range xmmDoubleRegs {
		add(id, xmmName(i)+"d", DwarfNone, 8, fpXmmSpaceBase+i*fpXmmSlotSize, CategoryFPR, FormatDouble)
	}
}

func stName(i int) string  { return "st" + strconv.Itoa(i) }
func xmmName(i int) string { return "xmm" + strconv.Itoa(i) }

// ByID returns the table row for id.
func ByID(id ID) *Info { return byID[id] }

// ByName looks up a register by its assembly name.
func ByName(name string) (*Info, bool) {
	i, ok := byName[name]
	return i, ok
}

// ByDwarf looks up a register by its DWARF register number.
func ByDwarf(n int) (*Info, bool) {
	i, ok := byDwarf[n]
	return i, ok
}

// DebugRegOffset returns the user-area byte offset of u_debugreg[idx],
// for callers (PTRACE_PEEKUSER/POKEUSER) that address debug registers
// individually rather than through the Info table.
func DebugRegOffset(idx int) int { return userDebugRegOffset + idx*8 }

// All returns every table row. Order is unspecified.
func All() []Info {
	out := make([]Info, 0, len(byID))
	for _, info := range byID {
		out = append(out, *info)
	}
	return out
}
