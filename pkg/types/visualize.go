package types

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/tracewell/tracewell/pkg/dwarf"
	"github.com/tracewell/tracewell/pkg/primitives"
)

// MemoryReader is the minimal tracee-memory access visualize needs to
// follow char pointers into C strings. Implemented by pkg/process but
// kept as an interface here so the type model has no dependency on
// process lifecycle or ptrace.
type MemoryReader interface {
	ReadMemory(addr uint64, n int) ([]byte, error)
	ReadCString(addr uint64) (string, error)
}

// TypedData pairs a raw byte buffer with the Type that describes its
// layout, and optionally the virtual address it was read from, per spec
// §3's typed_data. Visualize carries the address through typedef/CV
// layers but renders from Bytes alone; the address is not printed for
// pointers or bitfield members.
type TypedData struct {
	Bytes   []byte
	Type    *Type
	Addr    primitives.VirtAddr
	HasAddr bool
}

func NewTypedData(b []byte, t *Type) TypedData { return TypedData{Bytes: b, Type: t} }

func (td TypedData) WithAddr(addr primitives.VirtAddr) TypedData {
	td.Addr = addr
	td.HasAddr = true
	return td
}

const maxVisualizeDepth = 8

// Visualize renders td according to its type's tag, per the dispatch
// table in spec §4.3. mem is consulted only for char-pointer
// dereferencing; it may be nil, in which case pointers render as a bare
// hex address.
func (td TypedData) Visualize(depth int, mem MemoryReader) (string, error) {
	if depth > maxVisualizeDepth {
		return "...", nil
	}
	d := td.Type.Die
	switch d.Tag() {
	case dwarf.TagBaseType:
		return visualizeBase(d, td.Bytes)
	case dwarf.TagPointerType:
		return visualizePointer(d, td.Bytes, mem)
	case dwarf.TagPtrToMemberType:
		return visualizePointer(d, td.Bytes, nil)
	case dwarf.TagArrayType:
		return td.visualizeArray(depth, mem)
	case dwarf.TagStructureType, dwarf.TagClassType, dwarf.TagUnionType:
		return td.visualizeAggregate(depth, mem)
	case dwarf.TagEnumerationType:
		return visualizeEnum(d, td.Bytes)
	case dwarf.TagTypedef, dwarf.TagConstType, dwarf.TagVolatileType, dwarf.TagRestrictType:
		under, ok := dieUnderlyingType(d)
		if !ok {
			return "", primitives.Newf(primitives.KindInvariant, component, "DIE at %d has no underlying type to follow", d.Pos)
		}
		return TypedData{Bytes: td.Bytes, Type: New(under), Addr: td.Addr, HasAddr: td.HasAddr}.Visualize(depth, mem)
	default:
		return "", primitives.Newf(primitives.KindInvariant, component, "visualize: unsupported tag 0x%x", uint64(d.Tag()))
	}
}

func visualizeBase(d dwarf.DIE, data []byte) (string, error) {
	encAttr, ok := d.Attr(dwarf.AttrEncoding)
	if !ok {
		return "", primitives.Newf(primitives.KindLookup, component, "base_type at %d has no encoding", d.Pos)
	}
	v, err := encAttr.AsUint()
	if err != nil {
		return "", err
	}
	enc := dwarf.Encoding(v)
	switch enc {
	case dwarf.EncBoolean:
		if len(data) > 0 && data[0] != 0 {
			return "true", nil
		}
		return "false", nil
	case dwarf.EncFloat:
		switch len(data) {
		case 4:
			return fmt.Sprintf("%g", math.Float32frombits(binary.LittleEndian.Uint32(data))), nil
		case 8:
			return fmt.Sprintf("%g", math.Float64frombits(binary.LittleEndian.Uint64(data))), nil
		}
		return "", primitives.Newf(primitives.KindInvariant, component, "float base_type at %d has unsupported size %d", d.Pos, len(data))
	case dwarf.EncSignedChar:
		if len(data) > 0 {
			return fmt.Sprintf("%q", rune(int8(data[0]))), nil
		}
		return "''", nil
	case dwarf.EncUnsignedChar:
		if len(data) > 0 {
			return fmt.Sprintf("%q", rune(data[0])), nil
		}
		return "''", nil
	case dwarf.EncSigned:
		return fmt.Sprintf("%d", signedFromBytes(data)), nil
	case dwarf.EncUnsigned, dwarf.EncAddress:
		return fmt.Sprintf("%d", unsignedFromBytes(data)), nil
	default:
		return fmt.Sprintf("%d", unsignedFromBytes(data)), nil
	}
}

func unsignedFromBytes(data []byte) uint64 {
	var buf [8]byte
	copy(buf[:], data)
	return binary.LittleEndian.Uint64(buf[:])
}

func signedFromBytes(data []byte) int64 {
	u := unsignedFromBytes(data)
	switch len(data) {
	case 1:
		return int64(int8(u))
	case 2:
		return int64(int16(u))
	case 4:
		return int64(int32(u))
	default:
		return int64(u)
	}
}

func visualizePointer(d dwarf.DIE, data []byte, mem MemoryReader) (string, error) {
	addr := unsignedFromBytes(data)
	pointee, ok := dieUnderlyingType(d)
	if ok && mem != nil && IsCharType(pointee) && addr != 0 {
		s, err := mem.ReadCString(addr)
		if err == nil {
			return fmt.Sprintf("0x%x %q", addr, s), nil
		}
	}
	return fmt.Sprintf("0x%x", addr), nil
}

func visualizeEnum(d dwarf.DIE, data []byte) (string, error) {
	v := unsignedFromBytes(data)
	children := d.Children()
	for {
		child, ok := children.Next()
		if !ok {
			break
		}
		if child.Tag() != dwarf.TagEnumerator {
			continue
		}
		cv, ok := child.Attr(dwarf.AttrConstValue)
		if !ok {
			continue
		}
		n, err := cv.AsUint()
		if err != nil {
			continue
		}
		if n == v {
			name, _ := child.Name()
			return name, nil
		}
	}
	return fmt.Sprintf("%d", v), nil
}

func (td TypedData) visualizeArray(depth int, mem MemoryReader) (string, error) {
	d := td.Type.Die
	elemDie, ok := dieUnderlyingType(d)
	if !ok {
		return "", primitives.Newf(primitives.KindInvariant, component, "array_type at %d has no element type", d.Pos)
	}
	elemType := New(elemDie)
	elemSize, err := elemType.ByteSize()
	if err != nil {
		return "", err
	}
	if elemSize == 0 {
		return "[]", nil
	}
	count := len(td.Bytes) / int(elemSize)
	parts := make([]string, 0, count)
	for i := 0; i < count; i++ {
		lo := i * int(elemSize)
		hi := lo + int(elemSize)
		if hi > len(td.Bytes) {
			break
		}
		s, err := TypedData{Bytes: td.Bytes[lo:hi], Type: elemType}.Visualize(depth+1, mem)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return "[" + strings.Join(parts, ", ") + "]", nil
}

func (td TypedData) visualizeAggregate(depth int, mem MemoryReader) (string, error) {
	d := td.Type.Die
	var parts []string
	children := d.Children()
	for {
		member, ok := children.Next()
		if !ok {
			break
		}
		if member.Tag() != dwarf.TagMember {
			continue
		}
		s, err := td.visualizeMember(member, depth, mem)
		if err != nil {
			return "", err
		}
		name, _ := member.Name()
		parts = append(parts, fmt.Sprintf("%s: %s", name, s))
	}
	if err := children.Err(); err != nil {
		return "", err
	}
	return "{" + strings.Join(parts, ", ") + "}", nil
}

func (td TypedData) visualizeMember(member dwarf.DIE, depth int, mem MemoryReader) (string, error) {
	memberTypeDie, ok := dieUnderlyingType(member)
	if !ok {
		return "", primitives.Newf(primitives.KindInvariant, component, "member at %d has no type", member.Pos)
	}
	memberType := New(memberTypeDie)
	size, err := memberType.ByteSize()
	if err != nil {
		return "", err
	}

	if bitSizeAttr, ok := member.Attr(dwarf.AttrBitSize); ok {
		bitSize, err := bitSizeAttr.AsUint()
		if err != nil {
			return "", err
		}
		bitOffset := 0
		if boAttr, ok := member.Attr(dwarf.AttrDataBitOffset); ok {
			bo, err := boAttr.AsUint()
			if err != nil {
				return "", err
			}
			bitOffset = int(bo)
		}
		baseOffset, err := memberByteOffset(member)
		if err != nil {
			return "", err
		}
		storage := td.Bytes[baseOffset:]
		fixed := FixupBitfield(storage, bitOffset, int(bitSize), int(size))
		return TypedData{Bytes: fixed, Type: memberType}.Visualize(depth+1, mem)
	}

	offset, err := memberByteOffset(member)
	if err != nil {
		return "", err
	}
	end := offset + int(size)
	if end > len(td.Bytes) {
		end = len(td.Bytes)
	}
	return TypedData{Bytes: td.Bytes[offset:end], Type: memberType}.Visualize(depth+1, mem)
}

func memberByteOffset(member dwarf.DIE) (int, error) {
	loc, ok := member.Attr(dwarf.AttrDataMemberLoc)
	if !ok {
		return 0, nil
	}
	v, err := loc.AsUint()
	if err != nil {
		return 0, err
	}
	return int(v), nil
}
