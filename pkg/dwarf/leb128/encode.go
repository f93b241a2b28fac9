package leb128

import "io"

// EncodeUnsigned writes v to w as an unsigned LEB128 value. Its callers
// are the tests that hand-assemble DWARF fixtures; the abbrev and DIE
// decoders only ever read LEB128.
func EncodeUnsigned(w io.ByteWriter, v uint64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.WriteByte(b)
		if v == 0 {
			return
		}
	}
}

// EncodeSigned writes v to w as a signed LEB128 value.
func EncodeSigned(w io.ByteWriter, v int64) {
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			more = false
		} else {
			b |= 0x80
		}
		w.WriteByte(b)
	}
}
