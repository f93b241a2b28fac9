package types

import "testing"

func TestByteSize_BaseTypes(t *testing.T) {
	fx := buildTypeFixture(t)

	if n, err := New(fx.Char).ByteSize(); err != nil || n != 1 {
		t.Fatalf("char: got %d, %v", n, err)
	}
	if n, err := New(fx.Int).ByteSize(); err != nil || n != 4 {
		t.Fatalf("int: got %d, %v", n, err)
	}
}

func TestByteSize_Pointer(t *testing.T) {
	fx := buildTypeFixture(t)
	if n, err := New(fx.Ptr).ByteSize(); err != nil || n != 8 {
		t.Fatalf("pointer: got %d, %v", n, err)
	}
}

func TestByteSize_Array(t *testing.T) {
	fx := buildTypeFixture(t)
	// int[3]: element size 4 * 3 elements from upper_bound=2.
	if n, err := New(fx.Array).ByteSize(); err != nil || n != 12 {
		t.Fatalf("array: got %d, %v", n, err)
	}
}

func TestByteSize_Struct(t *testing.T) {
	fx := buildTypeFixture(t)
	if n, err := New(fx.Struct).ByteSize(); err != nil || n != 8 {
		t.Fatalf("struct: got %d, %v", n, err)
	}
}

func TestByteSize_IsMemoized(t *testing.T) {
	fx := buildTypeFixture(t)
	ty := New(fx.Int)
	first, err := ty.ByteSize()
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := ty.ByteSize()
	if err != nil || second != first {
		t.Fatalf("second: got %d, %v, want %d", second, err, first)
	}
}

func TestIsCharType(t *testing.T) {
	fx := buildTypeFixture(t)
	if !IsCharType(fx.Char) {
		t.Fatalf("signed char base_type should be a char type")
	}
	if !IsCharType(fx.Uchar) {
		t.Fatalf("unsigned char base_type should be a char type")
	}
	if IsCharType(fx.Int) {
		t.Fatalf("a signed int base_type should not be a char type")
	}
}

func TestIsCharType_ThroughTypedef(t *testing.T) {
	fx := buildTypeFixture(t)
	// Byte is a typedef of uchar; IsCharType strips the typedef first.
	if !IsCharType(fx.Typedef) {
		t.Fatalf("a typedef of an unsigned char base_type should be a char type")
	}
}

func TestStripCVTypedef(t *testing.T) {
	fx := buildTypeFixture(t)
	stripped := StripCVTypedef(fx.Typedef)
	if stripped.Pos != fx.Uchar.Pos {
		t.Fatalf("expected typedef to strip down to uchar's DIE, got tag 0x%x at %d", stripped.Tag(), stripped.Pos)
	}
}

func TestStripCVTypedef_NoOpOnNonTypedef(t *testing.T) {
	fx := buildTypeFixture(t)
	if got := StripCVTypedef(fx.Int); got.Pos != fx.Int.Pos {
		t.Fatalf("expected a plain base_type to pass through unchanged")
	}
}
