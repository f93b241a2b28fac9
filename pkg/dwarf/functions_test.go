package dwarf

import "testing"

// buildFunctionFixture assembles a one-CU object with a "main" subprogram
// [0x1000,0x1100) containing an inlined "bar" [0x1010,0x1020), and a
// sibling "other" subprogram [0x5000,0x5010).
func buildFunctionFixture(t *testing.T) *Data {
	t.Helper()
	abbrev := buildAbbrev(
		abbrevDecl{1, TagCompileUnit, true, nil},
		abbrevDecl{2, TagSubprogram, true, []AttrSpec{
			{AttrName, FormString}, {AttrLowpc, FormAddr}, {AttrHighpc, FormData8},
		}},
		abbrevDecl{3, TagSubprogram, false, []AttrSpec{
			{AttrName, FormString}, {AttrLowpc, FormAddr}, {AttrHighpc, FormData8},
		}},
		abbrevDecl{4, TagInlinedSubroutine, false, []AttrSpec{
			{AttrName, FormString}, {AttrLowpc, FormAddr}, {AttrHighpc, FormData8},
		}},
	)
	info := concat(
		uleb(1), // root compile_unit DIE, no attrs
		uleb(2), cstr("main"), u64(0x1000), u64(0x100), // main [0x1000,0x1100)
		uleb(4), cstr("bar"), u64(0x1010), u64(0x10), // bar  [0x1010,0x1020)
		uleb(0), // terminator: closes main's children
		uleb(3), cstr("other"), u64(0x5000), u64(0x10), // other [0x5000,0x5010)
		uleb(0), // terminator: closes root's children (== CU end)
	)
	d, _ := newTestData(t, abbrev, info)
	return d
}

func TestFunctionsByName(t *testing.T) {
	d := buildFunctionFixture(t)
	fns, err := d.FunctionsByName("main")
	if err != nil {
		t.Fatalf("FunctionsByName: %v", err)
	}
	if len(fns) != 1 || fns[0].LowPC != 0x1000 || fns[0].HighPC != 0x1100 {
		t.Fatalf("got %+v", fns)
	}
}

func TestFunctionContainingAddress(t *testing.T) {
	d := buildFunctionFixture(t)
	fn, err := d.FunctionContainingAddress(0x1050)
	if err != nil {
		t.Fatalf("FunctionContainingAddress: %v", err)
	}
	if fn == nil || fn.Name != "main" {
		t.Fatalf("got %+v, want main", fn)
	}

	fn, err = d.FunctionContainingAddress(0x5005)
	if err != nil || fn == nil || fn.Name != "other" {
		t.Fatalf("got %+v, want other", fn)
	}

	fn, err = d.FunctionContainingAddress(0x9999)
	if err != nil || fn != nil {
		t.Fatalf("expected no function at an address outside every range, got %+v", fn)
	}
}

func TestFunctionContainingAddress_SkipsInlinedSubroutines(t *testing.T) {
	d := buildFunctionFixture(t)
	// 0x1015 is inside bar's inlined range but bar must never be returned
	// as "the" containing function -- only concrete subprograms qualify.
	fn, err := d.FunctionContainingAddress(0x1015)
	if err != nil {
		t.Fatalf("FunctionContainingAddress: %v", err)
	}
	if fn == nil || fn.Name != "main" {
		t.Fatalf("got %+v, want main (bar is inlined)", fn)
	}
}

func TestFunctionContainingAddress_IsMemoized(t *testing.T) {
	d := buildFunctionFixture(t)
	first, err := d.FunctionContainingAddress(0x1050)
	if err != nil {
		t.Fatalf("first lookup: %v", err)
	}
	second, err := d.FunctionContainingAddress(0x1050)
	if err != nil {
		t.Fatalf("second lookup: %v", err)
	}
	if first != second {
		t.Fatalf("expected the cached pointer to be returned on repeat lookups")
	}
}

func TestInlineStackAt(t *testing.T) {
	d := buildFunctionFixture(t)
	stack, err := d.InlineStackAt(0x1015)
	if err != nil {
		t.Fatalf("InlineStackAt: %v", err)
	}
	if len(stack) != 2 {
		t.Fatalf("got %d frames, want 2 (main, bar)", len(stack))
	}
	if stack[0].Name != "main" || stack[1].Name != "bar" {
		t.Fatalf("got %v, %v; want main, bar", stack[0].Name, stack[1].Name)
	}
}

func TestInlineStackAt_OutsideAnyInline(t *testing.T) {
	d := buildFunctionFixture(t)
	stack, err := d.InlineStackAt(0x1090)
	if err != nil {
		t.Fatalf("InlineStackAt: %v", err)
	}
	if len(stack) != 1 || stack[0].Name != "main" {
		t.Fatalf("got %v, want just [main]", stack)
	}
}
