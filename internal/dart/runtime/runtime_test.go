package runtime

import (
	"testing"

	"github.com/Taarique/blutter/internal/dart/cid"
	"github.com/Taarique/blutter/internal/dart/value"
	"github.com/Taarique/blutter/internal/elfx"
)

func TestMapPool(t *testing.T) {
	p := MapPool{3: {Val: value.NewInteger(10, cid.Smi)}}
	if e, ok := p.At(3); !ok || e.Val.ValueInt() != 5 {
		t.Errorf("At(3) = (%v, %v), want the stored entry", e, ok)
	}
	if _, ok := p.At(4); ok {
		t.Error("At(4) on an unpopulated slot must report false")
	}
}

func TestMapLayout(t *testing.T) {
	l := NewMapLayout()
	l.Names[0x18] = "isolate"
	l.LeafFunctions[0x18] = &LeafFunction{Params: "void", ReturnType: "void"}
	l.Names[0x30] = "top"

	if name, ok := l.ThreadOffsetName(0x18); !ok || name != "isolate" {
		t.Errorf("ThreadOffsetName(0x18) = (%q, %v), want (isolate, true)", name, ok)
	}
	if _, ok := l.ThreadOffsetName(0x99); ok {
		t.Error("ThreadOffsetName on an unknown offset must report false")
	}
	if lf, ok := l.ThreadLeafFunction(0x18); !ok || lf.ReturnType != "void" {
		t.Errorf("ThreadLeafFunction(0x18) = (%v, %v), want the stored leaf function", lf, ok)
	}
	if got, want := l.MaxThreadOffset(), 0x30; got != want {
		t.Errorf("MaxThreadOffset() = %#x, want %#x", got, want)
	}
}

func TestMapLayoutMaxThreadOffsetEmpty(t *testing.T) {
	l := NewMapLayout()
	if got := l.MaxThreadOffset(); got != 0 {
		t.Errorf("MaxThreadOffset() on an empty layout = %d, want 0", got)
	}
}

func TestFieldFullName(t *testing.T) {
	f := &Field{Owner: "Foo", Name: "bar"}
	if got, want := f.FullName(), "Foo.bar"; got != want {
		t.Errorf("FullName() = %q, want %q", got, want)
	}
	anon := &Field{Name: "bar"}
	if got, want := anon.FullName(), "bar"; got != want {
		t.Errorf("FullName() with no owner = %q, want %q", got, want)
	}
}

func TestMapClassFieldFunctionTypeDB(t *testing.T) {
	classes := MapClassDB{cid.Smi: {ID: cid.Smi, Name: "Smi"}}
	if c, ok := classes.ByID(cid.Smi); !ok || c.Name != "Smi" {
		t.Errorf("ByID(Smi) = (%v, %v), want the stored class", c, ok)
	}
	if _, ok := classes.ByID(cid.Mint); ok {
		t.Error("ByID on an unknown id must report false")
	}

	fields := MapFieldDB{0x10: {Owner: "Foo", Name: "bar", Offset: 0x10}}
	if f, ok := fields.ByOffset(0x10); !ok || f.FullName() != "Foo.bar" {
		t.Errorf("ByOffset(0x10) = (%v, %v), want the stored field", f, ok)
	}

	fns := MapFunctionDB{0x2000: {Name: "main", Entry: 0x2000}}
	if fn, ok := fns.ByAddress(0x2000); !ok || fn.Name != "main" {
		t.Errorf("ByAddress(0x2000) = (%v, %v), want the stored function", fn, ok)
	}

	types := MapTypeDB{cid.Smi: {Name: "int"}}
	if ty, ok := types.ByID(cid.Smi); !ok || ty.Name != "int" {
		t.Errorf("ByID(Smi) = (%v, %v), want the stored type", ty, ok)
	}
}

func TestChainFunctionDBOrderAndFallback(t *testing.T) {
	first := MapFunctionDB{0x1000: {Name: "fromFirst", Entry: 0x1000}, 0x3000: {Name: "shared", Entry: 0x3000}}
	second := MapFunctionDB{0x2000: {Name: "fromSecond", Entry: 0x2000}, 0x3000: {Name: "shadowed", Entry: 0x3000}}
	chain := ChainFunctionDB{first, second}

	if fn, ok := chain.ByAddress(0x1000); !ok || fn.Name != "fromFirst" {
		t.Errorf("ByAddress(0x1000) = (%v, %v), want fromFirst", fn, ok)
	}
	if fn, ok := chain.ByAddress(0x2000); !ok || fn.Name != "fromSecond" {
		t.Errorf("ByAddress(0x2000) = (%v, %v), want fromSecond from the fallback entry", fn, ok)
	}
	if fn, ok := chain.ByAddress(0x3000); !ok || fn.Name != "shared" {
		t.Errorf("ByAddress(0x3000) = (%v, %v), want the first db's entry to win", fn, ok)
	}
	if _, ok := chain.ByAddress(0x9999); ok {
		t.Error("ByAddress on an address no db knows must report false")
	}
}

func TestChainFunctionDBSkipsNilEntries(t *testing.T) {
	chain := ChainFunctionDB{nil, MapFunctionDB{0x1000: {Name: "f", Entry: 0x1000}}}
	if fn, ok := chain.ByAddress(0x1000); !ok || fn.Name != "f" {
		t.Errorf("ByAddress(0x1000) = (%v, %v), want a nil entry to be skipped, not panic", fn, ok)
	}
}

func TestSymbolFunctionDBDedupsByAddress(t *testing.T) {
	img := &elfx.Image{
		Dynsyms: []elfx.DynSym{
			{Name: "dynFirst", Addr: 0x1000},
			{Name: "", Addr: 0x4000},
		},
		Syms: []elfx.DynSym{
			{Name: "symShadowed", Addr: 0x1000},
			{Name: "symOnly", Addr: 0x2000},
		},
	}
	db := NewSymbolFunctionDB(img)

	if fn, ok := db.ByAddress(0x1000); !ok || fn.Name != "dynFirst" {
		t.Errorf("ByAddress(0x1000) = (%v, %v), want the dynsym entry to win over the later static one", fn, ok)
	}
	if fn, ok := db.ByAddress(0x2000); !ok || fn.Name != "symOnly" {
		t.Errorf("ByAddress(0x2000) = (%v, %v), want symOnly", fn, ok)
	}
	if _, ok := db.ByAddress(0x4000); ok {
		t.Error("a symbol with an empty name must not be indexed")
	}
	if _, ok := db.ByAddress(0x9999); ok {
		t.Error("ByAddress on an unknown address must report false")
	}
}

func TestDispatchTableResolveNoRelocations(t *testing.T) {
	d := NewDispatchTable(nil, 0x100000, 0x10)
	if _, _, ok := d.Resolve(cid.Smi, 0, nil); ok {
		t.Error("Resolve against a table with no loaded relocations must report false")
	}
}
