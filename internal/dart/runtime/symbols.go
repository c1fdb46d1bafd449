package runtime

import (
	"github.com/Taarique/blutter/internal/elfx"
)

// SymbolFunctionDB is a FunctionDB fallback built from an ELF image's
// own dynamic and static symbol tables, used for addresses no Dart
// snapshot metadata covers. Adapted from the teacher's
// analysis.ScanSymbols: same single dedup-by-address pass over
// Dynsyms+Syms, minus demangling (Dart symbols aren't Itanium-mangled,
// see DESIGN.md) and minus the cocos2d/XXTEA-specific entrypoint and
// setter heuristics, which have no counterpart in this domain.
type SymbolFunctionDB struct {
	byAddr map[uint64]*Function
}

// NewSymbolFunctionDB scans img's symbol tables once and builds the
// address-keyed lookup table.
func NewSymbolFunctionDB(img *elfx.Image) *SymbolFunctionDB {
	db := &SymbolFunctionDB{byAddr: make(map[uint64]*Function)}
	seen := make(map[uint64]bool)
	all := append(append([]elfx.DynSym{}, img.Dynsyms...), img.Syms...)
	for _, sym := range all {
		if seen[sym.Addr] || sym.Name == "" {
			continue
		}
		seen[sym.Addr] = true
		db.byAddr[sym.Addr] = &Function{Name: sym.Name, Entry: sym.Addr}
	}
	return db
}

func (db *SymbolFunctionDB) ByAddress(addr uint64) (*Function, bool) {
	f, ok := db.byAddr[addr]
	return f, ok
}
