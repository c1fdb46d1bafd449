package runtime

import "github.com/Taarique/blutter/internal/dart/cid"

// MapPool is an in-memory Pool, built once by a loader and never
// mutated afterward.
type MapPool map[int]Entry

func (p MapPool) At(offset int) (Entry, bool) {
	e, ok := p[offset]
	return e, ok
}

// MapLayout is an in-memory Layout.
type MapLayout struct {
	Names         map[int]string
	LeafFunctions map[int]*LeafFunction
}

func NewMapLayout() *MapLayout {
	return &MapLayout{Names: make(map[int]string), LeafFunctions: make(map[int]*LeafFunction)}
}

func (l *MapLayout) ThreadOffsetName(offset int) (string, bool) {
	name, ok := l.Names[offset]
	return name, ok
}

func (l *MapLayout) ThreadLeafFunction(offset int) (*LeafFunction, bool) {
	lf, ok := l.LeafFunctions[offset]
	return lf, ok
}

func (l *MapLayout) MaxThreadOffset() int {
	max := 0
	for off := range l.Names {
		if off > max {
			max = off
		}
	}
	return max
}

// MapClassDB is an in-memory ClassDB.
type MapClassDB map[cid.TypeID]*Class

func (db MapClassDB) ByID(id cid.TypeID) (*Class, bool) {
	c, ok := db[id]
	return c, ok
}

// MapFieldDB is an in-memory FieldDB.
type MapFieldDB map[uint32]*Field

func (db MapFieldDB) ByOffset(offset uint32) (*Field, bool) {
	f, ok := db[offset]
	return f, ok
}

// MapFunctionDB is an in-memory FunctionDB.
type MapFunctionDB map[uint64]*Function

func (db MapFunctionDB) ByAddress(addr uint64) (*Function, bool) {
	f, ok := db[addr]
	return f, ok
}

// MapTypeDB is an in-memory TypeDB.
type MapTypeDB map[cid.TypeID]*Type

func (db MapTypeDB) ByID(id cid.TypeID) (*Type, bool) {
	t, ok := db[id]
	return t, ok
}

// ChainFunctionDB tries each FunctionDB in order, the way the lifter
// prefers Dart-snapshot metadata over the raw ELF symbol table
// fallback (SymbolFunctionDB).
type ChainFunctionDB []FunctionDB

func (c ChainFunctionDB) ByAddress(addr uint64) (*Function, bool) {
	for _, db := range c {
		if db == nil {
			continue
		}
		if f, ok := db.ByAddress(addr); ok {
			return f, true
		}
	}
	return nil, false
}
