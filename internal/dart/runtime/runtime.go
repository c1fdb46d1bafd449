// Package runtime describes the loaded-snapshot metadata the lifter
// reads from but never mutates during a lift: the object pool, the
// thread-structure layout, and the class/field/function/type
// databases an external Dart-snapshot loader populates. This package
// defines the interfaces the lifter depends on, plus simple in-memory
// implementations used by tests and by the CLI before a richer loader
// is wired in.
package runtime

import (
	"github.com/Taarique/blutter/internal/dart/cid"
	"github.com/Taarique/blutter/internal/dart/value"
)

// Entry is one object-pool slot: a resolved Value, plus whether the
// slot holds a class id rather than a heap object reference (the pool
// tags class-id entries separately from object entries).
type Entry struct {
	Val   *value.Value
	IsCid bool
}

// Pool is the loaded object pool (PP-relative).
type Pool interface {
	At(offset int) (Entry, bool)
}

// LeafFunction describes a C++ leaf-runtime entry's calling
// convention, as CallLeafRuntimeInstr.String needs to render it.
type LeafFunction struct {
	Params     string
	ReturnType string
}

// Layout is the loaded thread-structure layout (THR-relative offsets)
// plus the table of leaf-runtime entries reachable through it.
type Layout interface {
	ThreadOffsetName(offset int) (string, bool)
	ThreadLeafFunction(offset int) (*LeafFunction, bool)
	MaxThreadOffset() int
}

// Class is a non-owning view of a Dart class.
type Class struct {
	ID   cid.TypeID
	Name string
}

// Field is a non-owning view of a Dart field.
type Field struct {
	Owner    string
	Name     string
	Offset   uint32
	IsStatic bool
	IsLate   bool
}

// FullName renders "Owner.Name", the way InitLateStaticFieldInstr's
// comment expects.
func (f *Field) FullName() string {
	if f.Owner == "" {
		return f.Name
	}
	return f.Owner + "." + f.Name
}

// Function is a non-owning view of a Dart function.
type Function struct {
	Name  string
	Entry uint64
}

// Type is a non-owning view of a Dart Type object.
type Type struct {
	Name string
}

// ClassDB resolves class ids to Class metadata.
type ClassDB interface {
	ByID(id cid.TypeID) (*Class, bool)
}

// FieldDB resolves header offsets to Field metadata.
type FieldDB interface {
	ByOffset(offset uint32) (*Field, bool)
}

// FunctionDB resolves call-target addresses to Function metadata.
type FunctionDB interface {
	ByAddress(addr uint64) (*Function, bool)
}

// TypeDB resolves pool-backed type references to Type metadata.
type TypeDB interface {
	ByID(id cid.TypeID) (*Type, bool)
}
