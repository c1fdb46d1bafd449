// Package storage describes where a lifted value lives: a machine
// register, a stack slot, an object-pool entry, a thread-structure
// offset, or one of a handful of synthetic locations the lifter
// invents for values that never had a storage location in the
// original code.
package storage

import (
	"fmt"
	"strings"

	"golang.org/x/arch/arm64/arm64asm"
)

// Kind identifies the shape of a Storage.
type Kind int

const (
	Uninitialized Kind = iota
	Register
	Local         // frame-pointer-relative local, Offset is the fp displacement
	Argument      // incoming argument slot, Idx is the argument index
	StaticField   // static field storage, resolved through a FieldDB
	Pool          // object-pool entry, Offset is the pool index
	Thread        // thread-structure offset, Offset is the THR displacement
	Immediate     // an immediate encoded directly in the instruction stream
	SmallImmediate
	Call       // the return value of a call, before any register is assigned it
	Field      // an instance-field slot, resolved through a FieldDB
	Expression // a synthetic location standing in for an arbitrary expression
)

// Storage locates a value. Only the fields relevant to Kind are
// meaningful; the rest are zero.
type Storage struct {
	Kind   Kind
	Reg    arm64asm.Reg
	Offset int
	Idx    int
}

// NewRegister builds a register-backed Storage.
func NewRegister(r arm64asm.Reg) Storage { return Storage{Kind: Register, Reg: r} }

// NewLocal builds a frame-local Storage at the given fp offset.
func NewLocal(fpOffset int) Storage { return Storage{Kind: Local, Offset: fpOffset} }

// NewArgument builds a Storage for the idx'th incoming argument.
func NewArgument(idx int) Storage { return Storage{Kind: Argument, Idx: idx} }

// NewStatic builds a Storage for a static field, identified by its
// pool index (the field object is reached through the pool entry).
func NewStatic(poolIdx int) Storage { return Storage{Kind: StaticField, Offset: poolIdx} }

// NewPool builds a Storage for the poolIdx'th object-pool entry.
func NewPool(poolIdx int) Storage { return Storage{Kind: Pool, Offset: poolIdx} }

// NewThread builds a Storage for the thread-structure field at the
// given THR-relative offset.
func NewThread(thrOffset int) Storage { return Storage{Kind: Thread, Offset: thrOffset} }

// NewImmediate builds a Storage for a literal encoded in the
// instruction stream.
func NewImmediate() Storage { return Storage{Kind: Immediate} }

// NewSmallImm builds a Storage for a small literal value that was
// folded directly into an instruction's immediate field.
func NewSmallImm(v int) Storage { return Storage{Kind: SmallImmediate, Offset: v} }

// NewCall builds a Storage naming a call's (not yet register-homed)
// return value.
func NewCall() Storage { return Storage{Kind: Call} }

// NewField builds a Storage for an instance field reached through
// object-pool entry poolIdx.
func NewField(poolIdx int) Storage { return Storage{Kind: Field, Offset: poolIdx} }

// NewUninit builds the zero Storage, used before a register's first
// definition.
func NewUninit() Storage { return Storage{Kind: Uninitialized} }

// NewExpression builds a Storage standing in for an expression that
// has no single storage location of its own.
func NewExpression() Storage { return Storage{Kind: Expression} }

// EqualsRegister reports whether s names exactly register r.
func (s Storage) EqualsRegister(r arm64asm.Reg) bool {
	return s.Kind == Register && s.Reg == r
}

// IsImmediate reports whether s is a literal encoded directly in the
// instruction stream, as opposed to a folded-constant SmallImmediate.
func (s Storage) IsImmediate() bool {
	return s.Kind == Immediate
}

// IsPredefinedValue reports whether s names a location whose value is
// implied by the storage location itself, with no separate load
// needed: an Immediate encoded in the instruction stream, or a Pool
// entry resolved once and after that always known.
func (s Storage) IsPredefinedValue() bool {
	return s.Kind == Immediate || s.Kind == Pool
}

// Name renders s in the lifter's disassembly-adjacent notation.
func (s Storage) Name() string {
	switch s.Kind {
	case Register:
		return strings.ToLower(s.Reg.String())
	case Local:
		if s.Offset < 0 {
			return fmt.Sprintf("fp-0x%x", -s.Offset)
		}
		return fmt.Sprintf("fp+0x%x", s.Offset)
	case Argument:
		return fmt.Sprintf("arg%d", s.Idx)
	case StaticField:
		return fmt.Sprintf("static@0x%x", s.Offset)
	case Pool:
		return fmt.Sprintf("PP+0x%x", s.Offset)
	case Thread:
		return fmt.Sprintf("THR+0x%x", s.Offset)
	case Immediate:
		return "imm"
	case SmallImmediate:
		return fmt.Sprintf("smallimm(%d)", s.Offset)
	case Call:
		return "ret"
	case Field:
		return "field"
	case Expression:
		return "expr"
	default:
		return "?"
	}
}
