// Package lifter implements the pattern-recognition engine that
// turns a decoded ARM64 instruction stream into the lifted IL from
// package ilinstr. Its register-file side table is the direct
// descendant of the teacher's analysis.RegisterState: a map keyed by
// lowercase register name, reset at each function boundary, threaded
// through a priority-ordered catalogue of idiom recognizers.
package lifter

import (
	"strings"

	"golang.org/x/arch/arm64/arm64asm"

	"github.com/Taarique/blutter/internal/dart/value"
)

// File is the register-file side table: what the lifter currently
// believes is held in each machine register, keyed the way the
// teacher's RegisterState keys its maps ("x3", not arm64asm.Reg's own
// stringer form).
type File struct {
	items map[string]*value.Item
}

// NewFile builds an empty register file.
func NewFile() *File {
	return &File{items: make(map[string]*value.Item)}
}

// Reset clears every entry, done at each function's prolog the way
// the teacher calls NewRegisterState() per function.
func (f *File) Reset() {
	f.items = make(map[string]*value.Item)
}

func key(r arm64asm.Reg) string { return strings.ToLower(r.String()) }

// Get returns the Item currently believed to occupy r, or nil if r
// has no recorded definition.
func (f *File) Get(r arm64asm.Reg) *value.Item {
	return f.items[key(r)]
}

// Set records that r now holds it.
func (f *File) Set(r arm64asm.Reg, it *value.Item) {
	f.items[key(r)] = it
}

// Clear removes any recorded definition for r, used when a
// recognizer determines r's prior contents no longer apply (e.g.
// after a call clobbers caller-saved registers).
func (f *File) Clear(r arm64asm.Reg) {
	delete(f.items, key(r))
}
