package storage

import (
	"testing"

	"golang.org/x/arch/arm64/arm64asm"
)

func TestNameRendersEachKind(t *testing.T) {
	cases := []struct {
		name string
		s    Storage
		want string
	}{
		{"register", NewRegister(arm64asm.X3), "x3"},
		{"local negative", NewLocal(-16), "fp-0x10"},
		{"local positive", NewLocal(16), "fp+0x10"},
		{"argument", NewArgument(2), "arg2"},
		{"static field", NewStatic(8), "static@0x8"},
		{"pool", NewPool(5), "PP+0x5"},
		{"thread", NewThread(0x18), "THR+0x18"},
		{"immediate", NewImmediate(), "imm"},
		{"small immediate", NewSmallImm(7), "smallimm(7)"},
		{"call", NewCall(), "ret"},
		{"field", NewField(3), "field"},
		{"expression", NewExpression(), "expr"},
		{"uninitialized", NewUninit(), "?"},
	}
	for _, c := range cases {
		if got := c.s.Name(); got != c.want {
			t.Errorf("%s: Name() = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestEqualsRegister(t *testing.T) {
	s := NewRegister(arm64asm.X3)
	if !s.EqualsRegister(arm64asm.X3) {
		t.Error("expected EqualsRegister(x3) to be true")
	}
	if s.EqualsRegister(arm64asm.X4) {
		t.Error("expected EqualsRegister(x4) to be false")
	}
	if NewLocal(0).EqualsRegister(arm64asm.X3) {
		t.Error("a non-register Storage must never equal a register")
	}
}

func TestIsImmediate(t *testing.T) {
	if !NewImmediate().IsImmediate() {
		t.Error("Immediate must report IsImmediate")
	}
	if NewSmallImm(1).IsImmediate() {
		t.Error("SmallImmediate must not report IsImmediate, only Immediate does")
	}
	if NewRegister(arm64asm.X0).IsImmediate() {
		t.Error("a register Storage must not report IsImmediate")
	}
}

func TestIsPredefinedValue(t *testing.T) {
	if !NewImmediate().IsPredefinedValue() {
		t.Error("Immediate must be a predefined value")
	}
	if !NewPool(0).IsPredefinedValue() {
		t.Error("a Pool Storage must be a predefined value, resolved once through the pool")
	}
	if NewSmallImm(1).IsPredefinedValue() {
		t.Error("a SmallImmediate Storage must not be a predefined value")
	}
	if NewRegister(arm64asm.X0).IsPredefinedValue() {
		t.Error("a register Storage must not be a predefined value")
	}
}
