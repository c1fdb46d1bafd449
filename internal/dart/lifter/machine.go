package lifter

import "golang.org/x/arch/arm64/arm64asm"

// MachineInst is one decoded ARM64 instruction at a known virtual
// address, the lifter's unit of input.
type MachineInst struct {
	VA   uint64
	Inst arm64asm.Inst
	Len  uint64 // 4 on ARM64, carried explicitly rather than assumed
}

// End returns the address immediately after the instruction.
func (m MachineInst) End() uint64 { return m.VA + m.Len }
