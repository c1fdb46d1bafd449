package lifter

import (
	"testing"

	"golang.org/x/arch/arm64/arm64asm"

	"github.com/Taarique/blutter/internal/dart/cid"
	"github.com/Taarique/blutter/internal/dart/ilinstr"
	"github.com/Taarique/blutter/internal/dart/runtime"
	"github.com/Taarique/blutter/internal/dart/storage"
	"github.com/Taarique/blutter/internal/dart/value"
)

func TestFileGetSetClearReset(t *testing.T) {
	f := NewFile()
	if f.Get(arm64asm.X3) != nil {
		t.Error("a fresh File must report no entry for any register")
	}
	it := value.NewItem(storage.NewRegister(arm64asm.X3), value.NewNull())
	f.Set(arm64asm.X3, it)
	if f.Get(arm64asm.X3) != it {
		t.Error("Get must return the exact Item passed to Set")
	}
	if f.Get(arm64asm.X4) != nil {
		t.Error("Set on x3 must not affect x4")
	}
	f.Clear(arm64asm.X3)
	if f.Get(arm64asm.X3) != nil {
		t.Error("Clear must remove the recorded entry")
	}
	f.Set(arm64asm.X3, it)
	f.Reset()
	if f.Get(arm64asm.X3) != nil {
		t.Error("Reset must clear every entry")
	}
}

func TestLiftRejectsNilPoolOrLayout(t *testing.T) {
	l := New(nil, runtime.NewMapLayout(), nil, nil, nil, nil, nil)
	if _, err := l.Lift(nil); err == nil {
		t.Error("Lift with a nil Pool must return an error")
	}
	l2 := New(runtime.MapPool{}, nil, nil, nil, nil, nil, nil)
	if _, err := l2.Lift(nil); err == nil {
		t.Error("Lift with a nil Layout must return an error")
	}
}

func newLifter() *Lifter {
	return New(runtime.MapPool{}, runtime.NewMapLayout(), nil, nil, nil, nil, nil)
}

func memImm(base arm64asm.Reg, mode arm64asm.AddrMode) arm64asm.MemImmediate {
	return arm64asm.MemImmediate{Base: arm64asm.RegSP(base), Mode: mode}
}

func TestRecognizeEnterFrame(t *testing.T) {
	l := newLifter()
	l.insts = []MachineInst{
		{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.STP, Args: arm64asm.Args{arm64asm.X29, arm64asm.X30, memImm(arm64asm.SP, arm64asm.AddrPreIndex)}}},
		{VA: 4, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.MOV, Args: arm64asm.Args{arm64asm.X29, arm64asm.RegSP(arm64asm.SP)}}},
	}
	node, n, ok := recognizeEnterFrame(l)
	if !ok || n != 2 {
		t.Fatalf("recognizeEnterFrame = (%v, %d, %v), want a 2-instruction match", node, n, ok)
	}
	if node.Kind() != ilinstr.EnterFrame {
		t.Errorf("Kind() = %v, want EnterFrame", node.Kind())
	}
}

func TestRecognizeLeaveFrame(t *testing.T) {
	l := newLifter()
	l.insts = []MachineInst{
		{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.LDP, Args: arm64asm.Args{arm64asm.X29, arm64asm.X30, memImm(arm64asm.SP, arm64asm.AddrPostIndex)}}},
	}
	node, n, ok := recognizeLeaveFrame(l)
	if !ok || n != 1 || node.Kind() != ilinstr.LeaveFrame {
		t.Fatalf("recognizeLeaveFrame = (%v, %d, %v), want a LeaveFrame match", node, n, ok)
	}
}

func TestRecognizeReturn(t *testing.T) {
	l := newLifter()
	l.insts = []MachineInst{{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.RET}}}
	node, n, ok := recognizeReturn(l)
	if !ok || n != 1 || node.String() != "ret" {
		t.Fatalf("recognizeReturn = (%v, %d, %v), want a Return match", node, n, ok)
	}
}

func TestRecognizeMoveRegMov(t *testing.T) {
	l := newLifter()
	l.insts = []MachineInst{{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.MOV, Args: arm64asm.Args{arm64asm.X1, arm64asm.X2}}}}
	node, n, ok := recognizeMoveReg(l)
	if !ok || n != 1 || node.String() != "x1 = x2" {
		t.Fatalf("recognizeMoveReg(MOV) = (%v, %d, %v), want \"x1 = x2\"", node, n, ok)
	}
}

func TestRecognizeMoveRegOrrZeroReg(t *testing.T) {
	l := newLifter()
	l.insts = []MachineInst{{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.ORR, Args: arm64asm.Args{arm64asm.X1, arm64asm.XZR, arm64asm.X2}}}}
	node, n, ok := recognizeMoveReg(l)
	if !ok || n != 1 || node.String() != "x1 = x2" {
		t.Fatalf("recognizeMoveReg(ORR xzr) = (%v, %d, %v), want \"x1 = x2\"", node, n, ok)
	}
}

func TestRecognizeMoveRegOrrNonZeroRegDoesNotMatch(t *testing.T) {
	l := newLifter()
	l.insts = []MachineInst{{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.ORR, Args: arm64asm.Args{arm64asm.X1, arm64asm.X3, arm64asm.X2}}}}
	if _, _, ok := recognizeMoveReg(l); ok {
		t.Error("recognizeMoveReg must reject an ORR whose second operand isn't the zero register")
	}
}

func TestRecognizeAllocateStack(t *testing.T) {
	l := newLifter()
	l.insts = []MachineInst{{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.SUB, Args: arm64asm.Args{
		arm64asm.RegSP(arm64asm.SP), arm64asm.RegSP(arm64asm.SP), arm64asm.Imm{Imm: 0x20},
	}}}}
	node, n, ok := recognizeAllocateStack(l)
	if !ok || n != 1 || node.String() != "AllocStack(0x20)" {
		t.Fatalf("recognizeAllocateStack = (%v, %d, %v), want \"AllocStack(0x20)\"", node, n, ok)
	}
}

func TestRecognizeAllocateStackRejectsNonSPOperands(t *testing.T) {
	l := newLifter()
	l.insts = []MachineInst{{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.SUB, Args: arm64asm.Args{
		arm64asm.X0, arm64asm.X0, arm64asm.Imm{Imm: 0x20},
	}}}}
	if _, _, ok := recognizeAllocateStack(l); ok {
		t.Error("recognizeAllocateStack must reject a SUB that doesn't target SP")
	}
}

func TestRecognizeLoadValueMovz(t *testing.T) {
	l := newLifter()
	l.insts = []MachineInst{{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.MOVZ, Args: arm64asm.Args{arm64asm.X0, arm64asm.Imm{Imm: 5}}}}}
	node, n, ok := recognizeLoadValue(l)
	if !ok || n != 1 || node.String() != "x0 = 5" {
		t.Fatalf("recognizeLoadValue(MOVZ) = (%v, %d, %v), want \"x0 = 5\"", node, n, ok)
	}
	if it := l.Regs.Get(arm64asm.X0); it == nil || it.Value.ValueInt() != 5 {
		t.Errorf("recognizeLoadValue must record the loaded value in the register file, got %v", it)
	}
}

func TestRecognizeLoadValueMovn(t *testing.T) {
	l := newLifter()
	l.insts = []MachineInst{{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.MOVN, Args: arm64asm.Args{arm64asm.X0, arm64asm.Imm{Imm: 0}}}}}
	node, _, ok := recognizeLoadValue(l)
	if !ok || node.String() != "x0 = -1" {
		t.Fatalf("recognizeLoadValue(MOVN #0) = %v, want \"x0 = -1\" (bitwise NOT of 0)", node)
	}
}

func TestRecognizeStoreObjectPool(t *testing.T) {
	l := newLifter()
	l.insts = []MachineInst{{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.STR, Args: arm64asm.Args{
		arm64asm.X3, memImm(poolReg, arm64asm.AddrOffset),
	}}}}
	node, n, ok := recognizeStoreObjectPool(l)
	if !ok || n != 1 || node.String() != "[PP+0x0] = x3" {
		t.Fatalf("recognizeStoreObjectPool = (%v, %d, %v), want \"[PP+0x0] = x3\"", node, n, ok)
	}
}

func TestRecognizeLoadFromPool(t *testing.T) {
	l := newLifter()
	l.Pool = runtime.MapPool{0: {Val: value.NewInteger(84, cid.Smi)}}
	l.insts = []MachineInst{{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.LDR, Args: arm64asm.Args{
		arm64asm.X0, memImm(poolReg, arm64asm.AddrOffset),
	}}}}
	node, n, ok := recognizeLoadFromPool(l)
	if !ok || n != 1 || node.String() != "x0 = 42" {
		t.Fatalf("recognizeLoadFromPool = (%v, %d, %v), want \"x0 = 42\"", node, n, ok)
	}
	if got := l.Regs.Get(arm64asm.X0); got == nil || got.Storage.Kind != storage.Pool {
		t.Errorf("recognizeLoadFromPool must record x0 as Pool-backed, got %+v", got)
	}
}

func TestRecognizeLoadFromPoolMissesWithoutPoolEntry(t *testing.T) {
	l := newLifter()
	l.insts = []MachineInst{{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.LDR, Args: arm64asm.Args{
		arm64asm.X0, memImm(poolReg, arm64asm.AddrOffset),
	}}}}
	if _, _, ok := recognizeLoadFromPool(l); ok {
		t.Error("recognizeLoadFromPool must not match a PP offset the pool has no entry for")
	}
}

func TestRecognizeLoadFromPoolUnknownEntryKind(t *testing.T) {
	l := newLifter()
	l.Pool = runtime.MapPool{0: {Val: nil}}
	l.insts = []MachineInst{{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.LDR, Args: arm64asm.Args{
		arm64asm.X0, memImm(poolReg, arm64asm.AddrOffset),
	}}}}
	node, n, ok := recognizeLoadFromPool(l)
	if !ok || n != 1 || node.String() != "x0 = PP+0x0" {
		t.Fatalf("recognizeLoadFromPool = (%v, %d, %v), want \"x0 = PP+0x0\"", node, n, ok)
	}
}

func TestRecognizeLoadStaticFieldResolvedByFieldDB(t *testing.T) {
	l := newLifter()
	l.Fields = stubFieldDB{offsets: map[uint32]*runtime.Field{0: {Owner: "Foo", Name: "bar"}}}
	l.insts = []MachineInst{{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.LDR, Args: arm64asm.Args{
		arm64asm.X0, memImm(threadReg, arm64asm.AddrOffset),
	}}}}
	node, n, ok := recognizeLoadStaticField(l)
	if !ok || n != 1 || node.String() != "x0 = LoadStaticField(0x0)" {
		t.Fatalf("recognizeLoadStaticField = (%v, %d, %v), want \"x0 = LoadStaticField(0x0)\"", node, n, ok)
	}
}

func TestRecognizeLoadStaticFieldMissesWithoutFieldDBEntry(t *testing.T) {
	l := newLifter()
	l.Fields = stubFieldDB{offsets: map[uint32]*runtime.Field{}}
	l.insts = []MachineInst{{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.LDR, Args: arm64asm.Args{
		arm64asm.X0, memImm(threadReg, arm64asm.AddrOffset),
	}}}}
	if _, _, ok := recognizeLoadStaticField(l); ok {
		t.Error("recognizeLoadStaticField must not match a thread-relative offset the FieldDB doesn't resolve")
	}
}

type stubFieldDB struct {
	offsets map[uint32]*runtime.Field
}

func (s stubFieldDB) ByOffset(offset uint32) (*runtime.Field, bool) {
	f, ok := s.offsets[offset]
	return f, ok
}

func TestRecognizeStoreStaticFieldResolvedByFieldDB(t *testing.T) {
	l := newLifter()
	l.Fields = stubFieldDB{offsets: map[uint32]*runtime.Field{0: {Owner: "Foo", Name: "bar"}}}
	l.insts = []MachineInst{{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.STR, Args: arm64asm.Args{
		arm64asm.X0, memImm(threadReg, arm64asm.AddrOffset),
	}}}}
	node, n, ok := recognizeStoreStaticField(l)
	if !ok || n != 1 || node.String() != "StoreStaticField(0x0, x0)" {
		t.Fatalf("recognizeStoreStaticField = (%v, %d, %v), want \"StoreStaticField(0x0, x0)\"", node, n, ok)
	}
}

func TestRecognizeStoreStaticFieldMissesWithoutFieldDBEntry(t *testing.T) {
	l := newLifter()
	l.Fields = stubFieldDB{offsets: map[uint32]*runtime.Field{}}
	l.insts = []MachineInst{{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.STR, Args: arm64asm.Args{
		arm64asm.X0, memImm(threadReg, arm64asm.AddrOffset),
	}}}}
	if _, _, ok := recognizeStoreStaticField(l); ok {
		t.Error("recognizeStoreStaticField must not match a thread-relative offset the FieldDB doesn't resolve")
	}
}

func TestRecognizeLoadFieldRejectsReservedBase(t *testing.T) {
	l := newLifter()
	l.insts = []MachineInst{{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.LDUR, Args: arm64asm.Args{
		arm64asm.X2, memImm(threadReg, arm64asm.AddrOffset),
	}}}}
	if _, _, ok := recognizeLoadField(l); ok {
		t.Error("recognizeLoadField must reject a reserved base register like THR")
	}
}

func TestRecognizeLoadFieldAndStoreField(t *testing.T) {
	l := newLifter()
	l.insts = []MachineInst{{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.LDUR, Args: arm64asm.Args{
		arm64asm.X2, memImm(arm64asm.X0, arm64asm.AddrOffset),
	}}}}
	node, n, ok := recognizeLoadField(l)
	if !ok || n != 1 || node.String() != "LoadField: x2 = x0->field_0" {
		t.Fatalf("recognizeLoadField = (%v, %d, %v), want \"LoadField: x2 = x0->field_0\"", node, n, ok)
	}

	l2 := newLifter()
	l2.insts = []MachineInst{{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.STUR, Args: arm64asm.Args{
		arm64asm.X2, memImm(arm64asm.X0, arm64asm.AddrOffset),
	}}}}
	node2, n2, ok2 := recognizeStoreField(l2)
	if !ok2 || n2 != 1 || node2.String() != "StoreField: x0->field_0 = x2" {
		t.Fatalf("recognizeStoreField = (%v, %d, %v), want \"StoreField: x0->field_0 = x2\"", node2, n2, ok2)
	}
}

type stubFunctionDB struct {
	byAddr map[uint64]*runtime.Function
}

func (s stubFunctionDB) ByAddress(addr uint64) (*runtime.Function, bool) {
	f, ok := s.byAddr[addr]
	return f, ok
}

func blInst(va uint64, target uint64) MachineInst {
	return MachineInst{VA: va, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.BL, Args: arm64asm.Args{arm64asm.PCRel(int64(target) - int64(va))}}}
}

func TestRecognizeWriteBarrier(t *testing.T) {
	l := newLifter()
	l.Functions = stubFunctionDB{byAddr: map[uint64]*runtime.Function{0x1000: {Name: "DRT_WriteBarrier"}}}
	l.insts = []MachineInst{blInst(0, 0x1000)}
	node, n, ok := recognizeWriteBarrier(l)
	if !ok || n != 1 || node.String() != "WriteBarrierInstr(obj = x1, val = x0)" {
		t.Fatalf("recognizeWriteBarrier = (%v, %d, %v), want the plain WriteBarrierInstr rendering", node, n, ok)
	}
}

func TestRecognizeWriteBarrierArrayVariant(t *testing.T) {
	l := newLifter()
	l.Functions = stubFunctionDB{byAddr: map[uint64]*runtime.Function{0x1000: {Name: "DRT_ArrayWriteBarrier"}}}
	l.insts = []MachineInst{blInst(0, 0x1000)}
	node, _, ok := recognizeWriteBarrier(l)
	if !ok || node.String() != "ArrayWriteBarrierInstr(obj = x1, val = x0)" {
		t.Fatalf("recognizeWriteBarrier = %v, want the array WriteBarrierInstr rendering", node)
	}
}

func TestRecognizeWriteBarrierMissesWithoutFunctionDB(t *testing.T) {
	l := newLifter()
	l.insts = []MachineInst{blInst(0, 0x1000)}
	if _, _, ok := recognizeWriteBarrier(l); ok {
		t.Error("recognizeWriteBarrier must not match with a nil FunctionDB")
	}
}

func TestRecognizeBranchIfSmi(t *testing.T) {
	l := newLifter()
	l.insts = []MachineInst{{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.TBZ, Args: arm64asm.Args{
		arm64asm.X0, arm64asm.Imm{Imm: 0}, arm64asm.PCRel(0x100),
	}}}}
	node, n, ok := recognizeBranchIfSmi(l)
	if !ok || n != 1 || node.String() != "branchIfSmi(x0, 0x100)" {
		t.Fatalf("recognizeBranchIfSmi = (%v, %d, %v), want \"branchIfSmi(x0, 0x100)\"", node, n, ok)
	}
}

func TestRecognizeLoadClassIdMissesOnZeroOffset(t *testing.T) {
	l := newLifter()
	l.insts = []MachineInst{{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.LDUR, Args: arm64asm.Args{
		arm64asm.X1, memImm(arm64asm.X0, arm64asm.AddrOffset),
	}}}}
	if _, _, ok := recognizeLoadClassId(l); ok {
		t.Error("recognizeLoadClassId must only match the -1 class-id tag offset, not a plain zero-offset load")
	}
}

func TestRecognizeBoxInt64(t *testing.T) {
	l := newLifter()
	l.Functions = stubFunctionDB{byAddr: map[uint64]*runtime.Function{0x1000: {Name: "AllocateMint"}}}
	l.insts = []MachineInst{blInst(0, 0x1000)}
	node, n, ok := recognizeBoxInt64(l)
	if !ok || n != 1 || node.String() != "x0 = BoxInt64Instr(x0)" {
		t.Fatalf("recognizeBoxInt64 = (%v, %d, %v), want \"x0 = BoxInt64Instr(x0)\"", node, n, ok)
	}
}

func TestRecognizeLoadInt32RequiresKnownIntegerBase(t *testing.T) {
	l := newLifter()
	l.insts = []MachineInst{{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.LDUR, Args: arm64asm.Args{
		arm64asm.X2, memImm(arm64asm.X0, arm64asm.AddrOffset),
	}}}}
	if _, _, ok := recognizeLoadInt32(l); ok {
		t.Error("recognizeLoadInt32 must not match unless the base register is already known to hold an Integer")
	}

	l.Regs.Set(arm64asm.X0, value.NewItem(storage.NewRegister(arm64asm.X0), value.NewInteger(0, cid.Mint)))
	node, n, ok := recognizeLoadInt32(l)
	if !ok || n != 1 || node.String() != "x2 = LoadInt32Instr(x0)" {
		t.Fatalf("recognizeLoadInt32 = (%v, %d, %v), want \"x2 = LoadInt32Instr(x0)\" once x0 is known Integer", node, n, ok)
	}
}

func TestRecognizeDecompressPointer(t *testing.T) {
	l := newLifter()
	l.insts = []MachineInst{{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.ADD, Args: arm64asm.Args{
		arm64asm.X2, arm64asm.X2, arm64asm.Reg(heapBaseReg),
	}}}}
	node, n, ok := recognizeDecompressPointer(l)
	if !ok || n != 1 || node.String() != "DecompressPointer x2" {
		t.Fatalf("recognizeDecompressPointer = (%v, %d, %v), want \"DecompressPointer x2\"", node, n, ok)
	}
}

func TestRecognizeDecompressPointerRejectsWhenCompressedPointersDisabled(t *testing.T) {
	l := newLifter()
	l.CompressedPointers = false
	l.insts = []MachineInst{{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.ADD, Args: arm64asm.Args{
		arm64asm.X2, arm64asm.X2, arm64asm.Reg(heapBaseReg),
	}}}}
	if _, _, ok := recognizeDecompressPointer(l); ok {
		t.Error("recognizeDecompressPointer must not match once CompressedPointers is disabled")
	}
}

func TestPeekRespectsMaxLookahead(t *testing.T) {
	l := newLifter()
	l.MaxLookahead = 1
	l.insts = []MachineInst{
		{VA: 0, Len: 4},
		{VA: 4, Len: 4},
		{VA: 8, Len: 4},
	}
	if _, ok := l.peek(1); !ok {
		t.Error("peek(1) must succeed when MaxLookahead is 1")
	}
	if _, ok := l.peek(2); ok {
		t.Error("peek(2) must fail once it exceeds MaxLookahead, even though the instruction stream has enough instructions left")
	}
}

func TestRecognizeSaveAndRestoreRegister(t *testing.T) {
	l := newLifter()
	l.insts = []MachineInst{{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.STR, Args: arm64asm.Args{
		arm64asm.X9, memImm(arm64asm.SP, arm64asm.AddrOffset),
	}}}}
	node, n, ok := recognizeSaveRegister(l)
	if !ok || n != 1 || node.String() != "SaveReg x9" {
		t.Fatalf("recognizeSaveRegister = (%v, %d, %v), want \"SaveReg x9\"", node, n, ok)
	}

	l2 := newLifter()
	l2.insts = []MachineInst{{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.LDR, Args: arm64asm.Args{
		arm64asm.X9, memImm(arm64asm.SP, arm64asm.AddrOffset),
	}}}}
	node2, n2, ok2 := recognizeRestoreRegister(l2)
	if !ok2 || n2 != 1 || node2.String() != "RestoreReg x9" {
		t.Fatalf("recognizeRestoreRegister = (%v, %d, %v), want \"RestoreReg x9\"", node2, n2, ok2)
	}
}

func TestRecognizeGdtCall(t *testing.T) {
	l := newLifter()
	l.insts = []MachineInst{
		{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.ADD, Args: arm64asm.Args{arm64asm.X9, arm64asm.Reg(dispatchReg), arm64asm.Imm{Imm: 0x18}}}},
		{VA: 4, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.BLR, Args: arm64asm.Args{arm64asm.X9}}},
	}
	node, n, ok := recognizeGdtCall(l)
	if !ok || n != 2 || node.String() != "r0 = GDT[cid_x0 + 0x18]()" {
		t.Fatalf("recognizeGdtCall = (%v, %d, %v), want \"r0 = GDT[cid_x0 + 0x18]()\"", node, n, ok)
	}
}

func TestRecognizeGdtCallRequiresMatchingCallRegister(t *testing.T) {
	l := newLifter()
	l.insts = []MachineInst{
		{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.ADD, Args: arm64asm.Args{arm64asm.X9, arm64asm.Reg(dispatchReg), arm64asm.Imm{Imm: 0x18}}}},
		{VA: 4, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.BLR, Args: arm64asm.Args{arm64asm.X10}}},
	}
	if _, _, ok := recognizeGdtCall(l); ok {
		t.Error("recognizeGdtCall must require the BLR target to be the same register the ADD computed")
	}
}

func TestRecognizeCallLeafRuntimeNoMoves(t *testing.T) {
	l := newLifter()
	l.insts = []MachineInst{
		{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.LDR, Args: arm64asm.Args{arm64asm.X9, memImm(threadReg, arm64asm.AddrOffset)}}},
		{VA: 4, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.BLR, Args: arm64asm.Args{arm64asm.X9}}},
	}
	node, n, ok := recognizeCallLeafRuntime(l)
	if !ok || n != 2 {
		t.Fatalf("recognizeCallLeafRuntime = (%v, %d, %v), want a 2-instruction match", node, n, ok)
	}
	if node.String() != "CallRuntime_unknown_0x0()" {
		t.Errorf("String() = %q, want the unresolved placeholder for offset 0x0", node.String())
	}
}

func TestRecognizeCallLeafRuntimeWithMoves(t *testing.T) {
	l := newLifter()
	l.insts = []MachineInst{
		{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.MOV, Args: arm64asm.Args{arm64asm.X0, arm64asm.X1}}},
		{VA: 4, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.LDR, Args: arm64asm.Args{arm64asm.X9, memImm(threadReg, arm64asm.AddrOffset)}}},
		{VA: 8, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.BLR, Args: arm64asm.Args{arm64asm.X9}}},
	}
	node, n, ok := recognizeCallLeafRuntime(l)
	if !ok || n != 3 {
		t.Fatalf("recognizeCallLeafRuntime = (%v, %d, %v), want a 3-instruction match including the MOV", node, n, ok)
	}
	if got := node.Range().Start; got != 0 {
		t.Errorf("Range().Start = %#x, want 0 (the first move's address)", got)
	}
}

func TestRecognizeAllocateObject(t *testing.T) {
	l := newLifter()
	l.Functions = stubFunctionDB{byAddr: map[uint64]*runtime.Function{0x1000: {Name: "AllocateFoo"}}}
	l.insts = []MachineInst{blInst(0, 0x1000)}
	node, n, ok := recognizeAllocateObject(l)
	if !ok || n != 1 || node.String() != "x0 = inline_AllocateFoo()" {
		t.Fatalf("recognizeAllocateObject = (%v, %d, %v), want \"x0 = inline_AllocateFoo()\"", node, n, ok)
	}
}

func TestRecognizeLoadAndStoreArrayElement(t *testing.T) {
	l := newLifter()
	ext := arm64asm.MemExtend{Base: arm64asm.RegSP(arm64asm.X1), Index: arm64asm.X2}
	l.insts = []MachineInst{{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.LDR, Args: arm64asm.Args{arm64asm.X0, ext}}}}
	node, n, ok := recognizeLoadArrayElement(l)
	if !ok || n != 1 || node.String() != "ArrayLoad: x0 = x1[x2]  ; Unknown_8" {
		t.Fatalf("recognizeLoadArrayElement = (%v, %d, %v), want the array-load rendering", node, n, ok)
	}

	l2 := newLifter()
	l2.insts = []MachineInst{{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.STR, Args: arm64asm.Args{arm64asm.X0, ext}}}}
	node2, n2, ok2 := recognizeStoreArrayElement(l2)
	if !ok2 || n2 != 1 || node2.String() != "ArrayStore: x1[x2] = x0  ; Unknown_8" {
		t.Fatalf("recognizeStoreArrayElement = (%v, %d, %v), want the array-store rendering", node2, n2, ok2)
	}
}

func TestRecognizeTestType(t *testing.T) {
	l := newLifter()
	l.Functions = stubFunctionDB{byAddr: map[uint64]*runtime.Function{0x1000: {Name: "InstanceOfStub"}}}
	l.insts = []MachineInst{blInst(0, 0x1000)}
	node, n, ok := recognizeTestType(l)
	if !ok || n != 1 || node.String() != "x0 as dynamic" {
		t.Fatalf("recognizeTestType = (%v, %d, %v), want the \"dynamic\" fallback type name", node, n, ok)
	}
}

func TestRecognizeClosureCall(t *testing.T) {
	l := newLifter()
	l.insts = []MachineInst{
		{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.LDR, Args: arm64asm.Args{arm64asm.X9, memImm(arm64asm.X0, arm64asm.AddrOffset)}}},
		{VA: 4, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.BLR, Args: arm64asm.Args{arm64asm.X9}}},
	}
	node, n, ok := recognizeClosureCall(l)
	if !ok || n != 2 || node.Kind() != ilinstr.ClosureCall {
		t.Fatalf("recognizeClosureCall = (%v, %d, %v), want a ClosureCall match", node, n, ok)
	}
}

func TestRecognizeCallUnresolved(t *testing.T) {
	l := newLifter()
	l.insts = []MachineInst{blInst(0, 0x2000)}
	node, n, ok := recognizeCall(l)
	if !ok || n != 1 || node.String() != "r0 = call 0x2000" {
		t.Fatalf("recognizeCall = (%v, %d, %v), want the unresolved \"r0 = call 0x2000\" rendering", node, n, ok)
	}
}

func TestRecognizeCallResolved(t *testing.T) {
	l := newLifter()
	l.Functions = stubFunctionDB{byAddr: map[uint64]*runtime.Function{0x2000: {Name: "Foo.bar"}}}
	l.insts = []MachineInst{blInst(0, 0x2000)}
	node, n, ok := recognizeCall(l)
	if !ok || n != 1 || node.String() != "r0 = Foo.bar()" {
		t.Fatalf("recognizeCall = (%v, %d, %v), want \"r0 = Foo.bar()\"", node, n, ok)
	}
}

// TestLiftEndToEndProlog exercises the dispatch loop through Lift
// itself rather than calling a recognizer directly, covering the
// standard function prolog end to end.
func TestLiftEndToEndProlog(t *testing.T) {
	l := newLifter()
	insts := []MachineInst{
		{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.STP, Args: arm64asm.Args{arm64asm.X29, arm64asm.X30, memImm(arm64asm.SP, arm64asm.AddrPreIndex)}}},
		{VA: 4, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.MOV, Args: arm64asm.Args{arm64asm.X29, arm64asm.RegSP(arm64asm.SP)}}},
		{VA: 8, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.RET}},
	}
	out, err := l.Lift(insts)
	if err != nil {
		t.Fatalf("Lift returned an error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2 (EnterFrame collapses 2 instructions, then Return)", len(out))
	}
	if out[0].Kind() != ilinstr.EnterFrame {
		t.Errorf("out[0].Kind() = %v, want EnterFrame", out[0].Kind())
	}
	if out[1].Kind() != ilinstr.Return {
		t.Errorf("out[1].Kind() = %v, want Return", out[1].Kind())
	}
}

// TestLiftEndToEndUnknownFallback covers an instruction no recognizer
// matches, falling back to UnknownInstr.
func TestLiftEndToEndUnknownFallback(t *testing.T) {
	l := newLifter()
	insts := []MachineInst{
		{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.Op(0)}},
	}
	out, err := l.Lift(insts)
	if err != nil {
		t.Fatalf("Lift returned an error: %v", err)
	}
	if len(out) != 1 || out[0].Kind() != ilinstr.Unknown {
		t.Fatalf("out = %v, want a single UnknownInstr fallback", out)
	}
}

// TestLiftEndToEndPoolLoad exercises a pool-relative load through
// Lift itself: PP holds a smi-tagged 42 at the matched offset, and
// the dispatch loop must reach recognizeLoadFromPool rather than the
// thread-relative recognizeLoadStaticField.
func TestLiftEndToEndPoolLoad(t *testing.T) {
	l := newLifter()
	l.Pool = runtime.MapPool{0: {Val: value.NewInteger(84, cid.Smi)}}
	insts := []MachineInst{
		{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.LDR, Args: arm64asm.Args{arm64asm.X0, memImm(poolReg, arm64asm.AddrOffset)}}},
	}
	out, err := l.Lift(insts)
	if err != nil {
		t.Fatalf("Lift returned an error: %v", err)
	}
	if len(out) != 1 || out[0].Kind() != ilinstr.LoadValue || out[0].String() != "x0 = 42" {
		t.Fatalf("out = %v, want a single LoadValue stringifying to \"x0 = 42\"", out)
	}
}

// TestLiftEndToEndClosureCallReachableThroughCatalogue proves
// recognizeClosureCall wins over the generic recognizeLoadField for
// the closure-call idiom's first instruction (ldr tmp, [x0, #0]),
// since x0 is not a reserved base and recognizeLoadField would
// otherwise consume it before the 2-instruction lookahead ever runs.
func TestLiftEndToEndClosureCallReachableThroughCatalogue(t *testing.T) {
	l := newLifter()
	insts := []MachineInst{
		{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.LDR, Args: arm64asm.Args{arm64asm.X9, memImm(arm64asm.X0, arm64asm.AddrOffset)}}},
		{VA: 4, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.BLR, Args: arm64asm.Args{arm64asm.X9}}},
	}
	out, err := l.Lift(insts)
	if err != nil {
		t.Fatalf("Lift returned an error: %v", err)
	}
	if len(out) != 1 || out[0].Kind() != ilinstr.ClosureCall {
		t.Fatalf("out = %v, want a single ClosureCall (catalogue order must try recognizeClosureCall before recognizeLoadField)", out)
	}
}

// TestLiftEndToEndLoadClassIdReachableThroughCatalogue proves
// recognizeLoadClassId wins over the generic recognizeLoadField for
// the standalone class-id idiom ldur w1, [x0, #-1], matching spec
// §4.4's documented priority (item 6 before item 10). The -1
// displacement can't be built through the literal MemImmediate struct
// (its imm field is private), so the instruction is decoded from its
// real encoding.
func TestLiftEndToEndLoadClassIdReachableThroughCatalogue(t *testing.T) {
	inst, err := arm64asm.Decode([]byte{0x01, 0xf0, 0x5f, 0xb8})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if inst.Op != arm64asm.LDUR {
		t.Fatalf("decoded Op = %v, want LDUR (bad encoding constant)", inst.Op)
	}
	l := newLifter()
	out, err := l.Lift([]MachineInst{{VA: 0, Len: 4, Inst: inst}})
	if err != nil {
		t.Fatalf("Lift returned an error: %v", err)
	}
	if len(out) != 1 || out[0].Kind() != ilinstr.LoadClassId {
		t.Fatalf("out = %v, want a single LoadClassId (catalogue order must try recognizeLoadClassId before recognizeLoadField)", out)
	}
}

func TestArrayLoadAndStoreSizeByOpcode(t *testing.T) {
	loadCases := []struct {
		name string
		op   arm64asm.Op
		reg  arm64asm.Reg
		want uint8
	}{
		{"byte load", arm64asm.LDRB, arm64asm.W0, 1},
		{"signed byte load", arm64asm.LDRSB, arm64asm.W0, 1},
		{"half-word load", arm64asm.LDRH, arm64asm.W0, 2},
		{"signed half-word load", arm64asm.LDRSH, arm64asm.W0, 2},
		{"signed word load", arm64asm.LDRSW, arm64asm.X0, 4},
		{"word load, W dest", arm64asm.LDR, arm64asm.W0, 4},
		{"doubleword load, X dest", arm64asm.LDR, arm64asm.X0, 8},
	}
	for _, c := range loadCases {
		got, ok := arrayLoadSize(c.op, c.reg)
		if !ok || got != c.want {
			t.Errorf("%s: arrayLoadSize(%v, %v) = (%d, %v), want (%d, true)", c.name, c.op, c.reg, got, ok, c.want)
		}
	}
	if _, ok := arrayLoadSize(arm64asm.STR, arm64asm.X0); ok {
		t.Error("arrayLoadSize must reject a store opcode")
	}

	storeCases := []struct {
		name string
		op   arm64asm.Op
		reg  arm64asm.Reg
		want uint8
	}{
		{"byte store", arm64asm.STRB, arm64asm.W0, 1},
		{"half-word store", arm64asm.STRH, arm64asm.W0, 2},
		{"word store, W src", arm64asm.STR, arm64asm.W1, 4},
		{"doubleword store, X src", arm64asm.STR, arm64asm.X1, 8},
	}
	for _, c := range storeCases {
		got, ok := arrayStoreSize(c.op, c.reg)
		if !ok || got != c.want {
			t.Errorf("%s: arrayStoreSize(%v, %v) = (%d, %v), want (%d, true)", c.name, c.op, c.reg, got, ok, c.want)
		}
	}
	if _, ok := arrayStoreSize(arm64asm.LDR, arm64asm.X0); ok {
		t.Error("arrayStoreSize must reject a load opcode")
	}
}

func TestRecognizeLoadArrayElementByteAndHalfWordWidths(t *testing.T) {
	ext := arm64asm.MemExtend{Base: arm64asm.RegSP(arm64asm.X1), Index: arm64asm.X2}

	l := newLifter()
	l.insts = []MachineInst{{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.LDRB, Args: arm64asm.Args{arm64asm.W0, ext}}}}
	node, n, ok := recognizeLoadArrayElement(l)
	if !ok || n != 1 || node.String() != "ArrayLoad: w0 = x1[x2]  ; Unknown_1" {
		t.Fatalf("recognizeLoadArrayElement(LDRB) = (%v, %d, %v), want SizeLog2-0 rendering", node, n, ok)
	}

	l2 := newLifter()
	l2.insts = []MachineInst{{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.LDRH, Args: arm64asm.Args{arm64asm.W0, ext}}}}
	node2, n2, ok2 := recognizeLoadArrayElement(l2)
	if !ok2 || n2 != 1 || node2.String() != "ArrayLoad: w0 = x1[x2]  ; Unknown_2" {
		t.Fatalf("recognizeLoadArrayElement(LDRH) = (%v, %d, %v), want SizeLog2-1 rendering", node2, n2, ok2)
	}

	l3 := newLifter()
	l3.insts = []MachineInst{{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.LDR, Args: arm64asm.Args{arm64asm.W0, ext}}}}
	node3, n3, ok3 := recognizeLoadArrayElement(l3)
	if !ok3 || n3 != 1 || node3.String() != "ArrayLoad: w0 = x1[x2]  ; Unknown_4" {
		t.Fatalf("recognizeLoadArrayElement(LDR, W dest) = (%v, %d, %v), want SizeLog2-2 rendering", node3, n3, ok3)
	}
}

func TestRecognizeStoreArrayElementByteWidth(t *testing.T) {
	ext := arm64asm.MemExtend{Base: arm64asm.RegSP(arm64asm.X1), Index: arm64asm.X2}
	l := newLifter()
	l.insts = []MachineInst{{VA: 0, Len: 4, Inst: arm64asm.Inst{Op: arm64asm.STRB, Args: arm64asm.Args{arm64asm.W0, ext}}}}
	node, n, ok := recognizeStoreArrayElement(l)
	if !ok || n != 1 || node.String() != "ArrayStore: x1[x2] = w0  ; Unknown_1" {
		t.Fatalf("recognizeStoreArrayElement(STRB) = (%v, %d, %v), want SizeLog2-0 rendering", node, n, ok)
	}
}

func TestIsGDTClassID(t *testing.T) {
	if !isGDTClassID(cid.Illegal) {
		t.Error("isGDTClassID(cid.Illegal) must be true")
	}
	if isGDTClassID(cid.Smi) {
		t.Error("isGDTClassID(cid.Smi) must be false")
	}
}
