package lifter

import (
	"fmt"
	"strings"

	"golang.org/x/arch/arm64/arm64asm"

	"github.com/Taarique/blutter/internal/dart/cid"
	"github.com/Taarique/blutter/internal/dart/ilinstr"
	"github.com/Taarique/blutter/internal/dart/storage"
	"github.com/Taarique/blutter/internal/dart/value"
)

// Recognizer inspects the Lifter's current position and, on a match,
// returns the IL node to emit and how many machine instructions it
// consumed. A Recognizer that doesn't match must leave the Lifter's
// position untouched and return ok=false: the dispatch loop in Lift
// tries the next entry in catalogue, and falls back to UnknownInstr
// if nothing matches.
type Recognizer func(l *Lifter) (ilinstr.Instr, int, bool)

// catalogue is the fixed, priority-ordered recognizer list, matching
// spec.md §4.4's documented order. Order matters in two distinct ways:
// composite idioms (LoadTaggedClassIdMayBeSmi, ClosureCall,
// CallLeafRuntime, GdtCall, CheckStackOverflow) must be tried before
// any single-instruction recognizer that could consume their first
// instruction out from under them, and narrower single-instruction
// recognizers (LoadClassId, BranchIfSmi) must be tried before the
// generic LoadField/StoreField catch-all that would otherwise win on
// any non-reserved base register.
var catalogue = []Recognizer{
	recognizeEnterFrame,
	recognizeLeaveFrame,
	recognizeAllocateStack,
	recognizeCheckStackOverflow,
	recognizeLoadTaggedClassIdMayBeSmi,
	recognizeLoadClassId,
	recognizeBranchIfSmi,
	recognizeBoxInt64,
	recognizeLoadInt32,
	recognizeLoadFromPool,
	recognizeStoreObjectPool,
	recognizeCallLeafRuntime,
	recognizeMoveReg,
	recognizeAllocateObject,
	recognizeClosureCall,
	recognizeLoadField,
	recognizeStoreField,
	recognizeLoadArrayElement,
	recognizeStoreArrayElement,
	recognizeWriteBarrier,
	recognizeGdtCall,
	recognizeCall,
	recognizeReturn,
	recognizeTestType,
	recognizeLoadStaticField,
	recognizeStoreStaticField,
	recognizeDecompressPointer,
	recognizeSaveRegister,
	recognizeRestoreRegister,
	recognizeLoadValue,
}

// memBase converts a MemImmediate's base (typed RegSP, since SP is a
// valid memory base but never a valid destination register) to the
// plain Reg every recognizer otherwise compares against.
func memBase(mem arm64asm.MemImmediate) arm64asm.Reg {
	r, _ := regArg(mem.Base)
	return r
}

// extBase is memBase's counterpart for the register-indexed MemExtend
// operand array indexing uses.
func extBase(ext arm64asm.MemExtend) arm64asm.Reg {
	r, _ := regArg(ext.Base)
	return r
}

// recognizeEnterFrame matches the standard 2-instruction prolog:
// stp fp, lr, [sp, #-N]!  (or equivalent push of fp/lr)
// mov fp, sp
func recognizeEnterFrame(l *Lifter) (ilinstr.Instr, int, bool) {
	first := l.cur()
	if !strings.HasPrefix(first.Inst.Op.String(), "STP") {
		return nil, 0, false
	}
	second, ok := l.peek(1)
	if !ok || second.Inst.Op != arm64asm.MOV {
		return nil, 0, false
	}
	dst, ok1 := regArg(second.Inst.Args[0])
	src, ok2 := regArg(second.Inst.Args[1])
	if !ok1 || !ok2 || dst != arm64asm.X29 || src != arm64asm.SP {
		return nil, 0, false
	}
	return ilinstr.NewEnterFrame(first.VA, second.End()), 2, true
}

// recognizeLeaveFrame matches the standard epilog's frame-pointer
// restore (ldp fp, lr, [sp], #N).
func recognizeLeaveFrame(l *Lifter) (ilinstr.Instr, int, bool) {
	cur := l.cur()
	if !strings.HasPrefix(cur.Inst.Op.String(), "LDP") {
		return nil, 0, false
	}
	d0, ok := regArg(cur.Inst.Args[0])
	if !ok || d0 != arm64asm.X29 {
		return nil, 0, false
	}
	return ilinstr.NewLeaveFrame(cur.VA, cur.End()), 1, true
}

// recognizeCheckStackOverflow matches the 3-instruction guard:
// ldr tmp, [THR, #stack_limit]; cmp sp, tmp; b.<cond> overflow
func recognizeCheckStackOverflow(l *Lifter) (ilinstr.Instr, int, bool) {
	load := l.cur()
	if load.Inst.Op != arm64asm.LDR {
		return nil, 0, false
	}
	mem, ok := memArg(load.Inst.Args[1])
	if !ok || memBase(mem) != threadReg {
		return nil, 0, false
	}
	cmp, ok := l.peek(1)
	if !ok {
		return nil, 0, false
	}
	cmpOp := cmp.Inst.Op.String()
	if !strings.HasPrefix(cmpOp, "CMP") && !strings.HasPrefix(cmpOp, "SUBS") {
		return nil, 0, false
	}
	branch, ok := l.peek(2)
	if !ok {
		return nil, 0, false
	}
	op := branch.Inst.Op.String()
	if op == "BL" || op == "BLR" || op == "RET" || !strings.HasPrefix(op, "B") {
		return nil, 0, false
	}
	var target uint64
	for _, a := range branch.Inst.Args {
		if rel, ok := a.(arm64asm.PCRel); ok {
			target = branch.VA + uint64(int64(rel))
		}
	}
	return ilinstr.NewCheckStackOverflow(load.VA, branch.End(), target), 3, true
}

// recognizeAllocateStack matches sub sp, sp, #N.
func recognizeAllocateStack(l *Lifter) (ilinstr.Instr, int, bool) {
	cur := l.cur()
	if cur.Inst.Op != arm64asm.SUB {
		return nil, 0, false
	}
	dst, ok1 := regArg(cur.Inst.Args[0])
	src, ok2 := regArg(cur.Inst.Args[1])
	if !ok1 || !ok2 || dst != arm64asm.SP || src != arm64asm.SP {
		return nil, 0, false
	}
	imm, ok := immArg(cur.Inst.Args[2])
	if !ok {
		return nil, 0, false
	}
	return ilinstr.NewAllocateStack(cur.VA, cur.End(), uint32(imm)), 1, true
}

// recognizeReturn matches ret.
func recognizeReturn(l *Lifter) (ilinstr.Instr, int, bool) {
	cur := l.cur()
	if cur.Inst.Op != arm64asm.RET {
		return nil, 0, false
	}
	return ilinstr.NewReturn(cur.VA, cur.End()), 1, true
}

// recognizeMoveReg matches a plain register move: mov xd, xn, or the
// orr xd, xzr, xn idiom the assembler sometimes emits instead.
func recognizeMoveReg(l *Lifter) (ilinstr.Instr, int, bool) {
	cur := l.cur()
	switch cur.Inst.Op {
	case arm64asm.MOV:
		dst, ok1 := regArg(cur.Inst.Args[0])
		src, ok2 := regArg(cur.Inst.Args[1])
		if !ok1 || !ok2 {
			return nil, 0, false
		}
		l.Regs.Set(dst, l.Regs.Get(src))
		return ilinstr.NewMoveReg(cur.VA, cur.End(), dst, src), 1, true
	case arm64asm.ORR:
		if len(cur.Inst.Args) < 3 {
			return nil, 0, false
		}
		dst, ok1 := regArg(cur.Inst.Args[0])
		zr, ok2 := regArg(cur.Inst.Args[1])
		src, ok3 := regArg(cur.Inst.Args[2])
		if !ok1 || !ok2 || !ok3 || (zr != arm64asm.XZR && zr != arm64asm.WZR) {
			return nil, 0, false
		}
		l.Regs.Set(dst, l.Regs.Get(src))
		return ilinstr.NewMoveReg(cur.VA, cur.End(), dst, src), 1, true
	default:
		return nil, 0, false
	}
}

// recognizeLoadValue matches a load of an immediate via MOVZ/MOVN into
// a register — the simplest shape of the LoadValue family, for small
// integer constants folded directly into the instruction stream
// rather than routed through the object pool.
func recognizeLoadValue(l *Lifter) (ilinstr.Instr, int, bool) {
	cur := l.cur()
	if cur.Inst.Op != arm64asm.MOVZ && cur.Inst.Op != arm64asm.MOVN {
		return nil, 0, false
	}
	dst, ok := regArg(cur.Inst.Args[0])
	if !ok {
		return nil, 0, false
	}
	imm, ok := immArg(cur.Inst.Args[1])
	if !ok {
		return nil, 0, false
	}
	if cur.Inst.Op == arm64asm.MOVN {
		imm = ^imm
	}
	val := value.NewInteger(imm, cid.NativeInt)
	item := value.NewItem(storage.NewSmallImm(int(imm)), val)
	l.Regs.Set(dst, item)
	return ilinstr.NewLoadValue(cur.VA, cur.End(), dst, item), 1, true
}

// poolReg is the register convention for the object-pool base
// pointer (PP), mirroring dispatchReg's GDT-base convention.
const poolReg = arm64asm.X27

// threadReg is the register convention for the thread-structure base
// pointer (THR).
const threadReg = arm64asm.X26

// heapBaseReg is the register convention Dart's AOT compiler reserves
// for the compressed-heap base pointer.
const heapBaseReg = arm64asm.X28

// recognizeStoreObjectPool matches a store into the object pool:
// str xs, [PP, #off]
func recognizeStoreObjectPool(l *Lifter) (ilinstr.Instr, int, bool) {
	cur := l.cur()
	if cur.Inst.Op != arm64asm.STR {
		return nil, 0, false
	}
	src, ok := regArg(cur.Inst.Args[0])
	if !ok {
		return nil, 0, false
	}
	mem, ok := memArg(cur.Inst.Args[1])
	if !ok || memBase(mem) != poolReg {
		return nil, 0, false
	}
	return ilinstr.NewStoreObjectPool(cur.VA, cur.End(), src, memOffset(mem)), 1, true
}

// recognizeLoadFromPool matches a pool-relative load: ldr xd, [PP,
// #off]. Rather than guessing the pool entry's kind from instruction
// shape, it decodes the entry itself through l.Pool.At and emits a
// LoadValue whose VarValue mirrors the entry's own kind; an entry the
// pool holds without a decoded value renders as a placeholder
// Expression instead of failing the recognizer. An offset with no pool
// entry at all is not matched.
func recognizeLoadFromPool(l *Lifter) (ilinstr.Instr, int, bool) {
	cur := l.cur()
	if cur.Inst.Op != arm64asm.LDR {
		return nil, 0, false
	}
	dst, ok := regArg(cur.Inst.Args[0])
	if !ok {
		return nil, 0, false
	}
	mem, ok := memArg(cur.Inst.Args[1])
	if !ok || memBase(mem) != poolReg {
		return nil, 0, false
	}
	off := int(memOffset(mem))
	entry, found := l.Pool.At(off)
	if !found {
		return nil, 0, false
	}
	val := entry.Val
	if val == nil {
		val = value.NewExpression(fmt.Sprintf("PP+0x%x", off))
	}
	item := value.NewItem(storage.NewPool(off), val)
	l.Regs.Set(dst, item)
	return ilinstr.NewLoadValue(cur.VA, cur.End(), dst, item), 1, true
}

// recognizeLoadStaticField matches a thread-pointer-relative load
// that the FieldDB resolves as a static field: ldr xd, [THR, #off],
// symmetric with recognizeStoreStaticField's guard.
func recognizeLoadStaticField(l *Lifter) (ilinstr.Instr, int, bool) {
	cur := l.cur()
	if cur.Inst.Op != arm64asm.LDR {
		return nil, 0, false
	}
	dst, ok := regArg(cur.Inst.Args[0])
	if !ok {
		return nil, 0, false
	}
	mem, ok := memArg(cur.Inst.Args[1])
	if !ok || memBase(mem) != threadReg {
		return nil, 0, false
	}
	if l.Fields == nil {
		return nil, 0, false
	}
	off := uint32(memOffset(mem))
	if _, found := l.Fields.ByOffset(off); !found {
		return nil, 0, false
	}
	l.Regs.Clear(dst)
	return ilinstr.NewLoadStaticField(cur.VA, cur.End(), dst, off), 1, true
}

// recognizeStoreStaticField matches a write through the thread
// structure to a location the FieldDB resolves as a static field.
func recognizeStoreStaticField(l *Lifter) (ilinstr.Instr, int, bool) {
	cur := l.cur()
	if cur.Inst.Op != arm64asm.STR {
		return nil, 0, false
	}
	src, ok := regArg(cur.Inst.Args[0])
	if !ok {
		return nil, 0, false
	}
	mem, ok := memArg(cur.Inst.Args[1])
	if !ok || memBase(mem) != threadReg {
		return nil, 0, false
	}
	if l.Fields == nil {
		return nil, 0, false
	}
	off := uint32(memOffset(mem))
	if _, found := l.Fields.ByOffset(off); !found {
		return nil, 0, false
	}
	return ilinstr.NewStoreStaticField(cur.VA, cur.End(), src, off), 1, true
}

// recognizeLoadField matches an instance-field read: ldur xd, [xn,
// #off] (or the positive-offset ldr form) where xn isn't one of the
// reserved base registers.
func recognizeLoadField(l *Lifter) (ilinstr.Instr, int, bool) {
	cur := l.cur()
	if cur.Inst.Op != arm64asm.LDUR && cur.Inst.Op != arm64asm.LDR {
		return nil, 0, false
	}
	dst, ok := regArg(cur.Inst.Args[0])
	if !ok {
		return nil, 0, false
	}
	mem, ok := memArg(cur.Inst.Args[1])
	if !ok || isReservedBase(memBase(mem)) {
		return nil, 0, false
	}
	l.Regs.Clear(dst)
	return ilinstr.NewLoadField(cur.VA, cur.End(), dst, memBase(mem), uint32(memOffset(mem))), 1, true
}

// recognizeStoreField matches the inverse store shape.
func recognizeStoreField(l *Lifter) (ilinstr.Instr, int, bool) {
	cur := l.cur()
	if cur.Inst.Op != arm64asm.STUR && cur.Inst.Op != arm64asm.STR {
		return nil, 0, false
	}
	src, ok := regArg(cur.Inst.Args[0])
	if !ok {
		return nil, 0, false
	}
	mem, ok := memArg(cur.Inst.Args[1])
	if !ok || isReservedBase(memBase(mem)) {
		return nil, 0, false
	}
	return ilinstr.NewStoreField(cur.VA, cur.End(), src, memBase(mem), uint32(memOffset(mem))), 1, true
}

func isReservedBase(r arm64asm.Reg) bool {
	return r == poolReg || r == threadReg || r == arm64asm.SP || r == arm64asm.X29 || r == dispatchReg
}

// recognizeWriteBarrier matches a call to the write-barrier stub:
// bl WriteBarrierStub, resolved via FunctionDB by name.
func recognizeWriteBarrier(l *Lifter) (ilinstr.Instr, int, bool) {
	cur := l.cur()
	if cur.Inst.Op != arm64asm.BL {
		return nil, 0, false
	}
	addr, ok := branchTarget(cur)
	if !ok || l.Functions == nil {
		return nil, 0, false
	}
	fn, found := l.Functions.ByAddress(addr)
	if !found || !strings.Contains(fn.Name, "WriteBarrier") {
		return nil, 0, false
	}
	isArray := strings.Contains(fn.Name, "Array")
	return ilinstr.NewWriteBarrier(cur.VA, cur.End(), arm64asm.X1, arm64asm.X0, isArray), 1, true
}

// recognizeBranchIfSmi matches the Smi-tag test: tbz/tbnz reg, #0, target.
func recognizeBranchIfSmi(l *Lifter) (ilinstr.Instr, int, bool) {
	cur := l.cur()
	op := cur.Inst.Op.String()
	if !strings.HasPrefix(op, "TBZ") && !strings.HasPrefix(op, "TBNZ") {
		return nil, 0, false
	}
	obj, ok := regArg(cur.Inst.Args[0])
	if !ok {
		return nil, 0, false
	}
	if bit, ok := immArg(cur.Inst.Args[1]); !ok || bit != 0 {
		return nil, 0, false
	}
	var target uint64
	for _, a := range cur.Inst.Args {
		if rel, ok := a.(arm64asm.PCRel); ok {
			target = cur.VA + uint64(int64(rel))
		}
	}
	return ilinstr.NewBranchIfSmi(cur.VA, cur.End(), obj, target), 1, true
}

// recognizeLoadClassId matches the class-id header load: ldur wd,
// [xn, #-1] (the class-id field sits one tag byte before the object
// pointer).
func recognizeLoadClassId(l *Lifter) (ilinstr.Instr, int, bool) {
	cur := l.cur()
	if cur.Inst.Op != arm64asm.LDUR && cur.Inst.Op != arm64asm.LDURH {
		return nil, 0, false
	}
	dst, ok := regArg(cur.Inst.Args[0])
	if !ok {
		return nil, 0, false
	}
	mem, ok := memArg(cur.Inst.Args[1])
	if !ok || memOffset(mem) != -1 {
		return nil, 0, false
	}
	obj := memBase(mem)
	l.Regs.Set(dst, value.NewItem(storage.NewRegister(dst), value.NewCid(cid.Illegal, false)))
	return ilinstr.NewLoadClassId(cur.VA, cur.End(), obj, dst), 1, true
}

// recognizeLoadTaggedClassIdMayBeSmi recognizes the composite idiom
// only when all three component instructions (load-smi-sentinel,
// branch-if-smi, load-class-id) appear contiguously; it must run
// before recognizeBranchIfSmi/recognizeLoadClassId in the catalogue
// or they would always consume the sequence piecemeal first.
func recognizeLoadTaggedClassIdMayBeSmi(l *Lifter) (ilinstr.Instr, int, bool) {
	first := l.cur()
	if first.Inst.Op != arm64asm.MOVZ && first.Inst.Op != arm64asm.MOVN {
		return nil, 0, false
	}
	loadNode, n1, ok := recognizeLoadValue(l)
	if !ok || n1 != 1 {
		return nil, 0, false
	}
	loadImm, ok := loadNode.(*ilinstr.LoadValueInstr)
	if !ok {
		return nil, 0, false
	}

	second, ok := l.peek(1)
	if !ok {
		return nil, 0, false
	}
	op := second.Inst.Op.String()
	if !strings.HasPrefix(op, "TBZ") && !strings.HasPrefix(op, "TBNZ") {
		return nil, 0, false
	}
	obj, ok := regArg(second.Inst.Args[0])
	if !ok {
		return nil, 0, false
	}
	if bit, ok := immArg(second.Inst.Args[1]); !ok || bit != 0 {
		return nil, 0, false
	}
	var branchTo uint64
	for _, a := range second.Inst.Args {
		if rel, ok := a.(arm64asm.PCRel); ok {
			branchTo = second.VA + uint64(int64(rel))
		}
	}
	branchIfSmi := ilinstr.NewBranchIfSmi(second.VA, second.End(), obj, branchTo)

	third, ok := l.peek(2)
	if !ok || (third.Inst.Op != arm64asm.LDUR && third.Inst.Op != arm64asm.LDURH) {
		return nil, 0, false
	}
	cidReg, ok := regArg(third.Inst.Args[0])
	if !ok {
		return nil, 0, false
	}
	mem, ok := memArg(third.Inst.Args[1])
	if !ok || memOffset(mem) != -1 || memBase(mem) != obj {
		return nil, 0, false
	}
	loadClassId := ilinstr.NewLoadClassId(third.VA, third.End(), obj, cidReg)

	node := ilinstr.NewLoadTaggedClassIdMayBeSmi(first.VA, third.End(), loadImm, branchIfSmi, loadClassId)
	l.Regs.Set(cidReg, value.NewItem(storage.NewRegister(cidReg), value.NewCid(cid.Illegal, true)))
	return node, 3, true
}

// recognizeBoxInt64 matches a call into the boxed-Mint allocation
// stub, resolved via FunctionDB.
func recognizeBoxInt64(l *Lifter) (ilinstr.Instr, int, bool) {
	cur := l.cur()
	if cur.Inst.Op != arm64asm.BL {
		return nil, 0, false
	}
	addr, ok := branchTarget(cur)
	if !ok || l.Functions == nil {
		return nil, 0, false
	}
	fn, found := l.Functions.ByAddress(addr)
	if !found || (!strings.Contains(fn.Name, "BoxInt64") && !strings.Contains(fn.Name, "AllocateMint")) {
		return nil, 0, false
	}
	return ilinstr.NewBoxInt64(cur.VA, cur.End(), arm64asm.X0, arm64asm.X0), 1, true
}

// recognizeLoadInt32 matches the unboxing read of a Mint's payload.
// The lifter can't distinguish this from a plain LoadField by shape
// alone, so it only fires when the source register's recorded Item
// is already known to hold an Integer (as a LoadValue or pool load
// records it); recognizeBoxInt64 records nothing in the register file.
func recognizeLoadInt32(l *Lifter) (ilinstr.Instr, int, bool) {
	cur := l.cur()
	if cur.Inst.Op != arm64asm.LDUR {
		return nil, 0, false
	}
	dst, ok := regArg(cur.Inst.Args[0])
	if !ok {
		return nil, 0, false
	}
	mem, ok := memArg(cur.Inst.Args[1])
	if !ok {
		return nil, 0, false
	}
	base := memBase(mem)
	src := l.Regs.Get(base)
	if src == nil || src.Value == nil || src.Value.Kind() != value.KindInteger {
		return nil, 0, false
	}
	return ilinstr.NewLoadInt32(cur.VA, cur.End(), dst, base), 1, true
}

// recognizeDecompressPointer matches the compressed-pointer
// decompression idiom: add xd, xd, heap_base.
func recognizeDecompressPointer(l *Lifter) (ilinstr.Instr, int, bool) {
	if !l.CompressedPointers {
		return nil, 0, false
	}
	cur := l.cur()
	if cur.Inst.Op != arm64asm.ADD {
		return nil, 0, false
	}
	dst, ok1 := regArg(cur.Inst.Args[0])
	src, ok2 := regArg(cur.Inst.Args[1])
	heap, ok3 := regArg(cur.Inst.Args[2])
	if !ok1 || !ok2 || !ok3 || dst != src || heap != heapBaseReg {
		return nil, 0, false
	}
	return ilinstr.NewDecompressPointer(cur.VA, cur.End(), storage.NewRegister(dst)), 1, true
}

// recognizeSaveRegister matches a callee-save spill to the stack:
// str xs, [sp, #off], for any source register.
func recognizeSaveRegister(l *Lifter) (ilinstr.Instr, int, bool) {
	cur := l.cur()
	if cur.Inst.Op != arm64asm.STR {
		return nil, 0, false
	}
	src, ok := regArg(cur.Inst.Args[0])
	if !ok {
		return nil, 0, false
	}
	mem, ok := memArg(cur.Inst.Args[1])
	if !ok || memBase(mem) != arm64asm.SP {
		return nil, 0, false
	}
	return ilinstr.NewSaveRegister(cur.VA, cur.End(), src), 1, true
}

// recognizeRestoreRegister matches the inverse reload.
func recognizeRestoreRegister(l *Lifter) (ilinstr.Instr, int, bool) {
	cur := l.cur()
	if cur.Inst.Op != arm64asm.LDR {
		return nil, 0, false
	}
	dst, ok := regArg(cur.Inst.Args[0])
	if !ok {
		return nil, 0, false
	}
	mem, ok := memArg(cur.Inst.Args[1])
	if !ok || memBase(mem) != arm64asm.SP {
		return nil, 0, false
	}
	l.Regs.Clear(dst)
	return ilinstr.NewRestoreRegister(cur.VA, cur.End(), dst), 1, true
}

// recognizeGdtCall matches a dynamic dispatch through the global
// dispatch table: add tmp, GDT_BASE, #off; blr tmp — consumes 2
// instructions the way CheckStackOverflow's 3-instruction shape does,
// via the Lifter's peek lookahead.
func recognizeGdtCall(l *Lifter) (ilinstr.Instr, int, bool) {
	add := l.cur()
	if add.Inst.Op != arm64asm.ADD {
		return nil, 0, false
	}
	tmp, ok1 := regArg(add.Inst.Args[0])
	base, ok2 := regArg(add.Inst.Args[1])
	if !ok1 || !ok2 || base != dispatchReg {
		return nil, 0, false
	}
	offset, ok := immArg(add.Inst.Args[2])
	if !ok {
		return nil, 0, false
	}
	blr, ok := l.peek(1)
	if !ok || blr.Inst.Op != arm64asm.BLR {
		return nil, 0, false
	}
	callReg, ok := regArg(blr.Inst.Args[0])
	if !ok || callReg != tmp {
		return nil, 0, false
	}
	return ilinstr.NewGdtCall(add.VA, blr.End(), offset), 2, true
}

// recognizeCallLeafRuntime matches zero or more MoveReg argument-
// marshalling instructions followed by a call through the thread
// structure: ldr tmp, [THR, #off]; blr tmp.
func recognizeCallLeafRuntime(l *Lifter) (ilinstr.Instr, int, bool) {
	consumed := 0
	var moves []*ilinstr.MoveRegInstr
	for {
		inst, ok := l.peek(consumed)
		if !ok || inst.Inst.Op != arm64asm.MOV {
			break
		}
		dst, ok1 := regArg(inst.Inst.Args[0])
		src, ok2 := regArg(inst.Inst.Args[1])
		if !ok1 || !ok2 {
			break
		}
		moves = append(moves, ilinstr.NewMoveReg(inst.VA, inst.End(), dst, src))
		consumed++
	}
	load, ok := l.peek(consumed)
	if !ok || load.Inst.Op != arm64asm.LDR {
		return nil, 0, false
	}
	mem, ok := memArg(load.Inst.Args[1])
	if !ok || memBase(mem) != threadReg {
		return nil, 0, false
	}
	tmp, ok := regArg(load.Inst.Args[0])
	if !ok {
		return nil, 0, false
	}
	blr, ok := l.peek(consumed + 1)
	if !ok || blr.Inst.Op != arm64asm.BLR {
		return nil, 0, false
	}
	callReg, ok := regArg(blr.Inst.Args[0])
	if !ok || callReg != tmp {
		return nil, 0, false
	}
	start := load.VA
	if len(moves) > 0 {
		start = moves[0].Range().Start
	}
	return ilinstr.NewCallLeafRuntime(start, blr.End(), int(memOffset(mem)), moves, l.Layout), consumed + 2, true
}

// recognizeAllocateObject matches a call into an inline object
// allocation stub, resolved to its class name via FunctionDB.
func recognizeAllocateObject(l *Lifter) (ilinstr.Instr, int, bool) {
	cur := l.cur()
	if cur.Inst.Op != arm64asm.BL {
		return nil, 0, false
	}
	addr, ok := branchTarget(cur)
	if !ok || l.Functions == nil {
		return nil, 0, false
	}
	fn, found := l.Functions.ByAddress(addr)
	if !found || !strings.HasPrefix(fn.Name, "Allocate") {
		return nil, 0, false
	}
	return ilinstr.NewAllocateObject(cur.VA, cur.End(), arm64asm.X0, strings.TrimPrefix(fn.Name, "Allocate")), 1, true
}

// arrayLoadSize reports the element width in bytes for one of the
// array-indexed load opcodes, derived from the opcode's B/H/SW suffix
// or, for the plain LDR form, from the destination register's W vs X
// width. ok is false for any opcode that isn't one of these loads.
func arrayLoadSize(op arm64asm.Op, dst arm64asm.Reg) (uint8, bool) {
	switch op {
	case arm64asm.LDRB, arm64asm.LDRSB:
		return 1, true
	case arm64asm.LDRH, arm64asm.LDRSH:
		return 2, true
	case arm64asm.LDRSW:
		return 4, true
	case arm64asm.LDR:
		if dst >= arm64asm.X0 && dst <= arm64asm.XZR {
			return 8, true
		}
		return 4, true
	default:
		return 0, false
	}
}

// arrayStoreSize is arrayLoadSize's counterpart for the store
// opcodes; there is no signed-store variant to mirror LDRSB/LDRSH/LDRSW.
func arrayStoreSize(op arm64asm.Op, src arm64asm.Reg) (uint8, bool) {
	switch op {
	case arm64asm.STRB:
		return 1, true
	case arm64asm.STRH:
		return 2, true
	case arm64asm.STR:
		if src >= arm64asm.X0 && src <= arm64asm.XZR {
			return 8, true
		}
		return 4, true
	default:
		return 0, false
	}
}

// recognizeLoadArrayElement matches an indexed array read: ldr xd,
// [arr, idx, lsl #n] — distinguished from recognizeLoadField by its
// register-indexed arm64asm.MemExtend operand shape, rather than
// MemImmediate's base+displacement shape. The element width is read
// off the opcode (LDRB/LDRH) or, for plain LDR, off the destination
// register's W/X class, per spec §4.4 item 11.
func recognizeLoadArrayElement(l *Lifter) (ilinstr.Instr, int, bool) {
	cur := l.cur()
	dst, ok := regArg(cur.Inst.Args[0])
	if !ok || len(cur.Inst.Args) < 2 {
		return nil, 0, false
	}
	size, ok := arrayLoadSize(cur.Inst.Op, dst)
	if !ok {
		return nil, 0, false
	}
	ext, ok := cur.Inst.Args[1].(arm64asm.MemExtend)
	if !ok {
		return nil, 0, false
	}
	idxReg, ok := regArg(ext.Index)
	if !ok {
		return nil, 0, false
	}
	op := ilinstr.ArrayOp{Size: size, IsLoad: true, Type: ilinstr.ArrUnknown}
	return ilinstr.NewLoadArrayElement(cur.VA, cur.End(), dst, extBase(ext), storage.NewRegister(idxReg), op), 1, true
}

// recognizeStoreArrayElement matches the inverse store shape.
func recognizeStoreArrayElement(l *Lifter) (ilinstr.Instr, int, bool) {
	cur := l.cur()
	val, ok := regArg(cur.Inst.Args[0])
	if !ok || len(cur.Inst.Args) < 2 {
		return nil, 0, false
	}
	size, ok := arrayStoreSize(cur.Inst.Op, val)
	if !ok {
		return nil, 0, false
	}
	ext, ok := cur.Inst.Args[1].(arm64asm.MemExtend)
	if !ok {
		return nil, 0, false
	}
	idxReg, ok := regArg(ext.Index)
	if !ok {
		return nil, 0, false
	}
	op := ilinstr.ArrayOp{Size: size, IsLoad: false, Type: ilinstr.ArrUnknown}
	return ilinstr.NewStoreArrayElement(cur.VA, cur.End(), val, extBase(ext), storage.NewRegister(idxReg), op), 1, true
}

// recognizeTestType matches a call into a type-test stub, resolved to
// a type name via the Lifter's register file when the pool entry
// feeding it is known.
func recognizeTestType(l *Lifter) (ilinstr.Instr, int, bool) {
	cur := l.cur()
	if cur.Inst.Op != arm64asm.BL {
		return nil, 0, false
	}
	addr, ok := branchTarget(cur)
	if !ok || l.Functions == nil {
		return nil, 0, false
	}
	fn, found := l.Functions.ByAddress(addr)
	if !found || (!strings.Contains(fn.Name, "InstanceOf") && !strings.Contains(fn.Name, "TypeCheck")) {
		return nil, 0, false
	}
	typeName := "dynamic"
	if it := l.Regs.Get(arm64asm.X1); it != nil && it.Value != nil {
		typeName = it.Value.String()
	}
	return ilinstr.NewTestType(cur.VA, cur.End(), arm64asm.X0, typeName), 1, true
}

// recognizeClosureCall matches a call through a closure's own entry
// point field: ldr tmp, [x0, #closure_entry]; blr tmp. x0 isn't a
// reserved base register, so this must run ahead of
// recognizeLoadField in the catalogue or the ldr alone gets consumed
// as a plain field load before the blr lookahead ever runs.
func recognizeClosureCall(l *Lifter) (ilinstr.Instr, int, bool) {
	load := l.cur()
	if load.Inst.Op != arm64asm.LDR {
		return nil, 0, false
	}
	mem, ok := memArg(load.Inst.Args[1])
	if !ok || memBase(mem) != arm64asm.X0 {
		return nil, 0, false
	}
	tmp, ok := regArg(load.Inst.Args[0])
	if !ok {
		return nil, 0, false
	}
	blr, ok := l.peek(1)
	if !ok || blr.Inst.Op != arm64asm.BLR {
		return nil, 0, false
	}
	callReg, ok := regArg(blr.Inst.Args[0])
	if !ok || callReg != tmp {
		return nil, 0, false
	}
	return ilinstr.NewClosureCall(load.VA, blr.End(), 0, 0), 2, true
}

// recognizeCall matches a direct call (bl target), resolving its name
// through FunctionDB when available; an unresolved target renders the
// raw address rather than failing, per the "unresolved direct call"
// edge case.
func recognizeCall(l *Lifter) (ilinstr.Instr, int, bool) {
	cur := l.cur()
	if cur.Inst.Op != arm64asm.BL {
		return nil, 0, false
	}
	addr, ok := branchTarget(cur)
	if !ok {
		return nil, 0, false
	}
	name := ""
	if l.Functions != nil {
		if fn, found := l.Functions.ByAddress(addr); found {
			name = fn.Name
		}
	}
	l.Regs.Set(arm64asm.X0, value.NewItem(storage.NewCall(), value.NewExpression(name)))
	return ilinstr.NewCall(cur.VA, cur.End(), name, addr), 1, true
}

func branchTarget(m MachineInst) (uint64, bool) {
	if len(m.Inst.Args) == 0 {
		return 0, false
	}
	rel, ok := m.Inst.Args[0].(arm64asm.PCRel)
	if !ok {
		return 0, false
	}
	return m.VA + uint64(int64(rel)), true
}
