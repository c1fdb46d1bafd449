// Package ilinstr implements the lifted IL: a closed family of node
// types, one per recognized machine-code idiom, each immutable once
// constructed and owning any sub-nodes it was built from. Every node
// carries the exact, byte-exclusive machine-code address range it was
// recognized from, and renders through String() in the same format
// the idiom's source classifier used.
package ilinstr

import (
	"fmt"
	"strings"

	"golang.org/x/arch/arm64/arm64asm"

	"github.com/Taarique/blutter/internal/dart/runtime"
	"github.com/Taarique/blutter/internal/dart/storage"
	"github.com/Taarique/blutter/internal/dart/value"
)

// Kind discriminates the closed set of Instr variants the lifter can
// emit.
type Kind int

const (
	Unknown Kind = iota
	EnterFrame
	LeaveFrame
	AllocateStack
	CheckStackOverflow
	CallLeafRuntime
	LoadValue
	ClosureCall
	MoveReg
	DecompressPointer
	SaveRegister
	RestoreRegister
	SetupParameters
	InitAsync
	GdtCall
	Call
	Return
	BranchIfSmi
	LoadClassId
	LoadTaggedClassIdMayBeSmi
	BoxInt64
	LoadInt32
	AllocateObject
	LoadArrayElement
	StoreArrayElement
	LoadField
	StoreField
	InitLateStaticField
	LoadStaticField
	StoreStaticField
	WriteBarrier
	TestType
	// StoreObjectPool and StoreStaticFieldStore are split out of
	// LoadValue/LoadStaticField respectively; see DESIGN.md's Open
	// Questions entry.
	StoreObjectPool
	StoreStaticFieldStore
)

var kindNames = [...]string{
	"Unknown", "EnterFrame", "LeaveFrame", "AllocateStack", "CheckStackOverflow",
	"CallLeafRuntime", "LoadValue", "ClosureCall", "MoveReg", "DecompressPointer",
	"SaveRegister", "RestoreRegister", "SetupParameters", "InitAsync", "GdtCall",
	"Call", "Return", "BranchIfSmi", "LoadClassId", "LoadTaggedClassIdMayBeSmi",
	"BoxInt64", "LoadInt32", "AllocateObject", "LoadArrayElement", "StoreArrayElement",
	"LoadField", "StoreField", "InitLateStaticField", "LoadStaticField", "StoreStaticField",
	"WriteBarrier", "TestType", "StoreObjectPool", "StoreStaticFieldStore",
}

func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(kindNames) {
		return "Unknown"
	}
	return kindNames[k]
}

// Range is a byte-exclusive machine-code address range [Start, End).
type Range struct {
	Start uint64
	End   uint64
}

func newRange(start, end uint64) Range {
	if end < start {
		panic(fmt.Sprintf("ilinstr: invalid range [%#x, %#x)", start, end))
	}
	return Range{Start: start, End: end}
}

// Instr is implemented by every IL node.
type Instr interface {
	Kind() Kind
	Range() Range
	String() string
}

func regName(r arm64asm.Reg) string { return strings.ToLower(r.String()) }

// base is embedded by every concrete Instr to carry its kind and
// address range.
type base struct {
	kind Kind
	r    Range
}

func (b base) Kind() Kind   { return b.kind }
func (b base) Range() Range { return b.r }

// UnknownInstr stands for a single machine instruction no recognizer
// matched.
type UnknownInstr struct {
	base
	Text string // the raw disassembly text, for diagnostics only
}

func NewUnknown(start, end uint64, text string) *UnknownInstr {
	return &UnknownInstr{base: base{Unknown, newRange(start, end)}, Text: text}
}
func (i *UnknownInstr) String() string { return "unknown" }

// EnterFrameInstr recognizes the standard 2-instruction function
// prolog (stp fp, lr, [sp, #-N]!; mov fp, sp).
type EnterFrameInstr struct{ base }

func NewEnterFrame(start, end uint64) *EnterFrameInstr {
	return &EnterFrameInstr{base{EnterFrame, newRange(start, end)}}
}
func (i *EnterFrameInstr) String() string { return "EnterFrame" }

// LeaveFrameInstr recognizes the standard function epilog.
type LeaveFrameInstr struct{ base }

func NewLeaveFrame(start, end uint64) *LeaveFrameInstr {
	return &LeaveFrameInstr{base{LeaveFrame, newRange(start, end)}}
}
func (i *LeaveFrameInstr) String() string { return "LeaveFrame" }

// AllocateStackInstr recognizes the stack-frame allocation (sub sp, sp, #n).
type AllocateStackInstr struct {
	base
	AllocSize uint32
}

func NewAllocateStack(start, end uint64, size uint32) *AllocateStackInstr {
	return &AllocateStackInstr{base{AllocateStack, newRange(start, end)}, size}
}
func (i *AllocateStackInstr) String() string {
	return fmt.Sprintf("AllocStack(%#x)", i.AllocSize)
}

// CheckStackOverflowInstr recognizes the 3-instruction stack-overflow
// guard (ldr tmp, [THR, stack_limit]; cmp sp, tmp; b.ls overflow).
type CheckStackOverflowInstr struct {
	base
	OverflowBranch uint64
}

func NewCheckStackOverflow(start, end uint64, overflowBranch uint64) *CheckStackOverflowInstr {
	return &CheckStackOverflowInstr{base{CheckStackOverflow, newRange(start, end)}, overflowBranch}
}
func (i *CheckStackOverflowInstr) String() string { return "CheckStackOverflow" }

// MoveRegInstr recognizes a plain register-to-register move.
type MoveRegInstr struct {
	base
	DstReg, SrcReg arm64asm.Reg
}

func NewMoveReg(start, end uint64, dst, src arm64asm.Reg) *MoveRegInstr {
	return &MoveRegInstr{base{MoveReg, newRange(start, end)}, dst, src}
}
func (i *MoveRegInstr) String() string {
	return fmt.Sprintf("%s = %s", regName(i.DstReg), regName(i.SrcReg))
}

// ThreadInfo resolves a CallLeafRuntimeInstr's thread-offset into a
// human name and calling-convention description; satisfied directly
// by runtime.Layout.
type ThreadInfo interface {
	ThreadOffsetName(offset int) (string, bool)
	ThreadLeafFunction(offset int) (*runtime.LeafFunction, bool)
}

// CallLeafRuntimeInstr recognizes a call through the thread structure
// to a C++ leaf runtime entry, along with the MoveReg idioms used to
// marshal its arguments.
type CallLeafRuntimeInstr struct {
	base
	ThrOffset int
	MoveILs   []*MoveRegInstr
	layout    ThreadInfo
}

func NewCallLeafRuntime(start, end uint64, thrOffset int, moveILs []*MoveRegInstr, layout ThreadInfo) *CallLeafRuntimeInstr {
	return &CallLeafRuntimeInstr{base{CallLeafRuntime, newRange(start, end)}, thrOffset, moveILs, layout}
}
func (i *CallLeafRuntimeInstr) String() string {
	name, ok := "unknown", false
	if i.layout != nil {
		name, ok = i.layout.ThreadOffsetName(i.ThrOffset)
	}
	if !ok {
		return fmt.Sprintf("CallRuntime_unknown_%#x()", i.ThrOffset)
	}
	params, ret := "", ""
	if i.layout != nil {
		if lf, ok := i.layout.ThreadLeafFunction(i.ThrOffset); ok {
			params, ret = lf.Params, lf.ReturnType
		}
	}
	return fmt.Sprintf("CallRuntime_%s(%s) -> %s", name, params, ret)
}

// LoadValueInstr recognizes a load of a known constant into a
// register, from the object pool, an immediate, or any other
// statically-resolvable location.
type LoadValueInstr struct {
	base
	DstReg arm64asm.Reg
	Val    *value.Item
}

func NewLoadValue(start, end uint64, dst arm64asm.Reg, val *value.Item) *LoadValueInstr {
	return &LoadValueInstr{base{LoadValue, newRange(start, end)}, dst, val}
}
func (i *LoadValueInstr) String() string {
	return fmt.Sprintf("%s = %s", regName(i.DstReg), i.Val.String())
}

// StoreObjectPoolInstr recognizes a store into an object-pool slot.
// Kept as its own Kind rather than reusing LoadValue's, see
// DESIGN.md's Open Questions entry.
type StoreObjectPoolInstr struct {
	base
	SrcReg arm64asm.Reg
	Offset int64
}

func NewStoreObjectPool(start, end uint64, src arm64asm.Reg, offset int64) *StoreObjectPoolInstr {
	return &StoreObjectPoolInstr{base{StoreObjectPool, newRange(start, end)}, src, offset}
}
func (i *StoreObjectPoolInstr) String() string {
	return fmt.Sprintf("[PP+%#x] = %s", i.Offset, regName(i.SrcReg))
}

// ClosureCallInstr recognizes a call through a closure's entry point.
type ClosureCallInstr struct {
	base
	NumArg, NumTypeArg int32
}

func NewClosureCall(start, end uint64, numArg, numTypeArg int32) *ClosureCallInstr {
	return &ClosureCallInstr{base{ClosureCall, newRange(start, end)}, numArg, numTypeArg}
}
func (i *ClosureCallInstr) String() string { return "ClosureCall" }

// DecompressPointerInstr recognizes the compressed-pointer
// decompression idiom (add dst, dst, heap_base).
type DecompressPointerInstr struct {
	base
	Dst storage.Storage
}

func NewDecompressPointer(start, end uint64, dst storage.Storage) *DecompressPointerInstr {
	return &DecompressPointerInstr{base{DecompressPointer, newRange(start, end)}, dst}
}
func (i *DecompressPointerInstr) String() string { return "DecompressPointer " + i.Dst.Name() }

// SaveRegisterInstr recognizes a register spill to the stack.
type SaveRegisterInstr struct {
	base
	SrcReg arm64asm.Reg
}

func NewSaveRegister(start, end uint64, src arm64asm.Reg) *SaveRegisterInstr {
	return &SaveRegisterInstr{base{SaveRegister, newRange(start, end)}, src}
}
func (i *SaveRegisterInstr) String() string { return "SaveReg " + regName(i.SrcReg) }

// RestoreRegisterInstr recognizes a register reload from the stack.
type RestoreRegisterInstr struct {
	base
	DstReg arm64asm.Reg
}

func NewRestoreRegister(start, end uint64, dst arm64asm.Reg) *RestoreRegisterInstr {
	return &RestoreRegisterInstr{base{RestoreRegister, newRange(start, end)}, dst}
}
func (i *RestoreRegisterInstr) String() string { return "RestoreReg " + regName(i.DstReg) }

// Params describes a function's calling-convention parameter layout,
// as recognized from its SetupParameters idiom.
type Params struct {
	Fixed int
	Named []string
}

func (p Params) String() string {
	parts := make([]string, 0, p.Fixed+len(p.Named))
	for i := 0; i < p.Fixed; i++ {
		parts = append(parts, fmt.Sprintf("arg%d", i))
	}
	parts = append(parts, p.Named...)
	return strings.Join(parts, ", ")
}

// SetupParametersInstr recognizes the prolog idiom that checks and
// stores incoming arguments against a function's declared signature.
type SetupParametersInstr struct {
	base
	Params Params
}

func NewSetupParameters(start, end uint64, params Params) *SetupParametersInstr {
	return &SetupParametersInstr{base{SetupParameters, newRange(start, end)}, params}
}
func (i *SetupParametersInstr) String() string {
	return fmt.Sprintf("SetupParameters(%s)", i.Params.String())
}

// InitAsyncInstr recognizes an async function's suspend-state
// initialization idiom.
type InitAsyncInstr struct {
	base
	ReturnType string
}

func NewInitAsync(start, end uint64, returnType string) *InitAsyncInstr {
	return &InitAsyncInstr{base{InitAsync, newRange(start, end)}, returnType}
}
func (i *InitAsyncInstr) String() string { return "InitAsync() -> " + i.ReturnType }

// GdtCallInstr recognizes a dynamic dispatch through the global
// dispatch table, keyed by the receiver's class id.
type GdtCallInstr struct {
	base
	Offset int64
}

func NewGdtCall(start, end uint64, offset int64) *GdtCallInstr {
	return &GdtCallInstr{base{GdtCall, newRange(start, end)}, offset}
}
func (i *GdtCallInstr) String() string {
	return fmt.Sprintf("r0 = GDT[cid_x0 + %#x]()", i.Offset)
}

// CallInstr recognizes a direct call, resolved to a symbolic name
// when fnName is non-empty, or left as a raw address otherwise (the
// "unresolved direct call" edge case).
type CallInstr struct {
	base
	FnName string
	Addr   uint64
}

func NewCall(start, end uint64, fnName string, addr uint64) *CallInstr {
	return &CallInstr{base{Call, newRange(start, end)}, fnName, addr}
}
func (i *CallInstr) String() string {
	if i.FnName != "" {
		return fmt.Sprintf("r0 = %s()", i.FnName)
	}
	return fmt.Sprintf("r0 = call %#x", i.Addr)
}

// ReturnInstr recognizes a function return.
type ReturnInstr struct{ base }

func NewReturn(start, end uint64) *ReturnInstr {
	return &ReturnInstr{base{Return, newRange(start, end)}}
}
func (i *ReturnInstr) String() string { return "ret" }

// BranchIfSmiInstr recognizes the Smi-tag test used to short-circuit
// class-id lookups for small integers.
type BranchIfSmiInstr struct {
	base
	ObjReg     arm64asm.Reg
	BranchAddr uint64
}

func NewBranchIfSmi(start, end uint64, obj arm64asm.Reg, branchAddr uint64) *BranchIfSmiInstr {
	return &BranchIfSmiInstr{base{BranchIfSmi, newRange(start, end)}, obj, branchAddr}
}
func (i *BranchIfSmiInstr) String() string {
	return fmt.Sprintf("branchIfSmi(%s, %#x)", regName(i.ObjReg), i.BranchAddr)
}

// LoadClassIdInstr recognizes a load of an object's class id from its
// header word.
type LoadClassIdInstr struct {
	base
	ObjReg, CidReg arm64asm.Reg
}

func NewLoadClassId(start, end uint64, obj, cidReg arm64asm.Reg) *LoadClassIdInstr {
	return &LoadClassIdInstr{base{LoadClassId, newRange(start, end)}, obj, cidReg}
}
func (i *LoadClassIdInstr) String() string {
	return fmt.Sprintf("%s = LoadClassIdInstr(%s)", regName(i.CidReg), regName(i.ObjReg))
}

// LoadTaggedClassIdMayBeSmiInstr is a composite node recognized only
// when its three component idioms (load-smi-sentinel, branch-if-smi,
// load-class-id) appear contiguously; it owns all three sub-nodes
// uniquely and exposes no setter for them.
type LoadTaggedClassIdMayBeSmiInstr struct {
	base
	TaggedCidReg, ObjReg arm64asm.Reg
	loadImm              *LoadValueInstr
	branchIfSmi          *BranchIfSmiInstr
	loadClassId          *LoadClassIdInstr
}

func NewLoadTaggedClassIdMayBeSmi(start, end uint64, loadImm *LoadValueInstr, branchIfSmi *BranchIfSmiInstr, loadClassId *LoadClassIdInstr) *LoadTaggedClassIdMayBeSmiInstr {
	return &LoadTaggedClassIdMayBeSmiInstr{
		base:         base{LoadTaggedClassIdMayBeSmi, newRange(start, end)},
		TaggedCidReg: loadClassId.CidReg,
		ObjReg:       loadClassId.ObjReg,
		loadImm:      loadImm,
		branchIfSmi:  branchIfSmi,
		loadClassId:  loadClassId,
	}
}

// LoadImm returns the owned load-immediate sub-node.
func (i *LoadTaggedClassIdMayBeSmiInstr) LoadImm() *LoadValueInstr { return i.loadImm }

// BranchIfSmi returns the owned branch-if-smi sub-node.
func (i *LoadTaggedClassIdMayBeSmiInstr) BranchIfSmi() *BranchIfSmiInstr { return i.branchIfSmi }

// LoadClassId returns the owned load-class-id sub-node.
func (i *LoadTaggedClassIdMayBeSmiInstr) LoadClassId() *LoadClassIdInstr { return i.loadClassId }

func (i *LoadTaggedClassIdMayBeSmiInstr) String() string {
	return fmt.Sprintf("%s = LoadTaggedClassIdMayBeSmiInstr(%s)", regName(i.TaggedCidReg), regName(i.ObjReg))
}

// BoxInt64Instr recognizes the idiom that allocates a boxed Mint for
// a native 64-bit integer that didn't fit in a Smi.
type BoxInt64Instr struct {
	base
	ObjReg, SrcReg arm64asm.Reg
}

func NewBoxInt64(start, end uint64, obj, src arm64asm.Reg) *BoxInt64Instr {
	return &BoxInt64Instr{base{BoxInt64, newRange(start, end)}, obj, src}
}
func (i *BoxInt64Instr) String() string {
	return fmt.Sprintf("%s = BoxInt64Instr(%s)", regName(i.ObjReg), regName(i.SrcReg))
}

// LoadInt32Instr recognizes an unboxing load of a Mint's payload.
type LoadInt32Instr struct {
	base
	DstReg, SrcObjReg arm64asm.Reg
}

func NewLoadInt32(start, end uint64, dst, srcObj arm64asm.Reg) *LoadInt32Instr {
	return &LoadInt32Instr{base{LoadInt32, newRange(start, end)}, dst, srcObj}
}
func (i *LoadInt32Instr) String() string {
	return fmt.Sprintf("%s = LoadInt32Instr(%s)", regName(i.DstReg), regName(i.SrcObjReg))
}

// AllocateObjectInstr recognizes an inline fast-path object
// allocation.
type AllocateObjectInstr struct {
	base
	DstReg    arm64asm.Reg
	ClassName string
}

func NewAllocateObject(start, end uint64, dst arm64asm.Reg, className string) *AllocateObjectInstr {
	return &AllocateObjectInstr{base{AllocateObject, newRange(start, end)}, dst, className}
}
func (i *AllocateObjectInstr) String() string {
	return fmt.Sprintf("%s = inline_Allocate%s()", regName(i.DstReg), i.ClassName)
}

// ArrayType classifies the element kind of an array access, mirroring
// the four statically distinguishable shapes plus the unresolved
// case.
type ArrayType int

const (
	ArrList ArrayType = iota
	ArrTypedUnknown
	ArrTypedSigned
	ArrTypedUnsigned
	ArrUnknown // might be Object, List, or a typed-data view
)

// ArrayOp describes an array element access: its element size and
// statically-known (or unknown) element kind.
type ArrayOp struct {
	Size   uint8
	IsLoad bool
	Type   ArrayType
}

// IsArrayOp reports whether the ArrayOp was actually populated.
func (a ArrayOp) IsArrayOp() bool { return a.Size != 0 }

// SizeLog2 returns log2(Size), or 255 if Size isn't a recognized
// power of two.
func (a ArrayOp) SizeLog2() uint8 {
	switch a.Size {
	case 8:
		return 3
	case 4:
		return 2
	case 2:
		return 1
	case 1:
		return 0
	default:
		return 255
	}
}

func (a ArrayOp) String() string {
	switch a.Type {
	case ArrList:
		return fmt.Sprintf("List_%d", a.Size)
	case ArrTypedUnknown:
		return fmt.Sprintf("TypeUnknown_%d", a.Size)
	case ArrTypedSigned:
		return fmt.Sprintf("TypedSigned_%d", a.Size)
	case ArrTypedUnsigned:
		return fmt.Sprintf("TypedUnsigned_%d", a.Size)
	case ArrUnknown:
		return fmt.Sprintf("Unknown_%d", a.Size)
	default:
		return ""
	}
}

// LoadArrayElementInstr recognizes an indexed array read.
type LoadArrayElementInstr struct {
	base
	DstReg, ArrReg arm64asm.Reg
	Idx            storage.Storage
	Op             ArrayOp
}

func NewLoadArrayElement(start, end uint64, dst, arr arm64asm.Reg, idx storage.Storage, op ArrayOp) *LoadArrayElementInstr {
	return &LoadArrayElementInstr{base{LoadArrayElement, newRange(start, end)}, dst, arr, idx, op}
}
func (i *LoadArrayElementInstr) String() string {
	return fmt.Sprintf("ArrayLoad: %s = %s[%s]  ; %s", regName(i.DstReg), regName(i.ArrReg), i.Idx.Name(), i.Op.String())
}

// StoreArrayElementInstr recognizes an indexed array write.
type StoreArrayElementInstr struct {
	base
	ValReg, ArrReg arm64asm.Reg
	Idx            storage.Storage
	Op             ArrayOp
}

func NewStoreArrayElement(start, end uint64, val, arr arm64asm.Reg, idx storage.Storage, op ArrayOp) *StoreArrayElementInstr {
	return &StoreArrayElementInstr{base{StoreArrayElement, newRange(start, end)}, val, arr, idx, op}
}
func (i *StoreArrayElementInstr) String() string {
	return fmt.Sprintf("ArrayStore: %s[%s] = %s  ; %s", regName(i.ArrReg), i.Idx.Name(), regName(i.ValReg), i.Op.String())
}

// LoadFieldInstr recognizes an instance-field read by header offset.
type LoadFieldInstr struct {
	base
	DstReg, ObjReg arm64asm.Reg
	Offset         uint32
}

func NewLoadField(start, end uint64, dst, obj arm64asm.Reg, offset uint32) *LoadFieldInstr {
	return &LoadFieldInstr{base{LoadField, newRange(start, end)}, dst, obj, offset}
}
func (i *LoadFieldInstr) String() string {
	return fmt.Sprintf("LoadField: %s = %s->field_%x", regName(i.DstReg), regName(i.ObjReg), i.Offset)
}

// StoreFieldInstr recognizes an instance-field write by header offset.
type StoreFieldInstr struct {
	base
	ValReg, ObjReg arm64asm.Reg
	Offset         uint32
}

func NewStoreField(start, end uint64, val, obj arm64asm.Reg, offset uint32) *StoreFieldInstr {
	return &StoreFieldInstr{base{StoreField, newRange(start, end)}, val, obj, offset}
}
func (i *StoreFieldInstr) String() string {
	return fmt.Sprintf("StoreField: %s->field_%x = %s", regName(i.ObjReg), i.Offset, regName(i.ValReg))
}

// InitLateStaticFieldInstr recognizes the lazy-initialization check
// guarding a late static field's first read.
type InitLateStaticFieldInstr struct {
	base
	Dst           storage.Storage
	FieldOffset   uint32
	FieldFullName string
}

func NewInitLateStaticField(start, end uint64, dst storage.Storage, fieldOffset uint32, fieldFullName string) *InitLateStaticFieldInstr {
	return &InitLateStaticFieldInstr{base{InitLateStaticField, newRange(start, end)}, dst, fieldOffset, fieldFullName}
}
func (i *InitLateStaticFieldInstr) String() string {
	return fmt.Sprintf("%s = InitLateStaticField(%#x) // %s", i.Dst.Name(), i.FieldOffset, i.FieldFullName)
}

// LoadStaticFieldInstr recognizes a static-field read by offset.
type LoadStaticFieldInstr struct {
	base
	DstReg      arm64asm.Reg
	FieldOffset uint32
}

func NewLoadStaticField(start, end uint64, dst arm64asm.Reg, fieldOffset uint32) *LoadStaticFieldInstr {
	return &LoadStaticFieldInstr{base{LoadStaticField, newRange(start, end)}, dst, fieldOffset}
}
func (i *LoadStaticFieldInstr) String() string {
	return fmt.Sprintf("%s = LoadStaticField(%#x)", regName(i.DstReg), i.FieldOffset)
}

// StoreStaticFieldInstr recognizes a static-field write by offset.
// Kept as its own Kind rather than reusing LoadStaticField's, see
// DESIGN.md's Open Questions entry.
type StoreStaticFieldInstr struct {
	base
	ValReg      arm64asm.Reg
	FieldOffset uint32
}

func NewStoreStaticField(start, end uint64, val arm64asm.Reg, fieldOffset uint32) *StoreStaticFieldInstr {
	return &StoreStaticFieldInstr{base{StoreStaticFieldStore, newRange(start, end)}, val, fieldOffset}
}
func (i *StoreStaticFieldInstr) String() string {
	return fmt.Sprintf("StoreStaticField(%#x, %s)", i.FieldOffset, regName(i.ValReg))
}

// WriteBarrierInstr recognizes a generational/incremental write
// barrier emitted after a pointer store.
type WriteBarrierInstr struct {
	base
	ObjReg, ValReg arm64asm.Reg
	IsArray        bool
}

func NewWriteBarrier(start, end uint64, obj, val arm64asm.Reg, isArray bool) *WriteBarrierInstr {
	return &WriteBarrierInstr{base{WriteBarrier, newRange(start, end)}, obj, val, isArray}
}
func (i *WriteBarrierInstr) String() string {
	prefix := ""
	if i.IsArray {
		prefix = "Array"
	}
	return fmt.Sprintf("%sWriteBarrierInstr(obj = %s, val = %s)", prefix, regName(i.ObjReg), regName(i.ValReg))
}

// TestTypeInstr recognizes a runtime `as`/`is` type-test idiom.
type TestTypeInstr struct {
	base
	SrcReg   arm64asm.Reg
	TypeName string
}

func NewTestType(start, end uint64, src arm64asm.Reg, typeName string) *TestTypeInstr {
	return &TestTypeInstr{base{TestType, newRange(start, end)}, src, typeName}
}
func (i *TestTypeInstr) String() string {
	return fmt.Sprintf("%s as %s", regName(i.SrcReg), i.TypeName)
}
