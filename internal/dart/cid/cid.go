// Package cid defines the class-id space the lifter and its runtime
// databases use to identify Dart types: the non-negative ids mirror
// the VM's own predefined class-id table, while the negative ids are
// the lifter's own bookkeeping kinds that never appear in a real
// snapshot.
package cid

// TypeID identifies a Dart class, either by the VM's own predefined
// class id (non-negative) or by one of the lifter's synthetic kinds
// (negative).
type TypeID int32

// Predefined class ids, mirroring the VM's own cid table far enough to
// name the cases the lifter's recognizers care about.
const Illegal TypeID = -1

const (
	Null TypeID = iota
	Dynamic
	Void
	Never
	Bool
	Smi
	Mint
	Int64
	Double
	String
	OneByteString
	TwoByteString
	Array
	ImmutableArray
	GrowableObjectArray
	LinkedHashMap
	Instance
	Class
	PatchClass
	Function
	ClosureData
	Closure
	Field
	Script
	Library
	Namespace
	Code
	Instructions
	ObjectPool
	PcDescriptors
	ExceptionHandlers
	Context
	ContextScope
	UnlinkedCall
	ICData
	MegamorphicCache
	SubtypeTestCache
	Error
	ApiError
	LanguageError
	UnhandledException
	UnwindError
	RecordType
	Type
	TypeRef
	TypeParameter
	TypeArguments
	Sentinel
)

// Synthetic kinds used only by the lifted IL, never by a real Dart
// snapshot; kept in the negative id space so no predefined id ever
// collides with them.
const (
	Expression       TypeID = -100 - iota // an unresolved value built from an arbitrary expression
	TaggedCid                             // the result of a LoadClassIdInstr before it is interpreted
	NativeInt                             // an untagged machine integer, not a Dart Smi/Mint
	NativeDouble                          // an untagged machine double
	Parameter                             // an incoming function parameter before a type is known
	ArgsDesc                              // an ArgumentsDescriptor pool object
	CurrNumNameParam                      // the "current number of named parameters" pool constant
)

// kSmiTagSize is the number of tag bits a Dart Smi carries in its low
// bits on a 64-bit target.
const kSmiTagSize = 1

// IsSmi reports whether raw (the tagged machine word) decodes to a
// Smi-tagged value, i.e. its lowest tag bit is clear.
func IsSmi(raw int64) bool {
	return raw&((1<<kSmiTagSize)-1) == 0
}

// UntagSmi removes the Smi tag from raw, returning the represented
// integer value.
func UntagSmi(raw int64) int64 {
	return raw >> kSmiTagSize
}
