// Package value implements the lifted value lattice: a closed set of
// variants describing everything the lifter can know about a Dart
// value at a given program point, from a fully-resolved constant down
// to an opaque expression the lifter gave up trying to interpret.
package value

import (
	"fmt"

	"github.com/Taarique/blutter/internal/dart/cid"
	"github.com/Taarique/blutter/internal/strutil"
)

// Kind discriminates the closed set of Value variants.
type Kind int

const (
	KindNull Kind = iota
	KindBoolean
	KindInteger
	KindDouble
	KindString
	KindFunctionCode
	KindField
	KindExpression
	KindArray
	KindGrowableArray
	KindUnlinkedCall
	KindInstance
	KindType
	KindRecordType
	KindTypeParameter
	KindFunctionType
	KindTypeArguments
	KindSentinel
	KindSubtypeTestCache
	KindCid
	KindParam
)

// ClassRef is a non-owning reference to a class, carrying enough
// identity for a Value to report a refined type id.
type ClassRef struct {
	ID   cid.TypeID
	Name string
}

// Value is the closed lattice described by the IL's value model: a
// tagged union over Kind, constructed only through the New* functions
// below so no caller can produce a Value with an inconsistent
// Kind/payload pairing.
type Value struct {
	kind     Kind
	rawType  cid.TypeID
	hasValue bool
	payload  any
}

// RawTypeID returns the class id the Value was constructed with,
// independent of any later refinement.
func (v *Value) RawTypeID() cid.TypeID { return v.rawType }

// Kind returns the Value's variant.
func (v *Value) Kind() Kind { return v.kind }

// HasValue reports whether the Value carries a concrete payload, as
// opposed to standing in for a value whose contents are unknown
// (e.g. an Expression built from an unresolved sub-computation).
func (v *Value) HasValue() bool { return v.hasValue }

// TypeID returns the Value's reported type id: for Instance and
// Expression variants this may differ from RawTypeID once the value
// has been refined by a later recognizer.
func (v *Value) TypeID() cid.TypeID {
	switch v.kind {
	case KindInstance:
		return v.payload.(*instancePayload).class.ID
	case KindExpression:
		return v.payload.(*expressionPayload).refined
	default:
		return v.rawType
	}
}

func newValue(k Kind, raw cid.TypeID, hasValue bool, payload any) *Value {
	return &Value{kind: k, rawType: raw, hasValue: hasValue, payload: payload}
}

// NewNull builds the Null value.
func NewNull() *Value { return newValue(KindNull, cid.Null, true, nil) }

// NewSentinel builds the sentinel "uninitialized" value used for
// late-initialized fields and locals.
func NewSentinel() *Value { return newValue(KindSentinel, cid.Sentinel, true, nil) }

// NewBoolean builds a Boolean value.
func NewBoolean(b bool) *Value { return newValue(KindBoolean, cid.Bool, true, b) }

func (v *Value) boolean() bool { return v.payload.(bool) }

// integerPayload carries an Integer value's tagged or untagged
// contents and its refined integer subtype (Smi/Mint/native).
type integerPayload struct {
	raw     int64
	intType cid.TypeID
}

// NewInteger builds an Integer value from its raw (tag-shifted)
// machine-word contents. intType should be cid.Smi, cid.Mint or
// cid.NativeInt.
func NewInteger(raw int64, intType cid.TypeID) *Value {
	return newValue(KindInteger, Integer(), true, &integerPayload{raw: raw, intType: intType})
}

// Integer is a pseudo-constant standing in for the predefined
// Integer-ish class id an Integer value is constructed against before
// SetSmiIfInt/SetIntType narrow it; defined as a function (not a
// package-level const) so cid stays the sole owner of class-id values.
func Integer() cid.TypeID { return cid.Mint }

// ValueInt returns the represented integer, removing the Smi tag when
// the payload is Smi-tagged.
func (v *Value) ValueInt() int64 {
	p := v.payload.(*integerPayload)
	if p.intType == cid.Smi {
		return cid.UntagSmi(p.raw)
	}
	return p.raw
}

// IntTypeID returns the Integer value's refined subtype.
func (v *Value) IntTypeID() cid.TypeID { return v.payload.(*integerPayload).intType }

// SetIntType narrows an Integer value's subtype in place.
func (v *Value) SetIntType(t cid.TypeID) { v.payload.(*integerPayload).intType = t }

// SetSmiIfInt narrows an Integer value to Smi if its raw contents are
// Smi-tagged, a no-op otherwise.
func (v *Value) SetSmiIfInt() {
	p := v.payload.(*integerPayload)
	if cid.IsSmi(p.raw) {
		p.intType = cid.Smi
	}
}

// NewDouble builds a Double value.
func NewDouble(f float64) *Value { return newValue(KindDouble, cid.Double, true, f) }

func (v *Value) double() float64 { return v.payload.(float64) }

// NewString builds a String value from its already-decoded contents.
func NewString(s string) *Value { return newValue(KindString, cid.String, true, s) }

func (v *Value) str() string { return v.payload.(string) }

// NewFunctionCode builds a value naming a function's entry, used for
// closure allocation and static-call targets resolved to a symbol.
func NewFunctionCode(name string, entry uint64) *Value {
	return newValue(KindFunctionCode, cid.Function, true, functionCodePayload{name: name, entry: entry})
}

type functionCodePayload struct {
	name  string
	entry uint64
}

// NewField builds a value naming a resolved Dart field.
func NewField(owner, name string) *Value {
	return newValue(KindField, cid.Field, true, fieldPayload{owner: owner, name: name})
}

type fieldPayload struct {
	owner string
	name  string
}

// expressionPayload carries an Expression's source text and its
// refined class id, initially cid.Illegal until a later recognizer
// narrows it (e.g. after a LoadClassId).
type expressionPayload struct {
	text    string
	refined cid.TypeID
}

// NewExpression builds a Value standing in for an arbitrary,
// unresolved computation rendered as text.
func NewExpression(text string) *Value {
	return newValue(KindExpression, cid.Expression, false, &expressionPayload{text: text, refined: cid.Illegal})
}

// RefineCid narrows an Expression value's reported type id.
func (v *Value) RefineCid(id cid.TypeID) { v.payload.(*expressionPayload).refined = id }

// NewArray builds a fixed-length Array value of the given element
// cid, with length elements.
func NewArray(elemCid cid.TypeID, length int) *Value {
	return newValue(KindArray, cid.Array, true, arrayPayload{elemCid: elemCid, length: length})
}

// NewGrowableArray builds a GrowableArray value.
func NewGrowableArray(elemCid cid.TypeID) *Value {
	return newValue(KindGrowableArray, cid.GrowableObjectArray, true, arrayPayload{elemCid: elemCid, length: -1})
}

type arrayPayload struct {
	elemCid cid.TypeID
	length  int
}

// NewUnlinkedCall builds a value naming an unresolved (not yet
// call-site-specialized) call target.
func NewUnlinkedCall(selector string) *Value {
	return newValue(KindUnlinkedCall, cid.UnlinkedCall, true, selector)
}

type instancePayload struct {
	class *ClassRef
}

// NewInstance builds an Instance value of the given class.
func NewInstance(class *ClassRef) *Value {
	return newValue(KindInstance, class.ID, true, &instancePayload{class: class})
}

// Class returns the Instance value's class reference.
func (v *Value) Class() *ClassRef { return v.payload.(*instancePayload).class }

// NewType builds a value naming a resolved Dart Type object.
func NewType(name string) *Value { return newValue(KindType, cid.Type, true, name) }

// NewRecordType builds a value naming a record's shape.
func NewRecordType(shape string) *Value { return newValue(KindRecordType, cid.RecordType, true, shape) }

// NewTypeParameter builds a value naming a type parameter.
func NewTypeParameter(name string) *Value {
	return newValue(KindTypeParameter, cid.TypeParameter, true, name)
}

// NewFunctionType builds a value naming a function type.
func NewFunctionType(signature string) *Value {
	return newValue(KindFunctionType, cid.Function, true, signature)
}

// NewTypeArguments builds a value naming a resolved type-arguments
// vector.
func NewTypeArguments(names []string) *Value {
	return newValue(KindTypeArguments, cid.TypeArguments, true, names)
}

// NewSubtypeTestCache builds a value naming a subtype-test cache
// object, used by InstanceOf/AsInstanceOf recognizers.
func NewSubtypeTestCache() *Value {
	return newValue(KindSubtypeTestCache, cid.SubtypeTestCache, true, nil)
}

// cidPayload carries a Cid value's raw class id and whether it was
// read through LoadTaggedClassIdMayBeSmi's Smi-tagged path.
type cidPayload struct {
	id    cid.TypeID
	isSmi bool
}

// NewCid builds a value carrying a raw, not-yet-interpreted class id,
// the result of a LoadClassId before a recognizer decides what to do
// with it. isSmi records whether id was read via the tagged-may-be-
// Smi idiom rather than a plain LoadClassId.
func NewCid(id cid.TypeID, isSmi bool) *Value {
	return newValue(KindCid, cid.Class, id != 0, cidPayload{id: id, isSmi: isSmi})
}

// CidValue returns the raw class id a Cid value carries.
func (v *Value) CidValue() cid.TypeID { return v.payload.(cidPayload).id }

// CidIsSmi reports whether the Cid value was read via the tagged-
// may-be-Smi idiom.
func (v *Value) CidIsSmi() bool { return v.payload.(cidPayload).isSmi }

// NewParam builds a value naming an incoming parameter before its
// type is known.
func NewParam(index int, name string) *Value {
	return newValue(KindParam, cid.Parameter, false, paramPayload{index: index, name: name})
}

type paramPayload struct {
	index int
	name  string
}

// AsInteger downcasts v to its Integer payload. Panics if v is not an
// Integer value: callers are expected to check Kind()/RawTypeID()
// first, this is a programmer contract, not runtime policy.
func (v *Value) AsInteger() int64 {
	if v.kind != KindInteger {
		panic(fmt.Sprintf("value: AsInteger on a %v value", v.kind))
	}
	return v.ValueInt()
}

// AsParam downcasts v to its Param payload, panicking if v is not a
// Param value.
func (v *Value) AsParam() (index int, name string) {
	if v.kind != KindParam {
		panic(fmt.Sprintf("value: AsParam on a %v value", v.kind))
	}
	p := v.payload.(paramPayload)
	return p.index, p.name
}

// String renders v the way it would appear in a lifted IL listing:
// total over every variant, and stable regardless of HasValue.
func (v *Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindSentinel:
		return "Sentinel"
	case KindBoolean:
		if v.boolean() {
			return "true"
		}
		return "false"
	case KindInteger:
		return fmt.Sprintf("%d", v.ValueInt())
	case KindDouble:
		return fmt.Sprintf("%g", v.double())
	case KindString:
		return strutil.Quoted([]byte(v.str()))
	case KindFunctionCode:
		p := v.payload.(functionCodePayload)
		return fmt.Sprintf("Function(%s@0x%x)", p.name, p.entry)
	case KindField:
		p := v.payload.(fieldPayload)
		return fmt.Sprintf("Field(%s.%s)", p.owner, p.name)
	case KindExpression:
		return v.payload.(*expressionPayload).text
	case KindArray:
		p := v.payload.(arrayPayload)
		if p.length < 0 {
			return "GrowableArray<>"
		}
		return fmt.Sprintf("Array<%d>", p.length)
	case KindGrowableArray:
		return "GrowableArray<>"
	case KindUnlinkedCall:
		return fmt.Sprintf("UnlinkedCall(%s)", v.payload.(string))
	case KindInstance:
		return fmt.Sprintf("Instance(%s)", v.Class().Name)
	case KindType:
		return v.payload.(string)
	case KindRecordType:
		return v.payload.(string)
	case KindTypeParameter:
		return v.payload.(string)
	case KindFunctionType:
		return v.payload.(string)
	case KindTypeArguments:
		return fmt.Sprintf("TypeArguments%v", v.payload.([]string))
	case KindSubtypeTestCache:
		return "SubtypeTestCache"
	case KindCid:
		if v.CidIsSmi() {
			return fmt.Sprintf("TaggedCid_%d", v.CidValue())
		}
		return fmt.Sprintf("cid_%d", v.CidValue())
	case KindParam:
		_, name := v.AsParam()
		return name
	default:
		return "BUG_NO_ASSIGN_VALUE"
	}
}

func (k Kind) String() string {
	names := [...]string{
		"Null", "Boolean", "Integer", "Double", "String", "FunctionCode",
		"Field", "Expression", "Array", "GrowableArray", "UnlinkedCall",
		"Instance", "Type", "RecordType", "TypeParameter", "FunctionType",
		"TypeArguments", "Sentinel", "SubtypeTestCache", "Cid", "Param",
	}
	if int(k) < 0 || int(k) >= len(names) {
		return "Unknown"
	}
	return names[k]
}
