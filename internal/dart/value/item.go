package value

import "github.com/Taarique/blutter/internal/dart/storage"

// Item pairs a storage location with the Value the lifter currently
// believes lives there. The register file and locals table hold
// Items; IL nodes that need to report "what's in x3 right now" read
// one.
type Item struct {
	Storage storage.Storage
	Value   *Value
}

// NewItem builds an Item. val may be nil, representing a storage
// location whose value hasn't been assigned yet; String() on such an
// Item must not read it.Value directly, use (*Item).String.
func NewItem(s storage.Storage, val *Value) *Item {
	return &Item{Storage: s, Value: val}
}

// MoveTo transfers ownership of it's Value to a newly constructed
// Item at storage dst, and clears it.Value. Go has no compiler-
// enforced moved-from state, so this is a documented contract: the
// caller must not read it.Value after calling MoveTo.
func (it *Item) MoveTo(dst storage.Storage) *Item {
	moved := &Item{Storage: dst, Value: it.Value}
	it.Value = nil
	return moved
}

// String renders the Item's current value, or the
// "BUG_NO_ASSIGN_VALUE" marker if no value has been assigned to this
// storage location yet. This never panics: an un-assigned register is
// an expected, if buggy, program state to render rather than crash
// the lifter over.
func (it *Item) String() string {
	if it.Value == nil {
		return "BUG_NO_ASSIGN_VALUE"
	}
	return it.Value.String()
}
