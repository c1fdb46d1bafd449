package value

import (
	"testing"

	"github.com/Taarique/blutter/internal/dart/storage"
)

func TestItemStringUnassigned(t *testing.T) {
	it := NewItem(storage.NewRegister(0), nil)
	if got, want := it.String(), "BUG_NO_ASSIGN_VALUE"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestItemStringAssigned(t *testing.T) {
	it := NewItem(storage.NewRegister(0), NewNull())
	if got, want := it.String(), "null"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestItemMoveTo(t *testing.T) {
	src := storage.NewRegister(0)
	dst := storage.NewPool(3)
	it := NewItem(src, NewBoolean(true))

	moved := it.MoveTo(dst)

	if moved.Storage != dst {
		t.Errorf("moved.Storage = %+v, want %+v", moved.Storage, dst)
	}
	if moved.Value == nil || moved.Value.String() != "true" {
		t.Errorf("moved.Value = %v, want the original true value", moved.Value)
	}
	if it.Value != nil {
		t.Error("MoveTo must clear the source Item's Value")
	}
}
