package detect

import (
	"fmt"

	"github.com/Taarique/blutter/internal/dart/ilinstr"
)

// AllocationDetector flags every inline object allocation
// (AllocateObjectInstr, BoxInt64Instr), the counterpart to the
// teacher's heap-allocation call findings.
type AllocationDetector struct{}

func (AllocationDetector) Detect(instrs []ilinstr.Instr) []Finding {
	var out []Finding
	for i, instr := range instrs {
		switch n := instr.(type) {
		case *ilinstr.AllocateObjectInstr:
			out = append(out, Finding{Category: "allocation", Detail: "Allocate" + n.ClassName, Index: i})
		case *ilinstr.BoxInt64Instr:
			out = append(out, Finding{Category: "allocation", Detail: "BoxInt64", Index: i})
		}
	}
	return out
}

// GdtCallDetector flags every dynamic dispatch through the global
// dispatch table.
type GdtCallDetector struct{}

func (GdtCallDetector) Detect(instrs []ilinstr.Instr) []Finding {
	var out []Finding
	for i, instr := range instrs {
		if call, ok := instr.(*ilinstr.GdtCallInstr); ok {
			out = append(out, Finding{Category: "gdt-call", Detail: fmt.Sprintf("offset %#x", call.Offset), Index: i})
		}
	}
	return out
}

// ArrayBoundsDetector flags every array element access, noting its
// statically-resolved element kind when known.
type ArrayBoundsDetector struct{}

func (ArrayBoundsDetector) Detect(instrs []ilinstr.Instr) []Finding {
	var out []Finding
	for i, instr := range instrs {
		switch n := instr.(type) {
		case *ilinstr.LoadArrayElementInstr:
			out = append(out, Finding{Category: "array-access", Detail: "load " + n.Op.String(), Index: i})
		case *ilinstr.StoreArrayElementInstr:
			out = append(out, Finding{Category: "array-access", Detail: "store " + n.Op.String(), Index: i})
		}
	}
	return out
}

// WriteBarrierDetector flags every pointer-field or pointer-element
// store and notes whether a write barrier immediately follows it: a
// store with no following WriteBarrierInstr means the compiler elided
// the barrier (e.g. storing into a just-allocated young object), which
// the CLI reports as a statistic rather than a correctness issue.
type WriteBarrierDetector struct{}

func (WriteBarrierDetector) Detect(instrs []ilinstr.Instr) []Finding {
	var out []Finding
	for i, instr := range instrs {
		isStore := false
		switch instr.(type) {
		case *ilinstr.StoreFieldInstr, *ilinstr.StoreArrayElementInstr, *ilinstr.StoreStaticFieldInstr:
			isStore = true
		}
		if !isStore {
			continue
		}
		emitted := i+1 < len(instrs)
		if emitted {
			_, emitted = instrs[i+1].(*ilinstr.WriteBarrierInstr)
		}
		if emitted {
			out = append(out, Finding{Category: "write-barrier", Detail: "emitted", Index: i})
		} else {
			out = append(out, Finding{Category: "write-barrier", Detail: "elided", Index: i})
		}
	}
	return out
}

// Summary aggregates the counts a CLI lift report prints alongside
// the IL listing itself.
type Summary struct {
	Allocations     int
	GdtCalls        int
	ArrayAccesses   int
	BarriersEmitted int
	BarriersElided  int
}

// Summarize runs the standard detector set and folds its findings into
// a Summary.
func Summarize(instrs []ilinstr.Instr) Summary {
	chain := NewChain(AllocationDetector{}, GdtCallDetector{}, ArrayBoundsDetector{}, WriteBarrierDetector{})
	var s Summary
	for _, f := range chain.Detect(instrs) {
		switch f.Category {
		case "allocation":
			s.Allocations++
		case "gdt-call":
			s.GdtCalls++
		case "array-access":
			s.ArrayAccesses++
		case "write-barrier":
			if f.Detail == "emitted" {
				s.BarriersEmitted++
			} else {
				s.BarriersElided++
			}
		}
	}
	return s
}
