package runtime

import (
	"debug/elf"
	"encoding/binary"
	"fmt"

	"github.com/Taarique/blutter/internal/dart/cid"
	"github.com/Taarique/blutter/internal/elfx"
	"github.com/Taarique/blutter/internal/logging"
)

// relAArch64Relative is the ELF relocation type for a statically
// resolvable absolute address, the only kind a read-only global
// dispatch table needs to care about.
const relAArch64Relative = 1027

// DispatchTable resolves a GdtCallInstr's (receiver cid, offset) pair
// to a concrete function address. Dart AOT snapshots have exactly one
// global dispatch table rather than one vtable per class, so unlike
// its teacher ancestor (a per-class C++ vtable resolver) this type is
// indexed directly by class id.
type DispatchTable struct {
	base        uint64
	entrySize   uint64
	relocations map[uint64]uint64 // GDT slot address -> target
}

// NewDispatchTable builds a DispatchTable over img, locating the GDT
// by its relocation entries the same way VTableResolver locates C++
// vtables: by scanning SHT_RELA sections for R_AARCH64_RELATIVE
// entries rather than trusting any symbol to name the table.
func NewDispatchTable(img *elfx.Image, gdtBase uint64, entrySize uint64) *DispatchTable {
	d := &DispatchTable{base: gdtBase, entrySize: entrySize, relocations: make(map[uint64]uint64)}
	d.loadRelocations(img)
	return d
}

func (d *DispatchTable) loadRelocations(img *elfx.Image) {
	if img == nil || img.File == nil {
		return
	}
	for _, section := range img.File.Sections {
		if section.Type != elf.SHT_RELA {
			continue
		}
		data, err := section.Data()
		if err != nil {
			continue
		}
		for i := 0; i+24 <= len(data); i += 24 {
			offset := binary.LittleEndian.Uint64(data[i : i+8])
			info := binary.LittleEndian.Uint64(data[i+8 : i+16])
			addend := int64(binary.LittleEndian.Uint64(data[i+16 : i+24]))
			if info&0xffffffff == relAArch64Relative && addend > 0 {
				d.relocations[offset] = uint64(addend)
			}
		}
	}
	if logging.IsDebug() {
		logging.NewLogger().Debug("loaded GDT relocations", "count", len(d.relocations))
	}
}

// Resolve returns the target address and symbol name (if any) of the
// dispatch-table slot for classID at offset. ok is false when the
// slot has no resolvable relocation, the data-level "unknown GDT
// target" case a GdtCallInstr renders without an address.
func (d *DispatchTable) Resolve(classID cid.TypeID, offset int64, symbols FunctionDB) (target uint64, symbol string, ok bool) {
	slot := d.base + uint64(classID)*d.entrySize + uint64(offset)
	target, ok = d.relocations[slot]
	if !ok {
		if logging.IsDebug() {
			logging.NewLogger().Debug("no relocation for GDT slot",
				"cid", classID, "offset", fmt.Sprintf("%#x", offset), "slot", fmt.Sprintf("%#x", slot))
		}
		return 0, "", false
	}
	if symbols != nil {
		if fn, found := symbols.ByAddress(target); found {
			symbol = fn.Name
		}
	}
	return target, symbol, true
}
