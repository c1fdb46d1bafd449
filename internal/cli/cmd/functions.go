package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Taarique/blutter/internal/dart/runtime"
	"github.com/Taarique/blutter/internal/elfx"
)

var functionsCmd = &cobra.Command{
	Use:   "functions <binary>",
	Short: "List the function addresses blutter can resolve calls against",
	Long: `functions lists every symbol the ELF symbol table resolves, the
FunctionDB fallback the lifter falls back to for call targets no Dart
snapshot metadata names.`,
	Args: cobra.ExactArgs(1),
	RunE: runFunctions,
}

func init() {
	rootCmd.AddCommand(functionsCmd)
}

func runFunctions(cmd *cobra.Command, args []string) error {
	img, err := elfx.Open(args[0])
	if err != nil {
		return fmt.Errorf("open binary: %w", err)
	}
	defer img.Close()

	db := runtime.NewSymbolFunctionDB(img)
	type row struct {
		addr uint64
		name string
	}
	var rows []row
	all := append(append([]elfx.DynSym{}, img.Dynsyms...), img.Syms...)
	seen := make(map[uint64]bool)
	for _, sym := range all {
		if sym.Name == "" || seen[sym.Addr] {
			continue
		}
		seen[sym.Addr] = true
		if fn, ok := db.ByAddress(sym.Addr); ok {
			rows = append(rows, row{addr: sym.Addr, name: fn.Name})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].addr < rows[j].addr })

	for _, r := range rows {
		fmt.Fprintf(cmd.OutOrStdout(), "%#016x  %s\n", r.addr, r.name)
	}
	return nil
}
