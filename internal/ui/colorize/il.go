package colorize

import (
	"fmt"
	"os"
	"regexp"
)

var reILAddr = regexp.MustCompile(`^(0x[0-9a-fA-F]+)(\s+)(.*)$`)

// ColorizeIL highlights one lifted IL line ("0xaddr  Kind operands"),
// the IL-level counterpart to ColorizeInstructionLine: the address
// renders in the same gray, the rest runs through the shared
// disasm-dark Chroma pipeline since IL text reads like pseudo-assembly
// (register names, immediates, call targets).
func ColorizeIL(line string) string {
	if os.Getenv("BLUTTER_NO_COLOR") != "" {
		return line
	}

	m := reILAddr.FindStringSubmatch(line)
	if m == nil {
		return colorizeFullLine(line)
	}
	addr, gap, rest := m[1], m[2], m[3]

	addrColored := fmt.Sprintf("\033[38;2;79;79;79m%s\033[0m", addr)
	return addrColored + gap + colorizeFullLine(rest)
}
