// Package detect runs higher-level idiom detectors over an already
// lifted IL sequence, the IL-level counterpart to analysis.Detector:
// where a lifter recognizer turns machine code into IL nodes, a
// Detector turns IL nodes into annotations about what the lifted
// function as a whole is doing.
package detect

import "github.com/Taarique/blutter/internal/dart/ilinstr"

// Detector analyzes a lifted IL sequence and returns the findings it
// recognizes, without mutating the sequence itself.
type Detector interface {
	Detect(instrs []ilinstr.Instr) []Finding
}

// Chain runs multiple detectors in sequence and concatenates their
// findings, the IL-level counterpart to analysis.DetectorChain.
type Chain struct {
	detectors []Detector
}

// NewChain builds a Chain over the given detectors, run in order.
func NewChain(detectors ...Detector) *Chain {
	return &Chain{detectors: detectors}
}

// Detect runs every detector in the chain and returns their combined
// findings, in detector order.
func (c *Chain) Detect(instrs []ilinstr.Instr) []Finding {
	var all []Finding
	for _, d := range c.detectors {
		all = append(all, d.Detect(instrs)...)
	}
	return all
}
