package detect

// Finding is one observation a Detector reports about a lifted IL
// sequence: a free-form category plus a human-readable detail string,
// mirroring the loose shape analysis.CallFinding uses for its own
// pattern-detection results.
type Finding struct {
	Category string
	Detail   string
	Index    int // position in the lifted sequence the finding anchors to
}
