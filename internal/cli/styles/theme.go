// Package styles holds the glamour theme the CLI uses to render lift
// reports as markdown, the same dark terminal palette the teacher's
// reverse tool used for its own help and detail panes.
package styles

import (
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
)

const (
	foreground = "#D4D4D4"
	comment    = "#6A9955"
	heading    = "#569CD6"
	inlineCode = "#EACD53"
	link       = "#4FC1FF"
	str        = "#CE9178"
	number     = "#B5CEA8"
)

func boolPtr(b bool) *bool       { return &b }
func stringPtr(s string) *string { return &s }
func uintPtr(u uint) *uint       { return &u }

// Renderer returns a glamour TermRenderer wrapped to width, used by
// the lift command's --pretty report output.
func Renderer(width int) *glamour.TermRenderer {
	r, _ := glamour.NewTermRenderer(
		glamour.WithStyles(darkStyle()),
		glamour.WithWordWrap(width),
	)
	return r
}

func darkStyle() ansi.StyleConfig {
	return ansi.StyleConfig{
		Document: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Color: stringPtr(foreground)},
		},
		BlockQuote: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Color: stringPtr(comment), Italic: boolPtr(true)},
			Indent:         uintPtr(1),
			IndentToken:    stringPtr("│ "),
		},
		List: ansi.StyleList{LevelIndent: 2},
		Heading: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Color: stringPtr(heading), Bold: boolPtr(true)},
		},
		H1: ansi.StyleBlock{StylePrimitive: ansi.StylePrimitive{Color: stringPtr(heading), Bold: boolPtr(true)}},
		H2: ansi.StyleBlock{StylePrimitive: ansi.StylePrimitive{Color: stringPtr(heading), Bold: boolPtr(true)}},
		H3: ansi.StyleBlock{StylePrimitive: ansi.StylePrimitive{Color: stringPtr(heading)}},
		Link: ansi.StylePrimitive{
			Color:     stringPtr(link),
			Underline: boolPtr(true),
		},
		Code: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Color: stringPtr(inlineCode)},
		},
		Emph:   ansi.StylePrimitive{Color: stringPtr(str), Italic: boolPtr(true)},
		Strong: ansi.StylePrimitive{Color: stringPtr(number), Bold: boolPtr(true)},
		Text:   ansi.StylePrimitive{Color: stringPtr(foreground)},
	}
}
