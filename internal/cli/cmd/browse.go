package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/v2/list"
	"github.com/charmbracelet/bubbles/v2/viewport"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/Taarique/blutter/internal/dart/lifter"
	"github.com/Taarique/blutter/internal/dart/runtime"
	"github.com/Taarique/blutter/internal/elfx"
	"github.com/Taarique/blutter/internal/ui/colorize"
)

// browseInstructionWindow is how many instructions browse decodes and
// lifts from a function's entry; no symbol or length metadata bounds
// the window.
const browseInstructionWindow = 64

var browseCmd = &cobra.Command{
	Use:   "browse <binary>",
	Short: "Interactively browse a binary's functions and their lifted IL",
	Long: `browse opens a two-pane TUI: a fuzzy-filterable list of every function
address blutter can resolve a call target against on the left, and the
lifted, colorized IL of the selected function on the right — the same
list+viewport shape the teacher's root.go used for its own symbol browser,
now showing lifted IL instead of raw annotated disassembly.`,
	Args: cobra.ExactArgs(1),
	RunE: runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

type functionItem struct {
	addr uint64
	name string
}

func (i functionItem) Title() string       { return fmt.Sprintf("%#016x  %s", i.addr, i.name) }
func (i functionItem) Description() string { return "" }
func (i functionItem) FilterValue() string  { return i.name }

type functionDelegate struct{}

func (d functionDelegate) Height() int                               { return 1 }
func (d functionDelegate) Spacing() int                              { return 0 }
func (d functionDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d functionDelegate) Render(w io.Writer, m list.Model, index int, it list.Item) {
	fi, ok := it.(functionItem)
	if !ok {
		return
	}
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	if index == m.Index() {
		style = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))
		fmt.Fprintf(w, "> %s", style.Render(fi.Title()))
		return
	}
	fmt.Fprintf(w, "  %s", style.Render(fi.Title()))
}

type browseModel struct {
	list     list.Model
	il       viewport.Model
	img      *elfx.Image
	lifter   *lifter.Lifter
	selected uint64
}

func (m browseModel) Init() tea.Cmd { return nil }

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		listWidth := msg.Width / 3
		m.list.SetSize(listWidth, msg.Height)
		m.il.SetWidth(msg.Width - listWidth)
		m.il.SetHeight(msg.Height)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)

	if fi, ok := m.list.SelectedItem().(functionItem); ok && fi.addr != m.selected {
		m.selected = fi.addr
		m.il.SetContent(m.renderIL(fi.addr))
	}
	return m, cmd
}

func (m browseModel) renderIL(addr uint64) string {
	insts, err := decodeRun(m.img, addr, browseInstructionWindow)
	if err != nil {
		return fmt.Sprintf("failed to decode at %#x: %v", addr, err)
	}
	nodes, err := m.lifter.Lift(insts)
	if err != nil {
		return fmt.Sprintf("failed to lift at %#x: %v", addr, err)
	}
	var b strings.Builder
	for _, n := range nodes {
		line := fmt.Sprintf("%#08x  %s", n.Range().Start, n.String())
		b.WriteString(colorize.ColorizeIL(line))
		b.WriteByte('\n')
		if n.String() == "ret" {
			break
		}
	}
	return b.String()
}

func (m browseModel) View() string {
	return lipgloss.JoinHorizontal(lipgloss.Top, m.list.View(), m.il.View())
}

func runBrowse(cmd *cobra.Command, args []string) error {
	img, err := elfx.Open(args[0])
	if err != nil {
		return fmt.Errorf("open binary: %w", err)
	}
	defer img.Close()

	db := runtime.NewSymbolFunctionDB(img)
	all := append(append([]elfx.DynSym{}, img.Dynsyms...), img.Syms...)
	seen := make(map[uint64]bool)
	items := make([]list.Item, 0, len(all))
	for _, sym := range all {
		if sym.Name == "" || seen[sym.Addr] {
			continue
		}
		seen[sym.Addr] = true
		if fn, ok := db.ByAddress(sym.Addr); ok {
			items = append(items, functionItem{addr: sym.Addr, name: fn.Name})
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].(functionItem).addr < items[j].(functionItem).addr
	})

	l := list.New(items, functionDelegate{}, 26, 24)
	l.Title = "Functions"
	l.Styles.Title = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).MarginLeft(2)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)

	vp := viewport.New()
	vp.SetWidth(54)
	vp.SetHeight(24)

	lf := lifter.New(
		runtime.MapPool{},
		runtime.NewMapLayout(),
		runtime.MapClassDB{},
		runtime.MapFieldDB{},
		db,
		runtime.MapTypeDB{},
		nil,
	)

	m := browseModel{list: l, il: vp, img: img, lifter: lf}
	if fi, ok := l.SelectedItem().(functionItem); ok {
		m.selected = fi.addr
		m.il.SetContent(m.renderIL(fi.addr))
	}

	p := tea.NewProgram(m)
	_, err = p.Run()
	return err
}
