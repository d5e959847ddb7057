package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/scribetree/pkg/notes"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	contentStyle      = lipgloss.NewStyle().Foreground(colorGray)
)

// =============================================================================
// NoteModel - Accordion browser for a note tree
// =============================================================================

// row is one visible key point.
type row struct {
	kp    *notes.KeyPoint
	depth int
}

// NoteModel is the bubbletea model for browsing a note as an accordion:
// key points open to show their content and children.
type NoteModel struct {
	Note   notes.LectureNote
	Open   map[string]bool
	Cursor int
	Offset int
	Height int
	Width  int

	rows []row
}

// NewNoteModel creates a browser with every key point closed.
func NewNoteModel(n notes.LectureNote) NoteModel {
	m := NoteModel{Note: n, Open: map[string]bool{}, Height: 20, Width: 80}
	m.rows = m.visible()
	return m
}

// visible flattens the open part of the tree in pre-order.
func (m NoteModel) visible() []row {
	var rows []row
	var walk func(kps []notes.KeyPoint, depth int)
	walk = func(kps []notes.KeyPoint, depth int) {
		for i := range kps {
			kp := &kps[i]
			rows = append(rows, row{kp: kp, depth: depth})
			if m.Open[kp.ID] {
				walk(kp.Children, depth+1)
			}
		}
	}
	walk(m.Note.Children, 0)
	return rows
}

func (m NoteModel) Init() tea.Cmd {
	return nil
}

func (m NoteModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
			}
		case "down", "j":
			if m.Cursor < len(m.rows)-1 {
				m.Cursor++
			}
		case "enter", " ":
			if r, ok := m.current(); ok {
				m = m.setOpen(r.kp.ID, !m.Open[r.kp.ID])
			}
		case "right", "l":
			if r, ok := m.current(); ok {
				m = m.setOpen(r.kp.ID, true)
			}
		case "left", "h":
			m = m.closeOrParent()
		case "E":
			m = m.setAll(true)
		case "C":
			m = m.setAll(false)
		}
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = max(msg.Height-8, 5)
	}
	m = m.scroll()
	return m, nil
}

func (m NoteModel) current() (row, bool) {
	if m.Cursor < 0 || m.Cursor >= len(m.rows) {
		return row{}, false
	}
	return m.rows[m.Cursor], true
}

// setOpen opens or closes one key point, keeping the cursor on it.
func (m NoteModel) setOpen(id string, open bool) NoteModel {
	next := make(map[string]bool, len(m.Open)+1)
	for k, v := range m.Open {
		next[k] = v
	}
	next[id] = open
	m.Open = next
	m.rows = m.visible()
	return m
}

func (m NoteModel) setAll(open bool) NoteModel {
	var id string
	if r, ok := m.current(); ok {
		id = r.kp.ID
	}
	m.Open = map[string]bool{}
	if open {
		_ = notes.Walk(&m.Note, 0, func(kp *notes.KeyPoint, _ int, _ []int) error {
			if len(kp.Children) > 0 {
				m.Open[kp.ID] = true
			}
			return nil
		})
	}
	m.rows = m.visible()
	m.Cursor = 0
	for i, r := range m.rows {
		if r.kp.ID == id {
			m.Cursor = i
			break
		}
	}
	return m
}

// closeOrParent closes the current key point, or moves to its parent when it
// is already closed.
func (m NoteModel) closeOrParent() NoteModel {
	r, ok := m.current()
	if !ok {
		return m
	}
	if m.Open[r.kp.ID] {
		return m.setOpen(r.kp.ID, false)
	}
	for i := m.Cursor - 1; i >= 0; i-- {
		if m.rows[i].depth < r.depth {
			m.Cursor = i
			break
		}
	}
	return m
}

func (m NoteModel) scroll() NoteModel {
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
	return m
}

func (m NoteModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Summary"))
	b.WriteString("\n")
	b.WriteString(wrap(m.Note.Summary, m.Width))
	b.WriteString("\n")
	if m.Note.Logistic != "" {
		b.WriteString(listDimStyle.Render(wrap("Logistics: "+m.Note.Logistic, m.Width)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ open/close  ←/→ collapse/expand  E/C all  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.rows))
	for i := m.Offset; i < end; i++ {
		r := m.rows[i]
		indent := strings.Repeat("  ", r.depth)

		marker := "•"
		if len(r.kp.Children) > 0 {
			marker = "▸"
			if m.Open[r.kp.ID] {
				marker = "▾"
			}
		}
		line := fmt.Sprintf("%s%s %s", indent, marker, r.kp.DisplayTitle())
		if i == m.Cursor {
			b.WriteString(listSelectedStyle.Render(line))
		} else {
			b.WriteString(listNormalStyle.Render(line))
		}
		b.WriteString("\n")

		if m.Open[r.kp.ID] || (i == m.Cursor && len(r.kp.Children) == 0) {
			pad := indent + "    "
			for _, l := range strings.Split(wrap(r.kp.Content, m.Width-len(pad)), "\n") {
				b.WriteString(contentStyle.Render(pad + l))
				b.WriteString("\n")
			}
		}
	}

	if len(m.rows) == 0 {
		b.WriteString(listDimStyle.Render("  (no key points)"))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]  %d key points", min(m.Cursor+1, len(m.rows)), len(m.rows), notes.Count(&m.Note))))

	return b.String()
}

// =============================================================================
// Helpers
// =============================================================================

// wrap breaks text into lines of at most width columns on word boundaries.
func wrap(text string, width int) string {
	if width < 20 {
		width = 20
	}
	return lipgloss.NewStyle().Width(width).Render(strings.TrimSpace(text))
}
