package cli

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/scribetree/pkg/notes"
)

func browserNote() notes.LectureNote {
	return notes.LectureNote{
		Summary:  "Entropy",
		Logistic: "HW due Friday",
		Children: []notes.KeyPoint{
			{ID: "a", Title: "Second law", Content: "Entropy never decreases.", Children: []notes.KeyPoint{
				{ID: "b", Title: "Microstates", Content: "Counting."},
			}},
			{ID: "c", Title: "Heat death", Content: "Eventually."},
		},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m NoteModel, keys ...string) NoteModel {
	for _, k := range keys {
		next, _ := m.Update(key(k))
		m = next.(NoteModel)
	}
	return m
}

func titles(m NoteModel) []string {
	out := make([]string, len(m.rows))
	for i, r := range m.rows {
		out[i] = r.kp.Title
	}
	return out
}

func TestNoteModelNavigation(t *testing.T) {
	tests := []struct {
		name       string
		keys       []string
		wantRows   string
		wantCursor int
	}{
		{"initially closed", nil, "Second law,Heat death", 0},
		{"enter opens", []string{"enter"}, "Second law,Microstates,Heat death", 0},
		{"enter twice closes", []string{"enter", "enter"}, "Second law,Heat death", 0},
		{"down into child", []string{"right", "down"}, "Second law,Microstates,Heat death", 1},
		{"left on leaf goes to parent", []string{"right", "down", "left"}, "Second law,Microstates,Heat death", 0},
		{"left on open closes", []string{"right", "left"}, "Second law,Heat death", 0},
		{"cursor stops at end", []string{"j", "j", "j"}, "Second law,Heat death", 1},
		{"cursor stops at start", []string{"up", "k"}, "Second law,Heat death", 0},
		{"expand all keeps cursor", []string{"j", "E"}, "Second law,Microstates,Heat death", 2},
		{"collapse all", []string{"E", "C"}, "Second law,Heat death", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := press(NewNoteModel(browserNote()), tt.keys...)
			if got := strings.Join(titles(m), ","); got != tt.wantRows {
				t.Errorf("rows = %s, want %s", got, tt.wantRows)
			}
			if m.Cursor != tt.wantCursor {
				t.Errorf("cursor = %d, want %d", m.Cursor, tt.wantCursor)
			}
		})
	}
}

func TestNoteModelQuit(t *testing.T) {
	for _, k := range []string{"q", "esc"} {
		msg := key(k)
		if k == "esc" {
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		}
		_, cmd := NewNoteModel(browserNote()).Update(msg)
		if cmd == nil {
			t.Errorf("%s should quit", k)
		}
	}
}

func TestNoteModelScroll(t *testing.T) {
	n := notes.LectureNote{Summary: "S"}
	for i := range 10 {
		n.Children = append(n.Children, notes.KeyPoint{ID: string(rune('a' + i)), Title: "kp"})
	}
	m := NewNoteModel(n)
	m.Height = 3
	m = press(m, "j", "j", "j", "j")
	if m.Cursor != 4 || m.Offset != 2 {
		t.Errorf("cursor=%d offset=%d, want 4 and 2", m.Cursor, m.Offset)
	}
	m = press(m, "k", "k", "k", "k")
	if m.Offset != 0 {
		t.Errorf("offset = %d after scrolling back", m.Offset)
	}
}

func TestNoteModelView(t *testing.T) {
	m := press(NewNoteModel(browserNote()), "enter")
	view := m.View()
	for _, want := range []string{"Summary", "Entropy", "HW due Friday", "▾ Second law", "Entropy never decreases.", "• Microstates", "[1/3]"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	empty := NewNoteModel(notes.LectureNote{Summary: "S"}).View()
	if !strings.Contains(empty, "(no key points)") {
		t.Errorf("empty view:\n%s", empty)
	}
}

func TestNoteModelWindowSize(t *testing.T) {
	next, _ := NewNoteModel(browserNote()).Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m := next.(NoteModel)
	if m.Width != 120 || m.Height != 32 {
		t.Errorf("size = %dx%d", m.Width, m.Height)
	}
}
