package tui

import (
	"fmt"
	"strings"

	"github.com/waabox/sekideck/internal/pipeline"
)

// SubEventListModel is an immutable model for the sub-events of one event.
type SubEventListModel struct {
	subs   []pipeline.SubEventView
	cursor int
}

// NewSubEventListModel creates a sub-event list model.
func NewSubEventListModel(subs []pipeline.SubEventView) SubEventListModel {
	return SubEventListModel{subs: subs, cursor: 0}
}

// MoveDown returns a new model with the cursor moved down by one.
func (m SubEventListModel) MoveDown() SubEventListModel {
	if m.cursor < len(m.subs)-1 {
		m.cursor++
	}
	return m
}

// MoveUp returns a new model with the cursor moved up by one.
func (m SubEventListModel) MoveUp() SubEventListModel {
	if m.cursor > 0 {
		m.cursor--
	}
	return m
}

// Cursor returns the current cursor position.
func (m SubEventListModel) Cursor() int {
	return m.cursor
}

// SubEvents returns the full sub-event slice.
func (m SubEventListModel) SubEvents() []pipeline.SubEventView {
	return m.subs
}

// View renders the sub-event list followed by the highlighted item's details.
func (m SubEventListModel) View() string {
	if len(m.subs) == 0 {
		return "No sub-events."
	}
	var sb strings.Builder
	for i, s := range m.subs {
		prefix := "  "
		if i == m.cursor {
			prefix = cursorStyle.Render("> ")
		}
		deploy := ""
		if s.Deploy {
			deploy = " ⇪"
		}
		sb.WriteString(fmt.Sprintf("%s%s %-25s %8s  %s%s\n",
			prefix,
			stateIcon(s.Icon, s.Tone),
			truncate(s.Label, 25),
			s.Duration,
			metaStyle.Render(s.Ago),
			deploy,
		))
	}
	selected := m.subs[m.cursor]
	sb.WriteString("\n")
	sb.WriteString(detailBlock(selected.Summary, selected.Tooltip, selected.URLs))
	return sb.String()
}
