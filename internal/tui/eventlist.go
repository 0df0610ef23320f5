package tui

import (
	"fmt"
	"strings"

	"github.com/waabox/sekideck/internal/pipeline"
)

// EventListModel is an immutable model for the events panel.
// Events are shown in pipeline order.
type EventListModel struct {
	events []pipeline.EventView
	cursor int
}

// NewEventListModel creates an event list model.
func NewEventListModel(events []pipeline.EventView) EventListModel {
	return EventListModel{events: events, cursor: 0}
}

// MoveDown returns a new model with the cursor moved down by one.
func (m EventListModel) MoveDown() EventListModel {
	if m.cursor < len(m.events)-1 {
		m.cursor++
	}
	return m
}

// MoveUp returns a new model with the cursor moved up by one.
func (m EventListModel) MoveUp() EventListModel {
	if m.cursor > 0 {
		m.cursor--
	}
	return m
}

// Cursor returns the current cursor position.
func (m EventListModel) Cursor() int {
	return m.cursor
}

// Events returns the full event slice.
func (m EventListModel) Events() []pipeline.EventView {
	return m.events
}

// Selected returns the highlighted event and false when the list is empty.
func (m EventListModel) Selected() (pipeline.EventView, bool) {
	if len(m.events) == 0 {
		return pipeline.EventView{}, false
	}
	return m.events[m.cursor], true
}

// View renders the event list followed by the highlighted event's details.
func (m EventListModel) View() string {
	if len(m.events) == 0 {
		return "This pipeline has no events."
	}
	var sb strings.Builder
	for i, e := range m.events {
		prefix := "  "
		if i == m.cursor {
			prefix = cursorStyle.Render("> ")
		}
		sb.WriteString(fmt.Sprintf("%s%s %-25s %8s  %s\n",
			prefix,
			stateIcon(e.Icon, e.Tone),
			truncate(e.Label, 25),
			e.Duration,
			metaStyle.Render(e.Ago),
		))
	}
	selected, _ := m.Selected()
	sb.WriteString("\n")
	sb.WriteString(detailBlock(selected.Summary, selected.Tooltip, selected.URLs))
	return sb.String()
}

// detailBlock renders the summary, timestamp tooltip and links of one item.
func detailBlock(summary, tooltip string, urls []string) string {
	var sb strings.Builder
	sb.WriteString(" " + summary + "\n")
	if tooltip != "" {
		sb.WriteString(" " + metaStyle.Render(tooltip) + "\n")
	}
	for _, u := range urls {
		sb.WriteString(" ↗ " + linkStyle.Render(u) + "\n")
	}
	return sb.String()
}
