package pipeline

import (
	"sort"

	"github.com/waabox/sekideck/internal/domain"
)

// FlatSubEvent pairs a sub-event with the event that contains it.
type FlatSubEvent struct {
	Parent domain.Event
	Child  domain.SubEvent
}

// Flatten lists every (event, sub-event) pair in event order, then sub-event
// order. Events without sub-events contribute nothing.
func Flatten(events []domain.Event) []FlatSubEvent {
	var out []FlatSubEvent
	for _, event := range events {
		for _, sub := range event.SubEvents {
			out = append(out, FlatSubEvent{Parent: event, Child: sub})
		}
	}
	return out
}

// FilterState keeps the pairs whose sub-event is in state.
func FilterState(flat []FlatSubEvent, state domain.State) []FlatSubEvent {
	var out []FlatSubEvent
	for _, f := range flat {
		if f.Child.State == state {
			out = append(out, f)
		}
	}
	return out
}

// SortBySeverity returns a copy of events ordered most urgent first.
// Events of equal rank keep their pipeline order.
func SortBySeverity(events []domain.Event) []domain.Event {
	out := make([]domain.Event, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].State.Severity() < out[j].State.Severity()
	})
	return out
}
