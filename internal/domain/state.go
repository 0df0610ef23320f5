package domain

import "strings"

// State is the execution state reported for a pipeline, event, or sub-event.
type State string

const (
	StateSuccess State = "SUCCESS"
	StateFailed  State = "FAILED"
	StateWarn    State = "WARN"
	StateRunning State = "RUNNING"
	StatePending State = "PENDING"
	StateUnknown State = "UNKNOWN"
)

// Tone is the presentation colour family of a state.
type Tone string

const (
	ToneSuccess Tone = "success"
	ToneDanger  Tone = "danger"
	ToneWarning Tone = "warning"
	ToneActive  Tone = "active"
	ToneNeutral Tone = "neutral"
)

// stateTraits holds everything a view needs to know about a state.
// Unknown tokens fall back to the StateUnknown row.
type stateTraits struct {
	severity int
	icon     string
	tone     Tone
}

var stateTable = map[State]stateTraits{
	StateFailed:  {severity: 1, icon: "✗", tone: ToneDanger},
	StateRunning: {severity: 2, icon: "●", tone: ToneActive},
	StatePending: {severity: 2, icon: "↷", tone: ToneActive},
	StateWarn:    {severity: 3, icon: "!", tone: ToneWarning},
	StateSuccess: {severity: 4, icon: "✓", tone: ToneSuccess},
	StateUnknown: {severity: 4, icon: "", tone: ToneNeutral},
}

// ParseState maps a raw provider token to a State. It never fails:
// unrecognized or empty tokens map to StateUnknown.
func ParseState(raw string) State {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "SUCCESS":
		return StateSuccess
	case "FAILED":
		return StateFailed
	case "WARN", "WARNING":
		return StateWarn
	case "RUNNING":
		return StateRunning
	case "PENDING":
		return StatePending
	default:
		return StateUnknown
	}
}

func (s State) traits() stateTraits {
	if t, ok := stateTable[s]; ok {
		return t
	}
	return stateTable[StateUnknown]
}

// Severity ranks a state by urgency. Lower is more urgent.
func (s State) Severity() int {
	return s.traits().severity
}

// Icon returns the glyph used for the state; empty for unknown states.
func (s State) Icon() string {
	return s.traits().icon
}

// Tone returns the colour family used to render the state.
func (s State) Tone() Tone {
	return s.traits().tone
}

// InProgress reports whether the state is still changing.
func (s State) InProgress() bool {
	return s == StateRunning || s == StatePending
}

// Known reports whether s is one of the recognized provider states.
func (s State) Known() bool {
	_, ok := stateTable[s]
	return ok && s != StateUnknown
}
