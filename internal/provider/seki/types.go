package seki

import (
	"github.com/waabox/sekideck/internal/domain"
	"github.com/waabox/sekideck/internal/timefmt"
)

// rawPipeline is the API response shape for a pipeline status.
type rawPipeline struct {
	State     string     `json:"state"`
	CreatedAt string     `json:"created_at"`
	UpdatedAt string     `json:"updated_at"`
	Events    []rawEvent `json:"events"`
	Git       rawGit     `json:"git"`
}

type rawGit struct {
	Organization  string `json:"organization"`
	Product       string `json:"product"`
	Commit        string `json:"commit"`
	CommitMessage string `json:"commit_message"`
	CommitAuthor  string `json:"commit_author"`
	Stage         string `json:"stage"`
	Event         string `json:"event"`
	Ref           string `json:"ref"`
}

type rawEvent struct {
	ID        string        `json:"id"`
	Label     rawLabel      `json:"label"`
	State     string        `json:"state"`
	CreatedAt string        `json:"created_at"`
	UpdatedAt string        `json:"updated_at"`
	Markdown  string        `json:"markdown"`
	SubEvents []rawSubEvent `json:"subevents"`
}

type rawSubEvent struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	State     string `json:"state"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	Markdown  string `json:"markdown"`
}

// rawLabel accepts both the localized object form and a bare string.
type rawLabel struct {
	ES string `json:"es"`
	EN string `json:"en"`
	BR string `json:"br"`
}

func (l *rawLabel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = rawLabel{ES: s}
		return nil
	}
	type plain rawLabel
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*l = rawLabel(p)
	return nil
}

func (r rawPipeline) toRecord() domain.PipelineRecord {
	record := domain.PipelineRecord{
		State:     domain.ParseState(r.State),
		CreatedAt: timefmt.ParseTimestamp(r.CreatedAt),
		UpdatedAt: timefmt.ParseTimestamp(r.UpdatedAt),
		Git: domain.GitInfo{
			Organization:  r.Git.Organization,
			Product:       r.Git.Product,
			Commit:        r.Git.Commit,
			CommitMessage: r.Git.CommitMessage,
			CommitAuthor:  r.Git.CommitAuthor,
			Stage:         domain.Stage(r.Git.Stage),
			Event:         domain.EventKind(r.Git.Event),
			Ref:           r.Git.Ref,
		},
		Events: make([]domain.Event, len(r.Events)),
	}
	for i, e := range r.Events {
		record.Events[i] = e.toEvent()
	}
	return record
}

func (e rawEvent) toEvent() domain.Event {
	event := domain.Event{
		ID:        e.ID,
		Label:     domain.Label{ES: e.Label.ES, EN: e.Label.EN, BR: e.Label.BR},
		State:     domain.ParseState(e.State),
		CreatedAt: timefmt.ParseTimestamp(e.CreatedAt),
		UpdatedAt: timefmt.ParseTimestamp(e.UpdatedAt),
		Markdown:  e.Markdown,
		SubEvents: make([]domain.SubEvent, len(e.SubEvents)),
	}
	for i, s := range e.SubEvents {
		event.SubEvents[i] = domain.SubEvent{
			ID:        s.ID,
			Label:     s.Label,
			State:     domain.ParseState(s.State),
			CreatedAt: timefmt.ParseTimestamp(s.CreatedAt),
			UpdatedAt: timefmt.ParseTimestamp(s.UpdatedAt),
			Markdown:  s.Markdown,
		}
	}
	return event
}
