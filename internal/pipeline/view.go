// Package pipeline turns a raw pipeline record into the view model that
// every presentation layer renders.
package pipeline

import (
	"strings"
	"time"

	"github.com/waabox/sekideck/internal/domain"
	"github.com/waabox/sekideck/internal/statustext"
	"github.com/waabox/sekideck/internal/timefmt"
)

// ShortHashLen is the number of hash characters shown for a commit.
const ShortHashLen = 7

// MetaPart is one fragment of the summary line under the pipeline header.
type MetaPart struct {
	ID   string `json:"id" yaml:"id"`
	Text string `json:"text" yaml:"text"`
}

// SubEventView is a sub-event ready for display.
type SubEventView struct {
	ID       string       `json:"id" yaml:"id"`
	Label    string       `json:"label" yaml:"label"`
	State    domain.State `json:"state" yaml:"state"`
	Tone     domain.Tone  `json:"tone" yaml:"tone"`
	Icon     string       `json:"icon" yaml:"icon"`
	Duration string       `json:"duration" yaml:"duration"`
	Ago      string       `json:"ago" yaml:"ago"`
	Tooltip  string       `json:"tooltip" yaml:"tooltip"`
	Summary  string       `json:"summary" yaml:"summary"`
	URLs     []string     `json:"urls" yaml:"urls"`
	Markdown string       `json:"markdown" yaml:"markdown"`
	Deploy   bool         `json:"deploy" yaml:"deploy"`
}

// EventView is an event ready for display.
type EventView struct {
	ID        string         `json:"id" yaml:"id"`
	Label     string         `json:"label" yaml:"label"`
	State     domain.State   `json:"state" yaml:"state"`
	Tone      domain.Tone    `json:"tone" yaml:"tone"`
	Icon      string         `json:"icon" yaml:"icon"`
	Duration  string         `json:"duration" yaml:"duration"`
	Ago       string         `json:"ago" yaml:"ago"`
	Tooltip   string         `json:"tooltip" yaml:"tooltip"`
	Summary   string         `json:"summary" yaml:"summary"`
	URLs      []string       `json:"urls" yaml:"urls"`
	Markdown  string         `json:"markdown" yaml:"markdown"`
	SubEvents []SubEventView `json:"subevents" yaml:"subevents"`
}

// FailureView is a failed sub-event called out under the header.
type FailureView struct {
	EventID       string `json:"event_id" yaml:"event_id"`
	EventLabel    string `json:"event_label" yaml:"event_label"`
	SubEventID    string `json:"subevent_id" yaml:"subevent_id"`
	SubEventLabel string `json:"subevent_label" yaml:"subevent_label"`
	Summary       string `json:"summary" yaml:"summary"`
}

// ViewModel is everything a presentation layer needs for one pipeline.
// Events keeps pipeline order; Timeline is the same events ordered by severity.
type ViewModel struct {
	Stage         domain.Stage  `json:"stage" yaml:"stage"`
	Product       string        `json:"product" yaml:"product"`
	Commit        string        `json:"commit" yaml:"commit"`
	ShortHash     string        `json:"short_hash" yaml:"short_hash"`
	Ref           string        `json:"ref" yaml:"ref"`
	CommitMessage string        `json:"commit_message" yaml:"commit_message"`
	Author        string        `json:"author" yaml:"author"`
	State         domain.State  `json:"state" yaml:"state"`
	Tone          domain.Tone   `json:"tone" yaml:"tone"`
	Icon          string        `json:"icon" yaml:"icon"`
	CreatedAt     time.Time     `json:"created_at" yaml:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" yaml:"updated_at"`
	Duration      string        `json:"duration" yaml:"duration"`
	Elapsed       string        `json:"elapsed" yaml:"elapsed"`
	LastUpdated   string        `json:"last_updated" yaml:"last_updated"`
	Tooltip       string        `json:"tooltip" yaml:"tooltip"`
	Meta          []MetaPart    `json:"meta" yaml:"meta"`
	Events        []EventView   `json:"events" yaml:"events"`
	Timeline      []EventView   `json:"timeline" yaml:"timeline"`
	Links         []string      `json:"links" yaml:"links"`
	Failures      []FailureView `json:"failures" yaml:"failures"`
}

// ShortHash truncates a commit hash to ShortHashLen characters.
func ShortHash(hash string) string {
	if len(hash) > ShortHashLen {
		return hash[:ShortHashLen]
	}
	return hash
}

// Assemble builds the view model of record for stage. now anchors every
// relative time and its location is used for local timestamps.
// It never fails: unknown states and missing fields degrade to neutral values.
func Assemble(record domain.PipelineRecord, stage domain.Stage, now time.Time) ViewModel {
	product := record.Git.Product
	if record.Git.Organization != "" && !strings.Contains(product, "/") {
		product = record.Git.Organization + "/" + product
	}

	vm := ViewModel{
		Stage:         stage,
		Product:       product,
		Commit:        record.Git.Commit,
		ShortHash:     ShortHash(record.Git.Commit),
		Ref:           record.Git.Ref,
		CommitMessage: record.Git.CommitMessage,
		Author:        record.Git.CommitAuthor,
		State:         record.State,
		Tone:          record.State.Tone(),
		Icon:          record.State.Icon(),
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
		Duration:      timefmt.FormatDuration(record.CreatedAt, record.UpdatedAt, now),
		Elapsed:       timefmt.Humanize(record.CreatedAt, record.UpdatedAt),
		LastUpdated:   timefmt.Ago(record.UpdatedAt, now),
		Tooltip:       timefmt.Tooltip(record.UpdatedAt, now.Location()),
		Links:         statustext.DeployURLs(record.Events),
	}
	vm.Meta = metaParts(vm)

	vm.Events = make([]EventView, len(record.Events))
	for i, event := range record.Events {
		vm.Events[i] = eventView(event, now)
	}
	sorted := SortBySeverity(record.Events)
	vm.Timeline = make([]EventView, len(sorted))
	for i, event := range sorted {
		vm.Timeline[i] = eventView(event, now)
	}

	vm.Failures = []FailureView{}
	for _, f := range FilterState(Flatten(record.Events), domain.StateFailed) {
		vm.Failures = append(vm.Failures, FailureView{
			EventID:       f.Parent.ID,
			EventLabel:    eventLabel(f.Parent),
			SubEventID:    f.Child.ID,
			SubEventLabel: subEventLabel(f.Child),
			Summary:       statustext.Summary(f.Child.Markdown),
		})
	}
	return vm
}

// metaParts lists author, time and commit message, skipping absent ones.
func metaParts(vm ViewModel) []MetaPart {
	parts := []MetaPart{}
	if vm.Author != "" {
		parts = append(parts, MetaPart{ID: "author", Text: vm.Author})
	}
	if vm.LastUpdated != "" {
		text := vm.LastUpdated
		if vm.Elapsed != "" {
			text += " (" + vm.Elapsed + ")"
		}
		parts = append(parts, MetaPart{ID: "time", Text: text})
	}
	if msg := firstLine(vm.CommitMessage); msg != "" {
		parts = append(parts, MetaPart{ID: "commit", Text: msg})
	}
	return parts
}

func eventView(event domain.Event, now time.Time) EventView {
	last := event.UpdatedAt
	if last.IsZero() {
		last = event.CreatedAt
	}
	ev := EventView{
		ID:        event.ID,
		Label:     eventLabel(event),
		State:     event.State,
		Tone:      event.State.Tone(),
		Icon:      event.State.Icon(),
		Duration:  timefmt.FormatDuration(event.CreatedAt, event.UpdatedAt, now),
		Ago:       timefmt.Ago(last, now),
		Tooltip:   timefmt.Tooltip(last, now.Location()),
		Summary:   statustext.Summary(event.Markdown),
		URLs:      statustext.EventURLs(event),
		Markdown:  event.Markdown,
		SubEvents: make([]SubEventView, len(event.SubEvents)),
	}
	for i, sub := range event.SubEvents {
		ev.SubEvents[i] = subEventView(sub, now)
	}
	return ev
}

func subEventView(sub domain.SubEvent, now time.Time) SubEventView {
	last := sub.UpdatedAt
	if last.IsZero() {
		last = sub.CreatedAt
	}
	return SubEventView{
		ID:       sub.ID,
		Label:    subEventLabel(sub),
		State:    sub.State,
		Tone:     sub.State.Tone(),
		Icon:     sub.State.Icon(),
		Duration: timefmt.FormatDuration(sub.CreatedAt, sub.UpdatedAt, now),
		Ago:      timefmt.Ago(last, now),
		Tooltip:  timefmt.Tooltip(last, now.Location()),
		Summary:  statustext.Summary(sub.Markdown),
		URLs:     statustext.URLs(sub.Markdown),
		Markdown: sub.Markdown,
		Deploy:   statustext.IsDeploy(sub.ID),
	}
}

func eventLabel(event domain.Event) string {
	if l := event.Label.Text(); l != "" {
		return l
	}
	return event.ID
}

func subEventLabel(sub domain.SubEvent) string {
	if sub.Label != "" {
		return sub.Label
	}
	return sub.ID
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
