package domain

import "time"

// Label is an event label available in several locales.
type Label struct {
	ES string
	EN string
	BR string
}

// Text returns the Spanish label, falling back to English and then Portuguese.
func (l Label) Text() string {
	switch {
	case l.ES != "":
		return l.ES
	case l.EN != "":
		return l.EN
	default:
		return l.BR
	}
}

// SubEvent is a unit of work within an Event.
type SubEvent struct {
	ID        string
	Label     string
	State     State
	CreatedAt time.Time
	UpdatedAt time.Time
	Markdown  string
}

// Event is one pipeline stage such as validation, build, or deploy.
type Event struct {
	ID        string
	Label     Label
	State     State
	CreatedAt time.Time
	UpdatedAt time.Time
	Markdown  string
	SubEvents []SubEvent
}

// GitInfo is the commit metadata embedded in a pipeline record.
type GitInfo struct {
	Organization  string
	Product       string
	Commit        string
	CommitMessage string
	CommitAuthor  string
	Stage         Stage
	Event         EventKind
	Ref           string
}

// PipelineRecord is one pipeline run as reported by the pipeline provider.
// Events are in pipeline stage order. A zero timestamp means the provider
// sent none or sent one that could not be parsed.
type PipelineRecord struct {
	State     State
	CreatedAt time.Time
	UpdatedAt time.Time
	Git       GitInfo
	Events    []Event
}

// SortOrder is the direction of a list sort.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ListOptions narrows a pipeline listing.
type ListOptions struct {
	Limit   int
	Offset  int
	Filters map[string]string
	Sort    map[string]SortOrder
}

// PipelinePage is one page of a pipeline listing.
type PipelinePage struct {
	Offset int
	Limit  int
	Total  int
	Items  []PipelineRecord
}
