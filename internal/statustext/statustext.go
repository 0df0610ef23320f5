// Package statustext extracts summaries and links from the free-form
// markdown that the pipeline provider attaches to events and sub-events.
package statustext

import (
	"regexp"
	"strings"

	"github.com/waabox/sekideck/internal/domain"
)

// NoDetail is returned by Summary when the text carries nothing to show.
const NoDetail = "Sin detalle adicional."

var (
	fencePattern = regexp.MustCompile("(?s)```.*?```")
	urlPattern   = regexp.MustCompile(`https?://[^\s"']+`)
)

// metadata labels the provider prepends to every status text.
var boilerplatePrefixes = []string{"**Product", "**Commit", "**Environment"}

// Summary returns the first meaningful line of markdown: fenced code blocks,
// blank lines, headings and provider metadata lines are skipped. Only one
// line is returned even when the explanation spans several.
func Summary(markdown string) string {
	if markdown == "" {
		return NoDetail
	}
	text := fencePattern.ReplaceAllString(markdown, "")
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || isBoilerplate(line) {
			continue
		}
		return line
	}
	return NoDetail
}

func isBoilerplate(line string) bool {
	for _, p := range boilerplatePrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

// URLSet is an insertion-ordered set of URLs.
type URLSet struct {
	seen  map[string]struct{}
	items []string
}

// Add inserts url unless it is already present.
func (s *URLSet) Add(url string) {
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	if _, ok := s.seen[url]; ok {
		return
	}
	s.seen[url] = struct{}{}
	s.items = append(s.items, url)
}

// AddAll scans markdown and adds every URL found in it.
func (s *URLSet) AddAll(markdown string) {
	for _, match := range urlPattern.FindAllString(markdown, -1) {
		s.Add(strings.TrimSuffix(match, `"`))
	}
}

// Items returns the URLs in first-seen order. The result is never nil.
func (s *URLSet) Items() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of distinct URLs.
func (s *URLSet) Len() int {
	return len(s.items)
}

// URLs returns the distinct URLs of markdown in first-seen order.
func URLs(markdown string) []string {
	var set URLSet
	set.AddAll(markdown)
	return set.Items()
}

// EventURLs collects the URLs of an event and all of its sub-events.
func EventURLs(event domain.Event) []string {
	var set URLSet
	set.AddAll(event.Markdown)
	for _, sub := range event.SubEvents {
		set.AddAll(sub.Markdown)
	}
	return set.Items()
}

// IsDeploy reports whether a sub-event id names a deploy step.
func IsDeploy(id string) bool {
	return strings.HasPrefix(strings.ToUpper(id), "DEPLOY")
}

// DeployURLs collects URLs only from deploy sub-events across all events.
// These are the links to the running deployment.
func DeployURLs(events []domain.Event) []string {
	var set URLSet
	for _, event := range events {
		for _, sub := range event.SubEvents {
			if IsDeploy(sub.ID) {
				set.AddAll(sub.Markdown)
			}
		}
	}
	return set.Items()
}
