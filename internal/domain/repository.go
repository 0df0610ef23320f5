package domain

import (
	"fmt"
	"strings"
	"time"
)

// Repository represents a repository on the code host.
type Repository struct {
	Owner     string
	Name      string
	RemoteURL string
}

// FullName returns the "owner/name" form used as the product identifier.
func (r Repository) FullName() string {
	return r.Owner + "/" + r.Name
}

// ParseFullName parses "owner/name" into a Repository.
// The owner may itself be nested ("group/sub/name"); no segment may be empty.
func ParseFullName(fullName string) (Repository, error) {
	parts := strings.Split(strings.TrimSpace(fullName), "/")
	if len(parts) < 2 {
		return Repository{}, fmt.Errorf("invalid repository %q: want org/name", fullName)
	}
	for _, p := range parts {
		if p == "" {
			return Repository{}, fmt.Errorf("invalid repository %q: want org/name", fullName)
		}
	}
	last := len(parts) - 1
	return Repository{Owner: strings.Join(parts[:last], "/"), Name: parts[last]}, nil
}

// RepositorySummary is a repository entry returned by listing or search.
type RepositorySummary struct {
	FullName    string
	Name        string
	Description string
	UpdatedAt   time.Time
}

// Commit is one entry of a repository's commit history.
type Commit struct {
	Hash    string
	Author  string
	Date    time.Time
	Message string
}

// Tag is a git tag and the commit it points at.
// Date is the associated commit date; zero when it could not be resolved.
type Tag struct {
	Name   string
	Commit string
	Date   time.Time
}

// Version identifies what to query the pipeline provider with for a stage.
type Version struct {
	Stage   Stage
	Commit  string
	Tag     string
	Display string
}
