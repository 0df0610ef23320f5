package resolve

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/waabox/sekideck/internal/domain"
)

// TagOrder selects how tags are ranked when looking for the newest one.
type TagOrder string

const (
	// ByCommitDate ranks tags by the date of the commit they point at,
	// newest first. It is the canonical order: it matches what was deployed last.
	ByCommitDate TagOrder = "date"
	// BySemver ranks tags by vMAJOR.MINOR.PATCH, highest first. Tags without
	// a version rank as 0.0.0. Used by tag history tables.
	BySemver TagOrder = "semver"
)

// ParseTagOrder parses a tag order name. Empty selects ByCommitDate.
func ParseTagOrder(raw string) (TagOrder, error) {
	switch TagOrder(raw) {
	case "", ByCommitDate:
		return ByCommitDate, nil
	case BySemver:
		return BySemver, nil
	}
	return "", fmt.Errorf("unknown tag order %q: want date or semver", raw)
}

var versionCore = regexp.MustCompile(`v?(\d+)\.(\d+)\.(\d+)`)

// semverKey returns a canonical "vX.Y.Z" for the first version found in name.
// Components keep every digit, so huge numbers still order correctly.
func semverKey(name string) string {
	m := versionCore.FindStringSubmatch(name)
	if m == nil {
		return "v0.0.0"
	}
	parts := make([]string, 3)
	for i := range parts {
		parts[i] = strings.TrimLeft(m[i+1], "0")
		if parts[i] == "" {
			parts[i] = "0"
		}
	}
	return "v" + strings.Join(parts, ".")
}

// SortTags returns a copy of tags in the given order. Ties keep input order.
func SortTags(tags []domain.Tag, order TagOrder) []domain.Tag {
	out := make([]domain.Tag, len(tags))
	copy(out, tags)
	switch order {
	case BySemver:
		keys := make(map[string]string, len(out))
		for _, t := range out {
			keys[t.Name] = semverKey(t.Name)
		}
		sort.SliceStable(out, func(i, j int) bool {
			return semver.Compare(keys[out[i].Name], keys[out[j].Name]) > 0
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Date.After(out[j].Date)
		})
	}
	return out
}

// LatestTag returns the first tag in the given order.
func LatestTag(tags []domain.Tag, order TagOrder) (domain.Tag, bool) {
	if len(tags) == 0 {
		return domain.Tag{}, false
	}
	return SortTags(tags, order)[0], true
}

// LatestCommit returns the newest commit. Commits arrive newest first.
func LatestCommit(commits []domain.Commit) (domain.Commit, bool) {
	if len(commits) == 0 {
		return domain.Commit{}, false
	}
	return commits[0], true
}
