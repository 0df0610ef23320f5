// Package localgit serves commits, tags and repository listings from local
// clones laid out as <root>/<org>/<name>.
package localgit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"github.com/waabox/sekideck/internal/domain"
)

// Host implements domain.CodeHost over a directory of local clones.
type Host struct {
	root string
}

// Ensure Host fully implements domain.CodeHost.
var _ domain.CodeHost = (*Host)(nil)

// NewHost creates a Host reading clones under root.
func NewHost(root string) *Host {
	return &Host{root: root}
}

func (h *Host) open(repo domain.Repository) (*gogit.Repository, error) {
	dir := filepath.Join(h.root, filepath.FromSlash(repo.Owner), repo.Name)
	r, err := gogit.PlainOpen(dir)
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("no local clone of %s: %w", repo.FullName(), domain.ErrNotFound)
		}
		return nil, fmt.Errorf("opening %s: %w", dir, err)
	}
	return r, nil
}

// ListCommits walks the HEAD history, newest first.
// A clone without commits yields an empty list.
func (h *Host) ListCommits(ctx context.Context, repo domain.Repository, limit int) ([]domain.Commit, error) {
	r, err := h.open(repo)
	if err != nil {
		return nil, err
	}
	head, err := r.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return []domain.Commit{}, nil
		}
		return nil, fmt.Errorf("reading HEAD of %s: %w", repo.FullName(), err)
	}
	iter, err := r.Log(&gogit.LogOptions{From: head.Hash(), Order: gogit.LogOrderCommitterTime})
	if err != nil {
		return nil, fmt.Errorf("reading log of %s: %w", repo.FullName(), err)
	}
	defer iter.Close()

	commits := []domain.Commit{}
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if limit > 0 && len(commits) >= limit {
			return storer.ErrStop
		}
		commits = append(commits, toCommit(c))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return commits, nil
}

// ListTags returns every lightweight and annotated tag peeled to its commit,
// in reference order.
func (h *Host) ListTags(ctx context.Context, repo domain.Repository) ([]domain.Tag, error) {
	r, err := h.open(repo)
	if err != nil {
		return nil, err
	}
	iter, err := r.Tags()
	if err != nil {
		return nil, fmt.Errorf("reading tags of %s: %w", repo.FullName(), err)
	}
	defer iter.Close()

	tags := []domain.Tag{}
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		c, err := peel(r, ref.Hash())
		if err != nil {
			// tags pointing at trees or blobs have no commit to show
			return nil
		}
		tags = append(tags, domain.Tag{
			Name:   ref.Name().Short(),
			Commit: c.Hash.String(),
			Date:   c.Committer.When,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}

func peel(r *gogit.Repository, h plumbing.Hash) (*object.Commit, error) {
	tag, err := r.TagObject(h)
	switch {
	case err == nil:
		return tag.Commit()
	case errors.Is(err, plumbing.ErrObjectNotFound):
		return r.CommitObject(h)
	default:
		return nil, err
	}
}

// ListRepositories lists the clones under <root>/<org>, most recently committed first.
func (h *Host) ListRepositories(ctx context.Context, org string) ([]domain.RepositorySummary, error) {
	orgDir := filepath.Join(h.root, filepath.FromSlash(org))
	entries, err := os.ReadDir(orgDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no local organization %s: %w", org, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("reading %s: %w", orgDir, err)
	}

	repos := []domain.RepositorySummary{}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !e.IsDir() {
			continue
		}
		r, err := gogit.PlainOpen(filepath.Join(orgDir, e.Name()))
		if err != nil {
			continue
		}
		summary := domain.RepositorySummary{FullName: org + "/" + e.Name(), Name: e.Name()}
		if head, err := r.Head(); err == nil {
			if c, err := r.CommitObject(head.Hash()); err == nil {
				summary.UpdatedAt = c.Committer.When
			}
		}
		repos = append(repos, summary)
	}
	sort.SliceStable(repos, func(i, j int) bool {
		return repos[i].UpdatedAt.After(repos[j].UpdatedAt)
	})
	return repos, nil
}

// SearchRepositories filters ListRepositories by case-insensitive name substring.
// Queries shorter than two characters yield domain.ErrInvalidQuery.
func (h *Host) SearchRepositories(ctx context.Context, org, query string) ([]domain.RepositorySummary, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if len([]rune(query)) < 2 {
		return nil, fmt.Errorf("search %q: %w", query, domain.ErrInvalidQuery)
	}
	all, err := h.ListRepositories(ctx, org)
	if err != nil {
		return nil, err
	}
	matches := []domain.RepositorySummary{}
	for _, r := range all {
		if strings.Contains(strings.ToLower(r.Name), query) {
			matches = append(matches, r)
		}
	}
	return matches, nil
}

func toCommit(c *object.Commit) domain.Commit {
	return domain.Commit{
		Hash:    c.Hash.String(),
		Author:  c.Author.Name,
		Date:    c.Committer.When,
		Message: c.Message,
	}
}
