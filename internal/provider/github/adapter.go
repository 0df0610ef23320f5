package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/sync/errgroup"

	"github.com/waabox/sekideck/internal/domain"
	"github.com/waabox/sekideck/internal/timefmt"
)

const (
	defaultBaseURL = "https://api.github.com"
	// tagDateWorkers bounds concurrent commit lookups when dating tags.
	tagDateWorkers = 4
	maxPerPage     = 100
	// maxTagPages caps tag listing at 1000 tags.
	maxTagPages = 10
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Adapter implements domain.CodeHost for GitHub.
type Adapter struct {
	token   string
	baseURL string
	client  *http.Client
}

// Ensure Adapter fully implements domain.CodeHost.
var _ domain.CodeHost = (*Adapter)(nil)

// NewAdapter creates a GitHub adapter.
// baseURL is used for testing and GitHub Enterprise; pass empty string for api.github.com.
func NewAdapter(token string, baseURL string) *Adapter {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Adapter{
		token:   token,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// ListCommits returns the newest commits of the default branch.
func (a *Adapter) ListCommits(ctx context.Context, repo domain.Repository, limit int) ([]domain.Commit, error) {
	apiURL := fmt.Sprintf("%s/repos/%s/%s/commits?per_page=%d", a.baseURL, repo.Owner, repo.Name, perPage(limit))
	var raw []commitItem
	if err := a.get(ctx, apiURL, &raw); err != nil {
		return nil, err
	}
	commits := make([]domain.Commit, len(raw))
	for i, c := range raw {
		commits[i] = c.toCommit()
	}
	return commits, nil
}

// ListTags returns every tag with the date of the commit it points at.
// GitHub lists tags by name and without dates, so all pages are read and
// each distinct commit is looked up once. A failed lookup leaves its tags
// undated rather than failing the list.
func (a *Adapter) ListTags(ctx context.Context, repo domain.Repository) ([]domain.Tag, error) {
	tags := []domain.Tag{}
	for page := 1; page <= maxTagPages; page++ {
		apiURL := fmt.Sprintf("%s/repos/%s/%s/tags?per_page=%d&page=%d", a.baseURL, repo.Owner, repo.Name, maxPerPage, page)
		var raw []tagItem
		if err := a.get(ctx, apiURL, &raw); err != nil {
			return nil, err
		}
		for _, t := range raw {
			tags = append(tags, domain.Tag{Name: t.Name, Commit: t.Commit.SHA})
		}
		if len(raw) < maxPerPage {
			break
		}
	}

	seen := make(map[string]bool, len(tags))
	var commits []string
	for _, t := range tags {
		if t.Commit != "" && !seen[t.Commit] {
			seen[t.Commit] = true
			commits = append(commits, t.Commit)
		}
	}
	dates := make([]time.Time, len(commits))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(tagDateWorkers)
	for i, sha := range commits {
		g.Go(func() error {
			commitURL := fmt.Sprintf("%s/repos/%s/%s/commits/%s", a.baseURL, repo.Owner, repo.Name, sha)
			var c commitItem
			if err := a.get(gctx, commitURL, &c); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				return nil
			}
			dates[i] = c.toCommit().Date
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	byCommit := make(map[string]time.Time, len(commits))
	for i, sha := range commits {
		byCommit[sha] = dates[i]
	}
	for i := range tags {
		tags[i].Date = byCommit[tags[i].Commit]
	}
	return tags, nil
}

// ListRepositories returns the repositories of an organization, most recently updated first.
func (a *Adapter) ListRepositories(ctx context.Context, org string) ([]domain.RepositorySummary, error) {
	apiURL := fmt.Sprintf("%s/orgs/%s/repos?per_page=%d&sort=updated", a.baseURL, url.PathEscape(org), maxPerPage)
	var raw []repoItem
	if err := a.get(ctx, apiURL, &raw); err != nil {
		return nil, err
	}
	return toSummaries(raw), nil
}

// SearchRepositories searches repositories of an organization by name.
// Queries shorter than two characters yield domain.ErrInvalidQuery.
func (a *Adapter) SearchRepositories(ctx context.Context, org, query string) ([]domain.RepositorySummary, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < 2 {
		return nil, fmt.Errorf("search %q: %w", query, domain.ErrInvalidQuery)
	}
	q := url.QueryEscape(query + " org:" + org)
	apiURL := fmt.Sprintf("%s/search/repositories?q=%s&per_page=%d", a.baseURL, q, maxPerPage)
	var raw struct {
		Items []repoItem `json:"items"`
	}
	if err := a.get(ctx, apiURL, &raw); err != nil {
		return nil, err
	}
	return toSummaries(raw.Items), nil
}

func perPage(limit int) int {
	if limit <= 0 || limit > maxPerPage {
		return maxPerPage
	}
	return limit
}

func (a *Adapter) get(ctx context.Context, apiURL string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := a.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("executing request: %w", ctx.Err())
		}
		return fmt.Errorf("executing request: %v: %w", err, domain.ErrTransient)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("github API error: %s: %w", resp.Status, domain.ErrUnauthorized)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("github API error: %s: %w", resp.Status, domain.ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("github API error: %s: %w", resp.Status, domain.ErrTransient)
	case resp.StatusCode >= 400:
		return fmt.Errorf("github API error: %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decoding github response: %w", err)
	}
	return nil
}

// commitItem is the raw GitHub API response shape for a commit.
type commitItem struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message string `json:"message"`
		Author  struct {
			Name string `json:"name"`
			Date string `json:"date"`
		} `json:"author"`
		Committer struct {
			Date string `json:"date"`
		} `json:"committer"`
	} `json:"commit"`
}

func (c commitItem) toCommit() domain.Commit {
	date := timefmt.ParseTimestamp(c.Commit.Committer.Date)
	if date.IsZero() {
		date = timefmt.ParseTimestamp(c.Commit.Author.Date)
	}
	return domain.Commit{
		Hash:    c.SHA,
		Author:  c.Commit.Author.Name,
		Date:    date,
		Message: c.Commit.Message,
	}
}

// tagItem is the raw GitHub API response shape for a tag.
type tagItem struct {
	Name   string `json:"name"`
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

// repoItem is the raw GitHub API response shape for a repository.
type repoItem struct {
	Name        string `json:"name"`
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	UpdatedAt   string `json:"updated_at"`
}

func toSummaries(raw []repoItem) []domain.RepositorySummary {
	out := make([]domain.RepositorySummary, len(raw))
	for i, r := range raw {
		out[i] = domain.RepositorySummary{
			FullName:    r.FullName,
			Name:        r.Name,
			Description: r.Description,
			UpdatedAt:   timefmt.ParseTimestamp(r.UpdatedAt),
		}
	}
	return out
}
