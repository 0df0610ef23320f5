package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/waabox/sekideck/internal/domain"
	"github.com/waabox/sekideck/internal/timefmt"
)

const (
	defaultBaseURL = "https://gitlab.com"
	maxPerPage     = 100
	// maxTagPages caps tag listing at 1000 tags.
	maxTagPages = 10
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Adapter implements domain.CodeHost for GitLab.
type Adapter struct {
	token   string
	baseURL string
	client  *http.Client
}

// Ensure Adapter fully implements domain.CodeHost.
var _ domain.CodeHost = (*Adapter)(nil)

// NewAdapter creates a GitLab adapter.
// baseURL can be a self-hosted GitLab instance URL; pass empty string for gitlab.com.
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

func projectID(repo domain.Repository) string {
	return url.PathEscape(repo.Owner + "/" + repo.Name)
}

// ListCommits returns the newest commits of the default branch.
func (a *Adapter) ListCommits(ctx context.Context, repo domain.Repository, limit int) ([]domain.Commit, error) {
	apiURL := fmt.Sprintf("%s/api/v4/projects/%s/repository/commits?per_page=%d", a.baseURL, projectID(repo), perPage(limit))
	var raw []gitLabCommit
	if err := a.get(ctx, apiURL, &raw); err != nil {
		return nil, err
	}
	commits := make([]domain.Commit, len(raw))
	for i, c := range raw {
		commits[i] = c.toCommit()
	}
	return commits, nil
}

// ListTags returns every tag, reading all pages. GitLab embeds the target
// commit so dates come for free.
func (a *Adapter) ListTags(ctx context.Context, repo domain.Repository) ([]domain.Tag, error) {
	tags := []domain.Tag{}
	for page := 1; page <= maxTagPages; page++ {
		apiURL := fmt.Sprintf("%s/api/v4/projects/%s/repository/tags?per_page=%d&page=%d", a.baseURL, projectID(repo), maxPerPage, page)
		var raw []gitLabTag
		if err := a.get(ctx, apiURL, &raw); err != nil {
			return nil, err
		}
		for _, t := range raw {
			c := t.Commit.toCommit()
			tags = append(tags, domain.Tag{Name: t.Name, Commit: c.Hash, Date: c.Date})
		}
		if len(raw) < maxPerPage {
			break
		}
	}
	return tags, nil
}

// ListRepositories returns the projects of a group, including subgroups.
func (a *Adapter) ListRepositories(ctx context.Context, org string) ([]domain.RepositorySummary, error) {
	apiURL := fmt.Sprintf("%s/api/v4/groups/%s/projects?per_page=%d&include_subgroups=true&order_by=last_activity_at",
		a.baseURL, url.PathEscape(org), maxPerPage)
	var raw []gitLabProject
	if err := a.get(ctx, apiURL, &raw); err != nil {
		return nil, err
	}
	return toSummaries(raw), nil
}

// SearchRepositories searches the projects of a group by name.
// Queries shorter than two characters yield domain.ErrInvalidQuery.
func (a *Adapter) SearchRepositories(ctx context.Context, org, query string) ([]domain.RepositorySummary, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < 2 {
		return nil, fmt.Errorf("search %q: %w", query, domain.ErrInvalidQuery)
	}
	apiURL := fmt.Sprintf("%s/api/v4/groups/%s/projects?per_page=%d&include_subgroups=true&search=%s",
		a.baseURL, url.PathEscape(org), maxPerPage, url.QueryEscape(query))
	var raw []gitLabProject
	if err := a.get(ctx, apiURL, &raw); err != nil {
		return nil, err
	}
	return toSummaries(raw), nil
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
		return fmt.Errorf("gitlab API error: %s: %w", resp.Status, domain.ErrUnauthorized)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("gitlab API error: %s: %w", resp.Status, domain.ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("gitlab API error: %s: %w", resp.Status, domain.ErrTransient)
	case resp.StatusCode >= 400:
		return fmt.Errorf("gitlab API error: %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decoding gitlab response: %w", err)
	}
	return nil
}

// gitLabCommit is the raw GitLab API response shape for a commit.
type gitLabCommit struct {
	ID            string `json:"id"`
	AuthorName    string `json:"author_name"`
	CommittedDate string `json:"committed_date"`
	Message       string `json:"message"`
}

func (c gitLabCommit) toCommit() domain.Commit {
	return domain.Commit{
		Hash:    c.ID,
		Author:  c.AuthorName,
		Date:    timefmt.ParseTimestamp(c.CommittedDate),
		Message: c.Message,
	}
}

// gitLabTag is the raw GitLab API response shape for a tag.
type gitLabTag struct {
	Name   string       `json:"name"`
	Commit gitLabCommit `json:"commit"`
}

// gitLabProject is the raw GitLab API response shape for a project.
type gitLabProject struct {
	Name              string `json:"name"`
	PathWithNamespace string `json:"path_with_namespace"`
	Description       string `json:"description"`
	LastActivityAt    string `json:"last_activity_at"`
}

func toSummaries(raw []gitLabProject) []domain.RepositorySummary {
	out := make([]domain.RepositorySummary, len(raw))
	for i, p := range raw {
		out[i] = domain.RepositorySummary{
			FullName:    p.PathWithNamespace,
			Name:        p.Name,
			Description: p.Description,
			UpdatedAt:   timefmt.ParseTimestamp(p.LastActivityAt),
		}
	}
	return out
}
