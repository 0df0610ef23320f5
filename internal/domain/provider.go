package domain

import "context"

// PipelineProvider is the read-only port to the pipeline status service.
// Product is the "organization/name" identifier of a repository.
type PipelineProvider interface {
	GetPipeline(ctx context.Context, product, commit string) (PipelineRecord, error)
	GetPipelineWithTag(ctx context.Context, product, commit, tag string) (PipelineRecord, error)
	ListPipelines(ctx context.Context, product string, opts ListOptions) (PipelinePage, error)
}

// CodeHost is the read-only port to the code-hosting platform.
// Commits are returned newest first. ListTags returns every tag in whatever
// order the host lists them; callers sort before truncating.
type CodeHost interface {
	ListCommits(ctx context.Context, repo Repository, limit int) ([]Commit, error)
	ListTags(ctx context.Context, repo Repository) ([]Tag, error)
	ListRepositories(ctx context.Context, org string) ([]RepositorySummary, error)
	SearchRepositories(ctx context.Context, org, query string) ([]RepositorySummary, error)
}

// FavoritesStore persists the user's pinned repositories as an ordered set.
type FavoritesStore interface {
	List(ctx context.Context) ([]string, error)
	Add(ctx context.Context, fullName string) error
	Remove(ctx context.Context, fullName string) error
	// Toggle adds or removes fullName and reports whether it is now a favorite.
	Toggle(ctx context.Context, fullName string) (bool, error)
	Contains(ctx context.Context, fullName string) (bool, error)
}
