package provider

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/waabox/sekideck/internal/domain"
)

// DefaultAttempts is the total number of tries, first call included.
const DefaultAttempts = 2

const defaultBackoff = 250 * time.Millisecond

// RetryPolicy bounds how transient failures are retried.
// Only errors wrapping domain.ErrTransient are retried; everything else,
// not-found and unauthorized included, is returned on the first try.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
	Logger   *slog.Logger
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.Attempts < 1 {
		p.Attempts = DefaultAttempts
	}
	if p.Backoff <= 0 {
		p.Backoff = defaultBackoff
	}
	if p.Logger == nil {
		p.Logger = slog.New(slog.DiscardHandler)
	}
	return p
}

// backoff converts the policy to a wait.Backoff whose steps are the attempts.
func (p RetryPolicy) backoff() wait.Backoff {
	return wait.Backoff{
		Steps:    p.Attempts,
		Duration: p.Backoff,
		Factor:   2.0,
		Jitter:   0.1,
	}
}

// retry runs fn until it succeeds, fails permanently or attempts run out.
// The wait doubles after each try and is cut short by ctx. When attempts run
// out the last transient error is returned.
func retry[T any](ctx context.Context, p RetryPolicy, op string, fn func() (T, error)) (T, error) {
	var (
		result  T
		lastErr error
		attempt int
	)
	err := wait.ExponentialBackoffWithContext(ctx, p.backoff(), func(context.Context) (bool, error) {
		attempt++
		v, err := fn()
		switch {
		case err == nil:
			result = v
			return true, nil
		case errors.Is(err, domain.ErrTransient):
			lastErr = err
			if attempt < p.Attempts {
				p.Logger.Debug("retrying transient failure", "op", op, "attempt", attempt, "err", err)
			}
			return false, nil
		default:
			return false, err
		}
	})
	switch {
	case err == nil:
		return result, nil
	case ctx.Err() != nil:
		var zero T
		return zero, ctx.Err()
	case wait.Interrupted(err) && lastErr != nil:
		var zero T
		return zero, lastErr
	default:
		var zero T
		return zero, err
	}
}

// RetryingProvider wraps a PipelineProvider and retries transient failures.
type RetryingProvider struct {
	inner  domain.PipelineProvider
	policy RetryPolicy
}

// Ensure RetryingProvider implements PipelineProvider.
var _ domain.PipelineProvider = (*RetryingProvider)(nil)

// NewRetryingProvider creates a RetryingProvider.
func NewRetryingProvider(inner domain.PipelineProvider, policy RetryPolicy) *RetryingProvider {
	return &RetryingProvider{inner: inner, policy: policy.normalized()}
}

func (rp *RetryingProvider) GetPipeline(ctx context.Context, product, commit string) (domain.PipelineRecord, error) {
	return retry(ctx, rp.policy, "get_pipeline", func() (domain.PipelineRecord, error) {
		return rp.inner.GetPipeline(ctx, product, commit)
	})
}

func (rp *RetryingProvider) GetPipelineWithTag(ctx context.Context, product, commit, tag string) (domain.PipelineRecord, error) {
	return retry(ctx, rp.policy, "get_pipeline_with_tag", func() (domain.PipelineRecord, error) {
		return rp.inner.GetPipelineWithTag(ctx, product, commit, tag)
	})
}

func (rp *RetryingProvider) ListPipelines(ctx context.Context, product string, opts domain.ListOptions) (domain.PipelinePage, error) {
	return retry(ctx, rp.policy, "list_pipelines", func() (domain.PipelinePage, error) {
		return rp.inner.ListPipelines(ctx, product, opts)
	})
}

// RetryingCodeHost wraps a CodeHost and retries transient failures.
type RetryingCodeHost struct {
	inner  domain.CodeHost
	policy RetryPolicy
}

// Ensure RetryingCodeHost implements CodeHost.
var _ domain.CodeHost = (*RetryingCodeHost)(nil)

// NewRetryingCodeHost creates a RetryingCodeHost.
func NewRetryingCodeHost(inner domain.CodeHost, policy RetryPolicy) *RetryingCodeHost {
	return &RetryingCodeHost{inner: inner, policy: policy.normalized()}
}

func (rh *RetryingCodeHost) ListCommits(ctx context.Context, repo domain.Repository, limit int) ([]domain.Commit, error) {
	return retry(ctx, rh.policy, "list_commits", func() ([]domain.Commit, error) {
		return rh.inner.ListCommits(ctx, repo, limit)
	})
}

func (rh *RetryingCodeHost) ListTags(ctx context.Context, repo domain.Repository) ([]domain.Tag, error) {
	return retry(ctx, rh.policy, "list_tags", func() ([]domain.Tag, error) {
		return rh.inner.ListTags(ctx, repo)
	})
}

func (rh *RetryingCodeHost) ListRepositories(ctx context.Context, org string) ([]domain.RepositorySummary, error) {
	return retry(ctx, rh.policy, "list_repositories", func() ([]domain.RepositorySummary, error) {
		return rh.inner.ListRepositories(ctx, org)
	})
}

func (rh *RetryingCodeHost) SearchRepositories(ctx context.Context, org, query string) ([]domain.RepositorySummary, error) {
	return retry(ctx, rh.policy, "search_repositories", func() ([]domain.RepositorySummary, error) {
		return rh.inner.SearchRepositories(ctx, org, query)
	})
}
