// Package resolve decides which commit or tag identifies what a stage runs.
package resolve

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/waabox/sekideck/internal/domain"
	"github.com/waabox/sekideck/internal/pipeline"
)

// ErrNoVersion is returned when a stage has nothing deployable: no commits
// for staging or no tags for production. It wraps domain.ErrNotFound.
var ErrNoVersion = fmt.Errorf("no version available: %w", domain.ErrNotFound)

const defaultCommitLimit = 15

// StagingVersion identifies staging by the newest commit.
func StagingVersion(commits []domain.Commit) (domain.Version, error) {
	c, ok := LatestCommit(commits)
	if !ok || c.Hash == "" {
		return domain.Version{Stage: domain.StageStaging}, ErrNoVersion
	}
	return domain.Version{
		Stage:   domain.StageStaging,
		Commit:  c.Hash,
		Display: pipeline.ShortHash(c.Hash),
	}, nil
}

// ProductionVersion identifies production by the newest tag by commit date.
// The provider needs the tag's full commit hash and its name together.
func ProductionVersion(tags []domain.Tag) (domain.Version, error) {
	t, ok := LatestTag(tags, ByCommitDate)
	if !ok || t.Name == "" {
		return domain.Version{Stage: domain.StageProduction}, ErrNoVersion
	}
	return domain.Version{
		Stage:   domain.StageProduction,
		Commit:  t.Commit,
		Tag:     t.Name,
		Display: t.Name,
	}, nil
}

// Resolver resolves stage versions against a code host.
type Resolver struct {
	host        domain.CodeHost
	commitLimit int
}

// NewResolver creates a Resolver backed by host.
func NewResolver(host domain.CodeHost) *Resolver {
	return &Resolver{host: host, commitLimit: defaultCommitLimit}
}

// Resolve returns the version identifying stage for repo.
func (r *Resolver) Resolve(ctx context.Context, repo domain.Repository, stage domain.Stage) (domain.Version, error) {
	if stage == domain.StageProduction {
		tags, err := r.host.ListTags(ctx, repo)
		if err != nil {
			return domain.Version{Stage: stage}, fmt.Errorf("listing tags of %s: %w", repo.FullName(), err)
		}
		return ProductionVersion(tags)
	}
	commits, err := r.host.ListCommits(ctx, repo, r.commitLimit)
	if err != nil {
		return domain.Version{Stage: stage}, fmt.Errorf("listing commits of %s: %w", repo.FullName(), err)
	}
	return StagingVersion(commits)
}

// Resolution holds both stage versions of a repository. Each stage carries
// its own error so one missing history does not hide the other.
type Resolution struct {
	Staging       domain.Version
	StagingErr    error
	Production    domain.Version
	ProductionErr error
}

// For returns the version and error of one stage.
func (res Resolution) For(stage domain.Stage) (domain.Version, error) {
	if stage == domain.StageProduction {
		return res.Production, res.ProductionErr
	}
	return res.Staging, res.StagingErr
}

// ResolveAll fetches commit and tag history concurrently and resolves both
// stages once both fetches have finished. Only context cancellation fails
// the whole call.
func (r *Resolver) ResolveAll(ctx context.Context, repo domain.Repository) (Resolution, error) {
	var res Resolution
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res.Staging, res.StagingErr = r.Resolve(gctx, repo, domain.StageStaging)
		return cancelled(res.StagingErr)
	})
	g.Go(func() error {
		res.Production, res.ProductionErr = r.Resolve(gctx, repo, domain.StageProduction)
		return cancelled(res.ProductionErr)
	})
	if err := g.Wait(); err != nil {
		return Resolution{}, err
	}
	return res, nil
}

func cancelled(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
