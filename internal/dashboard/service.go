// Package dashboard loads pipelines for a repository stage and turns them
// into outcomes that every presentation layer renders the same way.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/waabox/sekideck/internal/domain"
	"github.com/waabox/sekideck/internal/pipeline"
	"github.com/waabox/sekideck/internal/provider/seki"
	"github.com/waabox/sekideck/internal/resolve"
)

// DefaultTTL is how long fetched data is served without refetching.
const DefaultTTL = 30 * time.Second

const (
	commitTableLimit = 15
	tagTableLimit    = 50
	historyLimit     = 20
)

// HostResolver picks the code host serving a repository.
type HostResolver interface {
	For(repo domain.Repository) (domain.CodeHost, error)
}

// Service orchestrates version resolution, pipeline fetches and view assembly.
// Fetches are shared between concurrent callers and cached for the TTL.
type Service struct {
	provider domain.PipelineProvider
	hosts    HostResolver
	cache    *cache.Cache
	flight   singleflight.Group
	now      func() time.Time
	logger   *slog.Logger

	// mu guards generations. A fetch caches its result only if the
	// generation of its scope did not move while it ran.
	mu          sync.Mutex
	generations map[string]uint64
}

// Option configures a Service.
type Option func(*Service)

// WithTTL sets the freshness window of cached fetches.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cache = cache.New(ttl, 2*ttl)
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger used for fetch diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service.
func NewService(provider domain.PipelineProvider, hosts HostResolver, opts ...Option) *Service {
	s := &Service{
		provider: provider,
		hosts:    hosts,
		cache:    cache.New(DefaultTTL, 2*DefaultTTL),
		now:      time.Now,
		logger:   slog.New(slog.DiscardHandler),

		generations: map[string]uint64{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// anyStage marks cache entries shared by both stages.
const anyStage = "*"

func cacheKey(kind, product, stage, ids string) string {
	return strings.Join([]string{kind, product, stage, ids}, "|")
}

// scopeOf returns the product|stage part of a cache key.
func scopeOf(key string) string {
	parts := strings.SplitN(key, "|", 4)
	if len(parts) < 3 {
		return key
	}
	return parts[1] + "|" + parts[2]
}

func (s *Service) generation(scope string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[scope]
}

// store caches v unless its scope was invalidated since gen was read.
func (s *Service) store(key string, gen uint64, v interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[scopeOf(key)] == gen {
		s.cache.SetDefault(key, v)
	}
}

// cached returns the fresh value under key or fetches it once for every
// concurrent caller. Only successes are cached. A caller whose ctx ends
// stops waiting; the shared fetch still completes and fills the cache.
func cached[T any](ctx context.Context, s *Service, key string, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	if v, ok := s.cache.Get(key); ok {
		return v.(T), nil
	}
	gen := s.generation(scopeOf(key))
	ch := s.flight.DoChan(fmt.Sprintf("%s#%d", key, gen), func() (interface{}, error) {
		s.logger.Debug("fetching", "key", key)
		v, err := fetch(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		s.store(key, gen, v)
		return v, nil
	})
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return zero, r.Err
		}
		return r.Val.(T), nil
	}
}

// Invalidate drops cached data of repo for stage, along with the commit and
// tag history both stages derive from. An empty stage drops everything of repo.
// Fetches already running for those entries are neither joined by later
// callers nor allowed to refill the cache.
func (s *Service) Invalidate(repo domain.Repository, stage domain.Stage) {
	product := repo.FullName()
	stages := []string{string(stage), anyStage}
	if stage == "" {
		stages = []string{string(domain.StageStaging), string(domain.StageProduction), anyStage}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range stages {
		s.generations[product+"|"+st]++
	}
	for key := range s.cache.Items() {
		parts := strings.SplitN(key, "|", 4)
		if len(parts) != 4 || parts[1] != product {
			continue
		}
		if stage == "" || parts[2] == string(stage) || parts[2] == anyStage {
			s.cache.Delete(key)
		}
	}
}

func (s *Service) resolver(repo domain.Repository) (*resolve.Resolver, error) {
	host, err := s.hosts.For(repo)
	if err != nil {
		return nil, err
	}
	return resolve.NewResolver(host), nil
}

func (s *Service) version(ctx context.Context, repo domain.Repository, stage domain.Stage) (domain.Version, error) {
	r, err := s.resolver(repo)
	if err != nil {
		return domain.Version{}, err
	}
	return cached(ctx, s, cacheKey("version", repo.FullName(), string(stage), ""), func(ctx context.Context) (domain.Version, error) {
		return r.Resolve(ctx, repo, stage)
	})
}

// Load resolves the version deployed to stage and loads its pipeline.
// It never returns an error: failures are described by the Outcome.
func (s *Service) Load(ctx context.Context, repo domain.Repository, stage domain.Stage) Outcome {
	out := Outcome{Repository: repo.FullName(), Stage: stage}
	version, err := s.version(ctx, repo, stage)
	if err != nil {
		out.Version = domain.Version{Stage: stage}
		return out.withError(err)
	}
	out.Version = version
	return s.loadPipeline(ctx, out)
}

// LoadByIdentifiers loads the pipeline of an explicit commit, and tag for
// production, skipping version resolution. Used for deep links. A production
// request without a tag is an error wrapping domain.ErrInvalidQuery.
func (s *Service) LoadByIdentifiers(ctx context.Context, repo domain.Repository, stage domain.Stage, commit, tag string) Outcome {
	out := Outcome{
		Repository: repo.FullName(),
		Stage:      stage,
		Version:    domain.Version{Stage: stage, Commit: commit, Tag: tag, Display: pipeline.ShortHash(commit)},
	}
	if tag != "" {
		out.Version.Display = tag
	}
	if commit == "" {
		return out.withError(fmt.Errorf("%s on %s: %w", out.Repository, stage, resolve.ErrNoVersion))
	}
	if stage == domain.StageProduction && tag == "" {
		return out.withError(fmt.Errorf("production pipelines need a tag along with the commit: %w", domain.ErrInvalidQuery))
	}
	return s.loadPipeline(ctx, out)
}

func (s *Service) loadPipeline(ctx context.Context, out Outcome) Outcome {
	v := out.Version
	key := cacheKey("pipeline", out.Repository, string(out.Stage), v.Commit+"@"+v.Tag)
	record, err := cached(ctx, s, key, func(ctx context.Context) (domain.PipelineRecord, error) {
		if v.Tag != "" {
			return s.provider.GetPipelineWithTag(ctx, out.Repository, v.Commit, v.Tag)
		}
		return s.provider.GetPipeline(ctx, out.Repository, v.Commit)
	})
	if err != nil {
		s.logger.Debug("pipeline unavailable", "product", out.Repository, "stage", out.Stage, "err", err)
		return out.withError(err)
	}
	view := pipeline.Assemble(record, out.Stage, s.now())
	out.Kind = OutcomeReady
	out.View = &view
	return out
}

// Latest loads the most recently updated pipeline of stage straight from the
// provider's listing, without consulting the code host.
func (s *Service) Latest(ctx context.Context, repo domain.Repository, stage domain.Stage) Outcome {
	out := Outcome{Repository: repo.FullName(), Stage: stage, Version: domain.Version{Stage: stage}}
	record, err := cached(ctx, s, cacheKey("latest", out.Repository, string(stage), ""), func(ctx context.Context) (domain.PipelineRecord, error) {
		return seki.LatestPipeline(ctx, s.provider, out.Repository, stage, "")
	})
	if err != nil {
		return out.withError(err)
	}
	out.Version.Commit = record.Git.Commit
	out.Version.Display = pipeline.ShortHash(record.Git.Commit)
	if tag, ok := strings.CutPrefix(record.Git.Ref, "refs/tags/"); ok && tag != "" {
		out.Version.Tag = tag
		out.Version.Display = tag
	}
	view := pipeline.Assemble(record, stage, s.now())
	out.Kind = OutcomeReady
	out.View = &view
	return out
}

// Overview loads both stages. Commit and tag history are fetched together,
// then both pipelines are fetched concurrently.
func (s *Service) Overview(ctx context.Context, repo domain.Repository) (staging, production Outcome, err error) {
	r, err := s.resolver(repo)
	if err != nil {
		fail := func(stage domain.Stage) Outcome {
			return Outcome{Repository: repo.FullName(), Stage: stage, Version: domain.Version{Stage: stage}}.withError(err)
		}
		return fail(domain.StageStaging), fail(domain.StageProduction), nil
	}
	product := repo.FullName()
	gens := map[domain.Stage]uint64{
		domain.StageStaging:    s.generation(product + "|" + string(domain.StageStaging)),
		domain.StageProduction: s.generation(product + "|" + string(domain.StageProduction)),
	}
	res, err := r.ResolveAll(ctx, repo)
	if err != nil {
		return Outcome{}, Outcome{}, err
	}

	outcomes := make([]Outcome, 2)
	g, gctx := errgroup.WithContext(ctx)
	for i, stage := range []domain.Stage{domain.StageStaging, domain.StageProduction} {
		version, verr := res.For(stage)
		out := Outcome{Repository: repo.FullName(), Stage: stage, Version: version}
		if verr != nil {
			out.Version.Stage = stage
			outcomes[i] = out.withError(verr)
			continue
		}
		s.store(cacheKey("version", product, string(stage), ""), gens[stage], version)
		g.Go(func() error {
			outcomes[i] = s.loadPipeline(gctx, out)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes[0], outcomes[1], nil
}

// History returns recent pipelines of repo, newest first, each assembled
// for the stage it ran on.
func (s *Service) History(ctx context.Context, repo domain.Repository, limit int) ([]pipeline.ViewModel, error) {
	if limit <= 0 {
		limit = historyLimit
	}
	product := repo.FullName()
	page, err := cached(ctx, s, cacheKey("history", product, anyStage, fmt.Sprint(limit)), func(ctx context.Context) (domain.PipelinePage, error) {
		return s.provider.ListPipelines(ctx, product, domain.ListOptions{
			Limit: limit,
			Sort:  map[string]domain.SortOrder{"updated_at": domain.SortDesc},
		})
	})
	if err != nil {
		return nil, err
	}
	now := s.now()
	views := make([]pipeline.ViewModel, len(page.Items))
	for i, record := range page.Items {
		stage := record.Git.Stage
		if _, perr := domain.ParseStage(string(stage)); perr != nil {
			stage = domain.StageStaging
		}
		views[i] = pipeline.Assemble(record, stage, now)
	}
	return views, nil
}

// Commits returns the newest commits of repo.
func (s *Service) Commits(ctx context.Context, repo domain.Repository, limit int) ([]domain.Commit, error) {
	if limit <= 0 {
		limit = commitTableLimit
	}
	host, err := s.hosts.For(repo)
	if err != nil {
		return nil, err
	}
	return cached(ctx, s, cacheKey("commits", repo.FullName(), anyStage, fmt.Sprint(limit)), func(ctx context.Context) ([]domain.Commit, error) {
		return host.ListCommits(ctx, repo, limit)
	})
}

// Tags returns the first tags of repo in the requested order. Every tag is
// sorted before the list is cut.
func (s *Service) Tags(ctx context.Context, repo domain.Repository, order resolve.TagOrder) ([]domain.Tag, error) {
	host, err := s.hosts.For(repo)
	if err != nil {
		return nil, err
	}
	tags, err := cached(ctx, s, cacheKey("tags", repo.FullName(), anyStage, ""), func(ctx context.Context) ([]domain.Tag, error) {
		return host.ListTags(ctx, repo)
	})
	if err != nil {
		return nil, err
	}
	sorted := resolve.SortTags(tags, order)
	if len(sorted) > tagTableLimit {
		sorted = sorted[:tagTableLimit]
	}
	return sorted, nil
}

// Repositories lists the repositories of org on the default code host.
func (s *Service) Repositories(ctx context.Context, org string) ([]domain.RepositorySummary, error) {
	host, err := s.hosts.For(domain.Repository{Owner: org})
	if err != nil {
		return nil, err
	}
	return cached(ctx, s, cacheKey("repos", org, anyStage, ""), func(ctx context.Context) ([]domain.RepositorySummary, error) {
		return host.ListRepositories(ctx, org)
	})
}

// SearchRepositories searches the repositories of org on the default code host.
func (s *Service) SearchRepositories(ctx context.Context, org, query string) ([]domain.RepositorySummary, error) {
	host, err := s.hosts.For(domain.Repository{Owner: org})
	if err != nil {
		return nil, err
	}
	return host.SearchRepositories(ctx, org, query)
}
