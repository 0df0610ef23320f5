package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/waabox/sekideck/internal/config"
	"github.com/waabox/sekideck/internal/dashboard"
	"github.com/waabox/sekideck/internal/domain"
	"github.com/waabox/sekideck/internal/favorites"
	"github.com/waabox/sekideck/internal/git"
	"github.com/waabox/sekideck/internal/logging"
	"github.com/waabox/sekideck/internal/provider"
	githubprovider "github.com/waabox/sekideck/internal/provider/github"
	gitlabprovider "github.com/waabox/sekideck/internal/provider/gitlab"
	"github.com/waabox/sekideck/internal/provider/localgit"
	"github.com/waabox/sekideck/internal/provider/seki"
	"github.com/waabox/sekideck/internal/resolve"
	"github.com/waabox/sekideck/internal/server"
	"github.com/waabox/sekideck/internal/tui"
)

// commandTimeout bounds one-shot commands such as view and tags.
const commandTimeout = 60 * time.Second

// app holds what every command needs once config is loaded.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	out     io.Writer
	closers []io.Closer
}

// newApp builds the logger. The TUI owns the terminal, so it logs to a file
// next to the config instead of stderr.
func newApp(cfg config.Config, out io.Writer, interactive bool) (*app, error) {
	level, err := logging.ParseLevel(cfg.LogLevelOrDefault())
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, out: out}
	var w io.Writer = os.Stderr
	if interactive {
		w = io.Discard
		logPath := filepath.Join(filepath.Dir(config.DefaultConfigPath()), "sekideck.log")
		if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err == nil {
			if f, ferr := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600); ferr == nil {
				w = f
				a.closers = append(a.closers, f)
			}
		}
	}
	a.logger = logging.New(level, w)
	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
}

func (a *app) retryPolicy() provider.RetryPolicy {
	return provider.RetryPolicy{
		Attempts: a.cfg.AttemptsOrDefault(),
		Logger:   logging.Component(a.logger, "retry"),
	}
}

// codeHosts registers every configured code host. Repositories named on the
// command line carry no remote URL and resolve to the configured default.
func (a *app) codeHosts() *provider.Registry {
	policy := a.retryPolicy()
	registry := provider.NewRegistry()

	gh := provider.NewRetryingCodeHost(githubprovider.NewAdapter(a.cfg.GitHub.Token, a.cfg.GitHub.URL), policy)
	registry.Register(hostOf(a.cfg.GitHub.URL, "github.com"), gh)

	gl := provider.NewRetryingCodeHost(gitlabprovider.NewAdapter(a.cfg.GitLab.Token, a.cfg.GitLab.URL), policy)
	registry.Register(hostOf(a.cfg.GitLab.URL, "gitlab.com"), gl)

	var local domain.CodeHost
	if a.cfg.Local.Root != "" {
		local = localgit.NewHost(a.cfg.Local.Root)
	}

	switch a.cfg.HostOrDefault() {
	case "gitlab":
		registry.SetFallback(gl)
	case "local":
		registry.SetFallback(local)
	default:
		registry.SetFallback(gh)
	}
	return registry
}

// hostOf returns the host of a configured API URL, or def when unset.
// api.github.com style hosts are reduced to the host that appears in remotes.
func hostOf(rawURL, def string) string {
	if rawURL == "" {
		return def
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return def
	}
	if h, ok := strings.CutPrefix(u.Hostname(), "api."); ok {
		return h
	}
	return u.Hostname()
}

// service builds the dashboard. withPipelines requires the pipeline status
// API to be configured; commands that only read the code host skip it.
func (a *app) service(withPipelines bool) (*dashboard.Service, error) {
	var pipelines domain.PipelineProvider
	if withPipelines {
		if err := a.cfg.RequireProvider(); err != nil {
			return nil, err
		}
		pipelines = provider.NewRetryingProvider(seki.NewAdapter(a.cfg.Seki.URL, a.cfg.Seki.Token), a.retryPolicy())
	}
	return dashboard.NewService(pipelines, a.codeHosts(),
		dashboard.WithTTL(a.cfg.CacheTTLOrDefault()),
		dashboard.WithLogger(logging.Component(a.logger, "dashboard")),
	), nil
}

func (a *app) favorites() (*favorites.SQLiteStore, error) {
	path := a.cfg.FavoritesDBOrDefault()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating favorites directory: %w", err)
	}
	store, err := favorites.OpenSQLite(path, favorites.DefaultSet)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store)
	return store, nil
}

// repository parses org/name, or detects it from the current directory when raw is empty.
func repository(raw string) (domain.Repository, error) {
	if raw != "" {
		return domain.ParseFullName(raw)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return domain.Repository{}, fmt.Errorf("getting current directory: %w", err)
	}
	return git.DetectRepository(cwd)
}

func (a *app) runTUI(cmd tuiCmd) error {
	repo, err := repository(cmd.Repo)
	if err != nil {
		if cmd.Repo != "" {
			return err
		}
		a.logger.Info("no repository detected, opening favorites", "err", err)
		repo = domain.Repository{}
	}
	svc, err := a.service(true)
	if err != nil {
		return err
	}
	store, err := a.favorites()
	if err != nil {
		return err
	}
	return tui.Run(svc, store, repo, logging.Component(a.logger, "tui"))
}

func (a *app) runServe(cmd serveCmd) error {
	svc, err := a.service(true)
	if err != nil {
		return err
	}
	store, err := a.favorites()
	if err != nil {
		return err
	}
	addr := cmd.Addr
	if addr == "" {
		addr = a.cfg.AddrOrDefault()
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	srv := server.New(svc, store, logging.Component(a.logger, "server"), a.cfg.Org)
	return srv.ListenAndServe(ctx, addr)
}

func (a *app) runView(cmd viewCmd) error {
	repo, err := domain.ParseFullName(cmd.Repo)
	if err != nil {
		return err
	}
	svc, err := a.service(true)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var outcomes []dashboard.Outcome
	if cmd.Stage == "both" {
		if cmd.Latest {
			outcomes = []dashboard.Outcome{
				svc.Latest(ctx, repo, domain.StageStaging),
				svc.Latest(ctx, repo, domain.StageProduction),
			}
		} else {
			staging, production, err := svc.Overview(ctx, repo)
			if err != nil {
				return err
			}
			outcomes = []dashboard.Outcome{staging, production}
		}
	} else {
		stage, err := domain.ParseStage(cmd.Stage)
		if err != nil {
			return err
		}
		if cmd.Latest {
			outcomes = []dashboard.Outcome{svc.Latest(ctx, repo, stage)}
		} else {
			outcomes = []dashboard.Outcome{svc.Load(ctx, repo, stage)}
		}
	}
	return writeOutcomes(a.out, cmd.Output, outcomes)
}

func (a *app) runTags(cmd tagsCmd) error {
	repo, err := domain.ParseFullName(cmd.Repo)
	if err != nil {
		return err
	}
	order, err := resolve.ParseTagOrder(cmd.Order)
	if err != nil {
		return err
	}
	svc, err := a.service(false)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	tags, err := svc.Tags(ctx, repo, order)
	if err != nil {
		return err
	}
	writeTagsTable(a.out, tags, time.Now())
	return nil
}

func (a *app) runHistory(cmd historyCmd) error {
	repo, err := domain.ParseFullName(cmd.Repo)
	if err != nil {
		return err
	}
	svc, err := a.service(true)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	views, err := svc.History(ctx, repo, cmd.Limit)
	if err != nil {
		return err
	}
	writeHistoryTable(a.out, views)
	return nil
}

func (a *app) runFavoritesList() error {
	store, err := a.favorites()
	if err != nil {
		return err
	}
	names, err := store.List(context.Background())
	if err != nil {
		return err
	}
	writeFavoritesTable(a.out, names)
	return nil
}

func (a *app) runFavoritesAdd(name string) error {
	store, err := a.favorites()
	if err != nil {
		return err
	}
	if err := store.Add(context.Background(), name); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "★ %s pinned\n", name)
	return nil
}

func (a *app) runFavoritesRemove(name string) error {
	store, err := a.favorites()
	if err != nil {
		return err
	}
	if err := store.Remove(context.Background(), name); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s unpinned\n", name)
	return nil
}

func (a *app) runFavoritesToggle(name string) error {
	store, err := a.favorites()
	if err != nil {
		return err
	}
	pinned, err := store.Toggle(context.Background(), name)
	if err != nil {
		return err
	}
	if pinned {
		fmt.Fprintf(a.out, "★ %s pinned\n", name)
	} else {
		fmt.Fprintf(a.out, "%s unpinned\n", name)
	}
	return nil
}
