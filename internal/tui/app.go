package tui

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/waabox/sekideck/internal/dashboard"
	"github.com/waabox/sekideck/internal/domain"
	"github.com/waabox/sekideck/internal/pipeline"
)

// loadTimeout bounds one stage load, retries included.
const loadTimeout = 30 * time.Second

// Loader loads the pipeline of one stage. *dashboard.Service satisfies it.
type Loader interface {
	Load(ctx context.Context, repo domain.Repository, stage domain.Stage) dashboard.Outcome
	Invalidate(repo domain.Repository, stage domain.Stage)
}

// OutcomeLoadedMsg is sent when a stage load finishes.
// It is exported so that tests can inject it directly into AppModel.Update.
type OutcomeLoadedMsg struct {
	Ticket  dashboard.Ticket
	Outcome dashboard.Outcome
}

// FavoritesLoadedMsg is sent when the favorites list has been read.
type FavoritesLoadedMsg struct {
	Repos []string
	Err   error
}

// FavoriteStateMsg reports whether a repository is currently a favorite.
type FavoriteStateMsg struct {
	Repo     string
	Favorite bool
	Err      error
}

// viewState indicates the current navigation level.
type viewState int

const (
	viewFavorites viewState = iota
	viewStage
	viewEvents
	viewSubEvents
)

// AppModel is the root Bubbletea model for sekideck.
type AppModel struct {
	loader    Loader
	favorites domain.FavoritesStore
	guard     *dashboard.Guard
	logger    *slog.Logger
	// Navigation
	view viewState
	// Favorites level
	favList FavoriteListModel
	// Stage level
	repo       domain.Repository
	stage      domain.Stage
	outcome    dashboard.Outcome
	hasOutcome bool
	isFavorite bool
	// Event level
	events        EventListModel
	selectedEvent pipeline.EventView
	// Sub-event level
	subs SubEventListModel
	// General state
	loading bool
	cancel  context.CancelFunc
	spinner spinner.Model
	err     error
	width   int
	height  int
}

// NewAppModel creates the root application model. A zero repo starts on the
// favorites screen; otherwise the staging stage of repo is opened directly.
func NewAppModel(loader Loader, favorites domain.FavoritesStore, repo domain.Repository, logger *slog.Logger) AppModel {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	m := AppModel{
		loader:    loader,
		favorites: favorites,
		guard:     &dashboard.Guard{},
		logger:    logger,
		favList:   NewFavoriteListModel(nil),
		repo:      repo,
		stage:     domain.StageStaging,
		spinner:   s,
	}
	if repo.Name != "" {
		m.view = viewStage
	}
	return m
}

// Init loads the favorites and, when a repository was given, its staging stage.
func (m AppModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadFavorites()}
	if m.view == viewStage {
		// Init cannot hand back a modified model, so the first load goes
		// through the same message path as a key press.
		cmds = append(cmds, func() tea.Msg { return openRepoMsg{repo: m.repo} })
	}
	return tea.Batch(cmds...)
}

// openRepoMsg asks the model to open the staging stage of repo.
type openRepoMsg struct {
	repo domain.Repository
}

func (m AppModel) loadFavorites() tea.Cmd {
	store := m.favorites
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		repos, err := store.List(ctx)
		return FavoritesLoadedMsg{Repos: repos, Err: err}
	}
}

func (m AppModel) checkFavorite(repo domain.Repository) tea.Cmd {
	store := m.favorites
	name := repo.FullName()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		fav, err := store.Contains(ctx, name)
		return FavoriteStateMsg{Repo: name, Favorite: fav, Err: err}
	}
}

func (m AppModel) toggleFavorite(repo domain.Repository) tea.Cmd {
	store := m.favorites
	name := repo.FullName()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		fav, err := store.Toggle(ctx, name)
		return FavoriteStateMsg{Repo: name, Favorite: fav, Err: err}
	}
}

func loadKey(repo domain.Repository, stage domain.Stage) string {
	return repo.FullName() + "|" + string(stage)
}

// startLoad supersedes any pending load and fetches the current stage.
func (m AppModel) startLoad() (AppModel, tea.Cmd) {
	if m.cancel != nil {
		m.cancel()
	}
	ticket := m.guard.Begin(loadKey(m.repo, m.stage))
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	m.cancel = cancel
	m.loading = true
	m.hasOutcome = false
	m.err = nil

	loader, repo, stage := m.loader, m.repo, m.stage
	m.logger.Debug("loading stage", "repo", repo.FullName(), "stage", stage)
	load := func() tea.Msg {
		defer cancel()
		return OutcomeLoadedMsg{Ticket: ticket, Outcome: loader.Load(ctx, repo, stage)}
	}
	return m, tea.Batch(load, m.spinner.Tick)
}

// Update handles all incoming messages and key events.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case openRepoMsg:
		return m.openRepo(msg.repo)

	case OutcomeLoadedMsg:
		if !m.guard.Current(msg.Ticket) {
			m.logger.Debug("dropping stale outcome", "key", msg.Ticket.Key)
			return m, nil
		}
		m.loading = false
		m.outcome = msg.Outcome
		m.hasOutcome = true
		if msg.Outcome.Ready() {
			m.events = NewEventListModel(msg.Outcome.View.Events)
		} else {
			m.events = NewEventListModel(nil)
			if m.view == viewEvents || m.view == viewSubEvents {
				m.view = viewStage
			}
		}

	case FavoritesLoadedMsg:
		if msg.Err != nil {
			m.err = fmt.Errorf("load favorites: %w", msg.Err)
			return m, nil
		}
		m.favList = m.favList.WithRepos(msg.Repos)

	case FavoriteStateMsg:
		if msg.Err != nil {
			m.err = fmt.Errorf("favorites: %w", msg.Err)
			return m, nil
		}
		if msg.Repo == m.repo.FullName() {
			m.isFavorite = msg.Favorite
		}
		return m, m.loadFavorites()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
		switch m.view {
		case viewFavorites:
			return m.updateFavorites(msg)
		case viewStage:
			return m.updateStage(msg)
		case viewEvents:
			return m.updateEvents(msg)
		case viewSubEvents:
			return m.updateSubEvents(msg)
		}
	}
	return m, nil
}

func (m AppModel) openRepo(repo domain.Repository) (tea.Model, tea.Cmd) {
	m.repo = repo
	m.stage = domain.StageStaging
	m.view = viewStage
	m.isFavorite = false
	m, load := m.startLoad()
	return m, tea.Batch(load, m.checkFavorite(repo))
}

func (m AppModel) updateFavorites(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "down":
		m.favList = m.favList.MoveDown()
	case "up":
		m.favList = m.favList.MoveUp()
	case "enter":
		repo, err := domain.ParseFullName(m.favList.Selected())
		if err != nil {
			return m, nil
		}
		return m.openRepo(repo)
	case "ctrl+r":
		m.err = nil
		return m, m.loadFavorites()
	}
	return m, nil
}

func (m AppModel) updateStage(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab":
		m.stage = m.stage.Other()
		return m.startLoad()
	case "ctrl+r":
		m.loader.Invalidate(m.repo, m.stage)
		return m.startLoad()
	case "f":
		return m, m.toggleFavorite(m.repo)
	case "enter":
		if m.hasOutcome && m.outcome.Ready() && len(m.events.Events()) > 0 {
			m.view = viewEvents
		}
	case "esc":
		if m.cancel != nil {
			m.cancel()
		}
		m.loading = false
		m.view = viewFavorites
		return m, m.loadFavorites()
	}
	return m, nil
}

func (m AppModel) updateEvents(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "down":
		m.events = m.events.MoveDown()
	case "up":
		m.events = m.events.MoveUp()
	case "enter":
		if e, ok := m.events.Selected(); ok && len(e.SubEvents) > 0 {
			m.selectedEvent = e
			m.subs = NewSubEventListModel(e.SubEvents)
			m.view = viewSubEvents
		}
	case "esc":
		m.view = viewStage
	}
	return m, nil
}

func (m AppModel) updateSubEvents(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "down":
		m.subs = m.subs.MoveDown()
	case "up":
		m.subs = m.subs.MoveUp()
	case "esc":
		m.view = viewEvents
	}
	return m, nil
}

// View renders the full TUI.
func (m AppModel) View() string {
	switch m.view {
	case viewFavorites:
		return m.renderFavoritesView()
	case viewEvents:
		return m.renderEventsView()
	case viewSubEvents:
		return m.renderSubEventsView()
	default:
		return m.renderStageView()
	}
}

func (m AppModel) header() string {
	star := ""
	if m.isFavorite {
		star = " ★"
	}
	return fmt.Sprintf(" sekideck | %s%s / %s\n", m.repo.FullName(), star, stageBadge(m.stage))
}

func (m AppModel) errorLine() string {
	if m.err == nil {
		return ""
	}
	return " " + failureStyle.Render("Error: "+m.err.Error()) + "\n"
}

func (m AppModel) renderFavoritesView() string {
	header := " sekideck | favorites\n"
	footer := footerStyle.Render(" ↑/↓: navigate   enter: open   ctrl+r: reload   q: quit") + "\n"
	return header + separator + m.favList.View() + "\n" + m.errorLine() + separator + footer
}

func (m AppModel) renderStageView() string {
	var body string
	switch {
	case m.loading:
		body = fmt.Sprintf(" %s Loading %s on %s...\n", m.spinner.View(), m.repo.FullName(), m.stage)
	case m.hasOutcome:
		body = renderStage(m.outcome)
	}
	footer := footerStyle.Render(" tab: switch stage   enter: events   f: favorite   ctrl+r: refresh   esc: favorites   q: quit") + "\n"
	return m.header() + separator + body + m.errorLine() + separator + footer
}

func (m AppModel) renderEventsView() string {
	title := " Events\n"
	footer := footerStyle.Render(" ↑/↓: navigate   enter: sub-events   esc: back   q: quit") + "\n"
	return m.header() + separator + title + m.events.View() + separator + footer
}

func (m AppModel) renderSubEventsView() string {
	title := fmt.Sprintf(" Sub-events of %s\n", m.selectedEvent.Label)
	footer := footerStyle.Render(" ↑/↓: navigate   esc: back   q: quit") + "\n"
	return m.header() + separator + title + m.subs.View() + separator + footer
}

// Run starts the Bubbletea program and blocks until the user quits.
func Run(loader Loader, favorites domain.FavoritesStore, repo domain.Repository, logger *slog.Logger) error {
	p := tea.NewProgram(NewAppModel(loader, favorites, repo, logger), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
