package tui_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/waabox/sekideck/internal/dashboard"
	"github.com/waabox/sekideck/internal/domain"
	"github.com/waabox/sekideck/internal/favorites"
	"github.com/waabox/sekideck/internal/pipeline"
	"github.com/waabox/sekideck/internal/tui"
)

var (
	payments = domain.Repository{Owner: "acme", Name: "payments"}
	now      = time.Date(2025, 3, 10, 12, 10, 0, 0, time.UTC)
)

// fakeLoader satisfies tui.Loader with canned outcomes per stage.
type fakeLoader struct {
	outcomes    map[domain.Stage]dashboard.Outcome
	loads       []domain.Stage
	invalidated []domain.Stage
}

func (f *fakeLoader) Load(_ context.Context, repo domain.Repository, stage domain.Stage) dashboard.Outcome {
	f.loads = append(f.loads, stage)
	if o, ok := f.outcomes[stage]; ok {
		return o
	}
	return dashboard.Outcome{Kind: dashboard.OutcomeNotFound, Repository: repo.FullName(), Stage: stage}
}

func (f *fakeLoader) Invalidate(_ domain.Repository, stage domain.Stage) {
	f.invalidated = append(f.invalidated, stage)
}

func readyOutcome(stage domain.Stage) dashboard.Outcome {
	record := domain.PipelineRecord{
		State:     domain.StateFailed,
		CreatedAt: now.Add(-10 * time.Minute),
		UpdatedAt: now.Add(-2 * time.Minute),
		Git: domain.GitInfo{
			Organization:  "acme",
			Product:       "payments",
			Commit:        "4f2a9c1e8b7d6a5f4e3d2c1b0a9f8e7d6c5b4a39",
			CommitMessage: "Fix rounding\n\nlong body",
			CommitAuthor:  "dev",
			Stage:         stage,
		},
		Events: []domain.Event{
			{ID: "build", Label: domain.Label{EN: "Build"}, State: domain.StateSuccess},
			{
				ID: "deploy", Label: domain.Label{EN: "Deploy"}, State: domain.StateFailed,
				SubEvents: []domain.SubEvent{
					{ID: "migrate", Label: "Migrations", State: domain.StateFailed, Markdown: "lock timeout on accounts"},
					{ID: "rollout", Label: "Rollout", State: domain.StatePending},
				},
			},
		},
	}
	vm := pipeline.Assemble(record, stage, now)
	return dashboard.Outcome{
		Kind:       dashboard.OutcomeReady,
		Repository: "acme/payments",
		Stage:      stage,
		Version:    domain.Version{Stage: stage, Commit: record.Git.Commit, Display: "4f2a9c1"},
		View:       &vm,
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+r":
		return tea.KeyMsg{Type: tea.KeyCtrlR}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// collect runs cmd and every command it batches, returning the messages.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

// apply feeds every message produced by cmd back into m, following the
// commands those messages return. Spinner ticks are skipped.
func apply(t *testing.T, m tui.AppModel, cmd tea.Cmd) tui.AppModel {
	t.Helper()
	for _, msg := range collect(cmd) {
		if _, ok := msg.(spinner.TickMsg); ok {
			continue
		}
		next, follow := m.Update(msg)
		m = apply(t, next.(tui.AppModel), follow)
	}
	return m
}

func press(t *testing.T, m tui.AppModel, k string) tui.AppModel {
	t.Helper()
	next, cmd := m.Update(key(k))
	return apply(t, next.(tui.AppModel), cmd)
}

func start(t *testing.T, loader *fakeLoader, store domain.FavoritesStore, repo domain.Repository) tui.AppModel {
	t.Helper()
	m := tui.NewAppModel(loader, store, repo, nil)
	return apply(t, m, m.Init())
}

func TestApp_StartWithRepo_RendersStagingStage(t *testing.T) {
	loader := &fakeLoader{outcomes: map[domain.Stage]dashboard.Outcome{
		domain.StageStaging: readyOutcome(domain.StageStaging),
	}}
	m := start(t, loader, favorites.NewMemoryStore(), payments)

	view := m.View()
	for _, want := range []string{"acme/payments", "STAGING", "4f2a9c1", "dev", "Fix rounding", "Build", "Deploy", "Migrations: lock timeout on accounts"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected %q in view, got:\n%s", want, view)
		}
	}
	if strings.Contains(view, "long body") {
		t.Errorf("expected only the first commit line, got:\n%s", view)
	}
}

func TestApp_NotReady_ShowsDiagnosis(t *testing.T) {
	loader := &fakeLoader{outcomes: map[domain.Stage]dashboard.Outcome{
		domain.StageStaging: {Kind: dashboard.OutcomeNoVersion, Repository: "acme/payments", Stage: domain.StageStaging},
	}}
	m := start(t, loader, favorites.NewMemoryStore(), payments)

	view := m.View()
	if !strings.Contains(view, "acme/payments has no commits, so nothing is deployed to staging.") {
		t.Errorf("expected diagnosis in view, got:\n%s", view)
	}
}

func TestApp_Tab_TogglesStage(t *testing.T) {
	loader := &fakeLoader{outcomes: map[domain.Stage]dashboard.Outcome{
		domain.StageStaging:    readyOutcome(domain.StageStaging),
		domain.StageProduction: readyOutcome(domain.StageProduction),
	}}
	m := start(t, loader, favorites.NewMemoryStore(), payments)
	m = press(t, m, "tab")

	if len(loader.loads) != 2 || loader.loads[1] != domain.StageProduction {
		t.Fatalf("expected a production load after tab, got %v", loader.loads)
	}
	if !strings.Contains(m.View(), "PRODUCTION") {
		t.Errorf("expected production badge, got:\n%s", m.View())
	}

	m = press(t, m, "tab")
	if loader.loads[2] != domain.StageStaging {
		t.Errorf("expected tab to switch back to staging, got %v", loader.loads)
	}
}

func TestApp_StaleOutcome_IsDropped(t *testing.T) {
	loader := &fakeLoader{outcomes: map[domain.Stage]dashboard.Outcome{
		domain.StageStaging: readyOutcome(domain.StageStaging),
	}}
	m := tui.NewAppModel(loader, favorites.NewMemoryStore(), payments, nil)
	m = apply(t, m, m.Init())

	// tab starts a production load; do not deliver its result yet.
	next, _ := m.Update(key("tab"))
	m = next.(tui.AppModel)

	// A late staging result from an earlier request arrives.
	stale := tui.OutcomeLoadedMsg{Outcome: readyOutcome(domain.StageStaging)}
	next, _ = m.Update(stale)
	m = next.(tui.AppModel)

	if !strings.Contains(m.View(), "Loading acme/payments on production") {
		t.Errorf("expected stale outcome to be dropped while production loads, got:\n%s", m.View())
	}
}

func TestApp_Refresh_InvalidatesAndReloads(t *testing.T) {
	loader := &fakeLoader{outcomes: map[domain.Stage]dashboard.Outcome{
		domain.StageStaging: readyOutcome(domain.StageStaging),
	}}
	m := start(t, loader, favorites.NewMemoryStore(), payments)
	_ = press(t, m, "ctrl+r")

	if len(loader.invalidated) != 1 || loader.invalidated[0] != domain.StageStaging {
		t.Errorf("expected staging to be invalidated, got %v", loader.invalidated)
	}
	if len(loader.loads) != 2 {
		t.Errorf("expected a reload, got %d loads", len(loader.loads))
	}
}

func TestApp_FavoriteToggle_PersistsAndMarksHeader(t *testing.T) {
	loader := &fakeLoader{}
	store := favorites.NewMemoryStore()
	m := start(t, loader, store, payments)

	m = press(t, m, "f")
	if ok, _ := store.Contains(context.Background(), "acme/payments"); !ok {
		t.Fatal("expected acme/payments to be a favorite after 'f'")
	}
	if !strings.Contains(m.View(), "acme/payments ★") {
		t.Errorf("expected favorite marker in header, got:\n%s", m.View())
	}

	m = press(t, m, "f")
	if ok, _ := store.Contains(context.Background(), "acme/payments"); ok {
		t.Error("expected second 'f' to remove the favorite")
	}
	if strings.Contains(m.View(), "★") {
		t.Errorf("expected favorite marker to be gone, got:\n%s", m.View())
	}
}

func TestApp_FavoritesScreen_OpensSelectedRepo(t *testing.T) {
	loader := &fakeLoader{outcomes: map[domain.Stage]dashboard.Outcome{
		domain.StageStaging: readyOutcome(domain.StageStaging),
	}}
	store := favorites.NewMemoryStore("acme/billing", "acme/payments")
	m := start(t, loader, store, domain.Repository{})

	view := m.View()
	if !strings.Contains(view, "acme/billing") || !strings.Contains(view, "acme/payments") {
		t.Fatalf("expected favorites listed, got:\n%s", view)
	}

	m = press(t, m, "down")
	m = press(t, m, "enter")
	if len(loader.loads) != 1 {
		t.Fatalf("expected one load, got %d", len(loader.loads))
	}
	if !strings.Contains(m.View(), "acme/payments ★") {
		t.Errorf("expected opened favorite to be marked, got:\n%s", m.View())
	}

	m = press(t, m, "esc")
	if !strings.Contains(m.View(), "favorites") {
		t.Errorf("expected esc to return to favorites, got:\n%s", m.View())
	}
}

func TestApp_EmptyFavorites_ShowsHint(t *testing.T) {
	m := start(t, &fakeLoader{}, favorites.NewMemoryStore(), domain.Repository{})
	if !strings.Contains(m.View(), "No favorites yet") {
		t.Errorf("expected empty hint, got:\n%s", m.View())
	}
}

func TestApp_DrillDown_EventsAndSubEvents(t *testing.T) {
	loader := &fakeLoader{outcomes: map[domain.Stage]dashboard.Outcome{
		domain.StageStaging: readyOutcome(domain.StageStaging),
	}}
	m := start(t, loader, favorites.NewMemoryStore(), payments)

	m = press(t, m, "enter")
	if !strings.Contains(m.View(), "Events") {
		t.Fatalf("expected events view, got:\n%s", m.View())
	}

	// Build has no sub-events, so enter stays on the events view.
	m = press(t, m, "enter")
	if strings.Contains(m.View(), "Sub-events of") {
		t.Fatalf("expected no drill-down for an event without sub-events, got:\n%s", m.View())
	}

	m = press(t, m, "down")
	m = press(t, m, "enter")
	view := m.View()
	if !strings.Contains(view, "Sub-events of Deploy") || !strings.Contains(view, "Rollout") {
		t.Fatalf("expected Deploy sub-events, got:\n%s", view)
	}

	m = press(t, m, "esc")
	m = press(t, m, "esc")
	if !strings.Contains(m.View(), "tab: switch stage") {
		t.Errorf("expected to be back on the stage view, got:\n%s", m.View())
	}
}

func TestApp_Quit(t *testing.T) {
	m := tui.NewAppModel(&fakeLoader{}, favorites.NewMemoryStore(), payments, nil)
	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}
