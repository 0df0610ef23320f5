package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/waabox/sekideck/internal/dashboard"
	"github.com/waabox/sekideck/internal/domain"
	"github.com/waabox/sekideck/internal/pipeline"
	"github.com/waabox/sekideck/internal/resolve"
	"github.com/waabox/sekideck/internal/server/httpx"
	"github.com/waabox/sekideck/internal/timefmt"
)

const maxListLimit = 100

func healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// outcomeStatus maps an outcome to its HTTP status. Missing data is a 404 so
// clients can tell it apart from a failing upstream (502).
func outcomeStatus(out dashboard.Outcome) int {
	switch out.Kind {
	case dashboard.OutcomeReady:
		return http.StatusOK
	case dashboard.OutcomeNoVersion, dashboard.OutcomeNotFound:
		return http.StatusNotFound
	default:
		return errorStatus(out.Err)
	}
}

// errorStatus maps a collaborator error to its HTTP status.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func productParams(r *http.Request) domain.Repository {
	return domain.Repository{Owner: chi.URLParam(r, "org"), Name: chi.URLParam(r, "product")}
}

func stageParam(w http.ResponseWriter, r *http.Request) (domain.Stage, bool) {
	stage, err := domain.ParseStage(chi.URLParam(r, "stage"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return stage, true
}

func limitParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxListLimit {
		httpx.WriteError(w, http.StatusBadRequest, "limit must be between 1 and 100")
		return 0, false
	}
	return n, true
}

func writeOutcome(w http.ResponseWriter, out dashboard.Outcome) {
	httpx.WriteJSON(w, outcomeStatus(out), out.Payload())
}

func (s *Server) stageHandler(w http.ResponseWriter, r *http.Request) {
	stage, ok := stageParam(w, r)
	if !ok {
		return
	}
	writeOutcome(w, s.svc.Load(r.Context(), productParams(r), stage))
}

func (s *Server) latestHandler(w http.ResponseWriter, r *http.Request) {
	stage, ok := stageParam(w, r)
	if !ok {
		return
	}
	writeOutcome(w, s.svc.Latest(r.Context(), productParams(r), stage))
}

func (s *Server) stagePipelineHandler(w http.ResponseWriter, r *http.Request) {
	stage, ok := stageParam(w, r)
	if !ok {
		return
	}
	out := s.svc.LoadByIdentifiers(r.Context(), productParams(r), stage, chi.URLParam(r, "commit"), chi.URLParam(r, "tag"))
	writeOutcome(w, out)
}

type historyResponse struct {
	Items []pipeline.ViewModel `json:"items"`
}

func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(w, r)
	if !ok {
		return
	}
	views, err := s.svc.History(r.Context(), productParams(r), limit)
	if err != nil {
		httpx.WriteError(w, errorStatus(err), err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, historyResponse{Items: views})
}

type tagResponse struct {
	Name      string    `json:"name"`
	Commit    string    `json:"commit"`
	ShortHash string    `json:"short_hash"`
	Date      time.Time `json:"date"`
	Ago       string    `json:"ago"`
}

func (s *Server) tagsHandler(w http.ResponseWriter, r *http.Request) {
	order, err := resolve.ParseTagOrder(r.URL.Query().Get("order"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	tags, err := s.svc.Tags(r.Context(), productParams(r), order)
	if err != nil {
		httpx.WriteError(w, errorStatus(err), err.Error())
		return
	}
	now := time.Now()
	items := make([]tagResponse, len(tags))
	for i, t := range tags {
		items[i] = tagResponse{Name: t.Name, Commit: t.Commit, ShortHash: pipeline.ShortHash(t.Commit), Date: t.Date}
		if !t.Date.IsZero() {
			items[i].Ago = timefmt.Ago(t.Date, now)
		}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"order": order, "items": items})
}

type commitResponse struct {
	Hash      string    `json:"hash"`
	ShortHash string    `json:"short_hash"`
	Author    string    `json:"author"`
	Date      time.Time `json:"date"`
	Ago       string    `json:"ago"`
	Title     string    `json:"title"`
}

func (s *Server) commitsHandler(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(w, r)
	if !ok {
		return
	}
	commits, err := s.svc.Commits(r.Context(), productParams(r), limit)
	if err != nil {
		httpx.WriteError(w, errorStatus(err), err.Error())
		return
	}
	now := time.Now()
	items := make([]commitResponse, len(commits))
	for i, c := range commits {
		title, _, _ := strings.Cut(c.Message, "\n")
		items[i] = commitResponse{
			Hash:      c.Hash,
			ShortHash: pipeline.ShortHash(c.Hash),
			Author:    c.Author,
			Date:      c.Date,
			Title:     strings.TrimSpace(title),
		}
		if !c.Date.IsZero() {
			items[i].Ago = timefmt.Ago(c.Date, now)
		}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

type repoResponse struct {
	FullName    string    `json:"full_name"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toRepoResponses(repos []domain.RepositorySummary) []repoResponse {
	out := make([]repoResponse, len(repos))
	for i, r := range repos {
		out[i] = repoResponse{FullName: r.FullName, Name: r.Name, Description: r.Description, UpdatedAt: r.UpdatedAt}
	}
	return out
}

func (s *Server) orgParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	org := strings.TrimSpace(r.URL.Query().Get("org"))
	if org == "" {
		org = s.defaultOrg
	}
	if org == "" {
		httpx.WriteError(w, http.StatusBadRequest, "org is required")
		return "", false
	}
	return org, true
}

func (s *Server) listReposHandler(w http.ResponseWriter, r *http.Request) {
	org, ok := s.orgParam(w, r)
	if !ok {
		return
	}
	repos, err := s.svc.Repositories(r.Context(), org)
	if err != nil {
		httpx.WriteError(w, errorStatus(err), err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"org": org, "items": toRepoResponses(repos)})
}

func (s *Server) searchReposHandler(w http.ResponseWriter, r *http.Request) {
	org, ok := s.orgParam(w, r)
	if !ok {
		return
	}
	query := r.URL.Query().Get("q")
	repos, err := s.svc.SearchRepositories(r.Context(), org, query)
	if err != nil {
		httpx.WriteError(w, errorStatus(err), err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"org": org, "query": query, "items": toRepoResponses(repos)})
}

type favoritesResponse struct {
	Favorites []string `json:"favorites"`
}

func favoriteName(r *http.Request) string {
	return chi.URLParam(r, "org") + "/" + chi.URLParam(r, "name")
}

func (s *Server) writeFavorites(w http.ResponseWriter, r *http.Request) {
	items, err := s.favorites.List(r.Context())
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, favoritesResponse{Favorites: items})
}

func (s *Server) listFavoritesHandler(w http.ResponseWriter, r *http.Request) {
	s.writeFavorites(w, r)
}

func (s *Server) addFavoriteHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.favorites.Add(r.Context(), favoriteName(r)); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeFavorites(w, r)
}

func (s *Server) removeFavoriteHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.favorites.Remove(r.Context(), favoriteName(r)); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeFavorites(w, r)
}

func (s *Server) toggleFavoriteHandler(w http.ResponseWriter, r *http.Request) {
	name := favoriteName(r)
	on, err := s.favorites.Toggle(r.Context(), name)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"repository": name, "favorite": on})
}
