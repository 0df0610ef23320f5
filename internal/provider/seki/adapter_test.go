package seki_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/waabox/sekideck/internal/domain"
	"github.com/waabox/sekideck/internal/provider/seki"
)

const fullHash = "4f2a9c1e8b7d6a5f4e3d2c1b0a9f8e7d6c5b4a39"

func pipelineJSON(stage, event string) map[string]interface{} {
	return map[string]interface{}{
		"state":      "FAILED",
		"created_at": "2025-03-10T12:00:00Z",
		"updated_at": "2025-03-10T12:04:30Z",
		"git": map[string]interface{}{
			"organization":   "acme",
			"product":        "payments",
			"commit":         fullHash,
			"commit_message": "fix: retry webhook",
			"commit_author":  "Ana",
			"stage":          stage,
			"event":          event,
			"ref":            "refs/heads/main",
		},
		"events": []map[string]interface{}{
			{
				"id":         "build",
				"label":      map[string]interface{}{"es": "Construcción", "en": "Build", "br": "Construção"},
				"state":      "WARNING",
				"created_at": "2025-03-10T12:00:00Z",
				"updated_at": "garbage",
				"markdown":   "",
				"subevents": []map[string]interface{}{
					{"id": "DEPLOY", "label": "Deploy", "state": "weird", "created_at": "", "updated_at": "", "markdown": "https://x.dev"},
				},
			},
			{"id": "validate", "label": "Validación", "state": "SUCCESS", "subevents": nil},
		},
	}
}

func TestGetPipeline_DecodesRecord(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/products/acme/payments/pipelines/"+fullHash {
			gotAuth = r.Header.Get("Authorization")
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(pipelineJSON("staging", "commit"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	adapter := seki.NewAdapter(srv.URL, "secret")
	record, err := adapter.GetPipeline(context.Background(), "acme/payments", fullHash)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "bearer secret" {
		t.Errorf("expected bearer token header, got '%s'", gotAuth)
	}
	if record.State != domain.StateFailed {
		t.Errorf("expected state FAILED, got '%s'", record.State)
	}
	if record.Git.Stage != domain.StageStaging {
		t.Errorf("expected stage staging, got '%s'", record.Git.Stage)
	}
	if len(record.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(record.Events))
	}
	build := record.Events[0]
	if build.State != domain.StateWarn {
		t.Errorf("expected WARNING to parse as WARN, got '%s'", build.State)
	}
	if !build.UpdatedAt.IsZero() {
		t.Errorf("expected malformed timestamp to be zero, got %v", build.UpdatedAt)
	}
	if build.Label.ES != "Construcción" {
		t.Errorf("expected spanish label, got '%s'", build.Label.ES)
	}
	if build.SubEvents[0].State != domain.StateUnknown {
		t.Errorf("expected unknown sub-event state, got '%s'", build.SubEvents[0].State)
	}
	if record.Events[1].Label.Text() != "Validación" {
		t.Errorf("expected string label to be accepted, got '%s'", record.Events[1].Label.Text())
	}
}

func TestGetPipelineWithTag_UsesCommitAndTag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/products/acme/payments/pipelines/"+fullHash+"/v1.4.0" {
			json.NewEncoder(w).Encode(pipelineJSON("production", "tag"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	record, err := seki.NewAdapter(srv.URL, "").GetPipelineWithTag(context.Background(), "acme/payments", fullHash, "v1.4.0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Git.Event != domain.EventTag {
		t.Errorf("expected tag event, got '%s'", record.Git.Event)
	}
}

func TestGetPipeline_AbbreviatedHashIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := seki.NewAdapter(srv.URL, "").GetPipeline(context.Background(), "acme/payments", "4f2a9c1")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if errors.Is(err, domain.ErrTransient) {
		t.Error("not-found must not be transient")
	}
}

func TestGetPipeline_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := seki.NewAdapter(srv.URL, "").GetPipeline(context.Background(), "acme/payments", fullHash)
	if !errors.Is(err, domain.ErrTransient) {
		t.Errorf("expected ErrTransient, got %v", err)
	}
}

func TestGetPipeline_UnauthorizedIsDetected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := seki.NewAdapter(srv.URL, "bad").GetPipeline(context.Background(), "acme/payments", fullHash)
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestGetPipeline_UnreachableHostIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := seki.NewAdapter(url, "").GetPipeline(context.Background(), "acme/payments", fullHash)
	if !errors.Is(err, domain.ErrTransient) {
		t.Errorf("expected ErrTransient, got %v", err)
	}
}

func TestListPipelines_SendsBracketParams(t *testing.T) {
	var query map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		json.NewEncoder(w).Encode(map[string]interface{}{
			"offset": 0, "limit": 50, "total": 2,
			"items": []interface{}{pipelineJSON("production", "tag"), pipelineJSON("staging", "commit")},
		})
	}))
	defer srv.Close()

	adapter := seki.NewAdapter(srv.URL, "")
	record, err := seki.LatestPipeline(context.Background(), adapter, "acme/payments", domain.StageStaging, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Git.Stage != domain.StageStaging {
		t.Errorf("expected client-side filter to pick staging, got '%s'", record.Git.Stage)
	}
	if got := query["filters[git.stage]"]; len(got) != 1 || got[0] != "staging" {
		t.Errorf("expected filters[git.stage]=staging, got %v", got)
	}
	if got := query["filters[git.event]"]; len(got) != 1 || got[0] != "commit" {
		t.Errorf("expected filters[git.event]=commit, got %v", got)
	}
	if got := query["sort[updated_at]"]; len(got) != 1 || got[0] != "desc" {
		t.Errorf("expected sort[updated_at]=desc, got %v", got)
	}
}

func TestLatestPipeline_NoMatchIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"items": []interface{}{pipelineJSON("staging", "commit")}})
	}))
	defer srv.Close()

	_, err := seki.LatestPipeline(context.Background(), seki.NewAdapter(srv.URL, ""), "acme/payments", domain.StageProduction, "")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
