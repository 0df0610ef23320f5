package pipeline_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waabox/sekideck/internal/domain"
	"github.com/waabox/sekideck/internal/pipeline"
)

var now = time.Date(2025, 3, 10, 12, 10, 0, 0, time.UTC)

func sampleRecord() domain.PipelineRecord {
	created := now.Add(-10 * time.Minute)
	return domain.PipelineRecord{
		State:     domain.StateFailed,
		CreatedAt: created,
		UpdatedAt: created.Add(4*time.Minute + 30*time.Second),
		Git: domain.GitInfo{
			Organization:  "acme",
			Product:       "payments",
			Commit:        "4f2a9c1e8b7d6a5f4e3d2c1b0a9f8e7d6c5b4a39",
			CommitMessage: "fix: retry webhook delivery\n\nlonger body",
			CommitAuthor:  "Ana",
			Stage:         domain.StageStaging,
			Event:         domain.EventCommit,
		},
		Events: []domain.Event{
			{ID: "validation", Label: domain.Label{ES: "Validación"}, State: domain.StateWarn},
			{ID: "build", Label: domain.Label{ES: "Construcción"}, State: domain.StateSuccess,
				SubEvents: []domain.SubEvent{{ID: "BUILD_IMAGE", Label: "Imagen", State: domain.StateSuccess}}},
			{ID: "deploy", Label: domain.Label{EN: "Deploy"}, State: domain.StateFailed,
				SubEvents: []domain.SubEvent{
					{ID: "DEPLOY_API", Label: "API", State: domain.StateFailed,
						Markdown: "## Deploy\n**Product:** acme/payments\nRollout timed out\nhttps://api.acme.dev"},
					{ID: "SMOKE", Label: "Smoke", State: domain.StateUnknown, Markdown: "https://smoke.acme.dev"},
				}},
		},
	}
}

func TestAssemble_SummaryFields(t *testing.T) {
	vm := pipeline.Assemble(sampleRecord(), domain.StageStaging, now)

	assert.Equal(t, "4f2a9c1", vm.ShortHash)
	assert.Equal(t, "acme/payments", vm.Product)
	assert.Equal(t, "4m 30s", vm.Duration)
	assert.Equal(t, "5 minutes ago", vm.LastUpdated)
	assert.Equal(t, domain.ToneDanger, vm.Tone)
	require.Len(t, vm.Meta, 3)
	assert.Equal(t, "author", vm.Meta[0].ID)
	assert.Equal(t, "time", vm.Meta[1].ID)
	assert.Equal(t, "5 minutes ago (4 minutes)", vm.Meta[1].Text)
	assert.Equal(t, "commit", vm.Meta[2].ID)
	assert.Equal(t, "fix: retry webhook delivery", vm.Meta[2].Text)
}

func TestAssemble_TimelineIsSeverityOrderedEventsAreNot(t *testing.T) {
	vm := pipeline.Assemble(sampleRecord(), domain.StageStaging, now)

	var timeline, canonical []domain.State
	for _, e := range vm.Timeline {
		timeline = append(timeline, e.State)
	}
	for _, e := range vm.Events {
		canonical = append(canonical, e.State)
	}
	assert.Equal(t, []domain.State{domain.StateFailed, domain.StateWarn, domain.StateSuccess}, timeline)
	assert.Equal(t, []domain.State{domain.StateWarn, domain.StateSuccess, domain.StateFailed}, canonical)
}

func TestAssemble_FailuresAndLinks(t *testing.T) {
	vm := pipeline.Assemble(sampleRecord(), domain.StageStaging, now)

	require.Len(t, vm.Failures, 1)
	assert.Equal(t, "Deploy", vm.Failures[0].EventLabel)
	assert.Equal(t, "API", vm.Failures[0].SubEventLabel)
	assert.Equal(t, "Rollout timed out", vm.Failures[0].Summary)
	assert.Equal(t, []string{"https://api.acme.dev"}, vm.Links)
}

func TestAssemble_NoFailedSubEventsMeansNoFailures(t *testing.T) {
	record := sampleRecord()
	// event-level FAILED without failed sub-events produces no call-out
	record.Events[2].SubEvents[0].State = domain.StateSuccess

	vm := pipeline.Assemble(record, domain.StageStaging, now)

	assert.Empty(t, vm.Failures)
	assert.NotNil(t, vm.Failures)
}

func TestAssemble_UnknownStateIsNeutral(t *testing.T) {
	vm := pipeline.Assemble(sampleRecord(), domain.StageStaging, now)

	smoke := vm.Events[2].SubEvents[1]
	assert.Equal(t, domain.ToneNeutral, smoke.Tone)
	assert.Equal(t, "", smoke.Icon)
	assert.Equal(t, "https://smoke.acme.dev", smoke.Summary)
}

func TestAssemble_OmitsAbsentMeta(t *testing.T) {
	record := domain.PipelineRecord{Git: domain.GitInfo{Commit: "abc"}}

	vm := pipeline.Assemble(record, domain.StageProduction, now)

	assert.Empty(t, vm.Meta)
	assert.Equal(t, "abc", vm.ShortHash)
	assert.Equal(t, "0s", vm.Duration)
	assert.Empty(t, vm.Events)
	assert.Empty(t, vm.Links)
}

func TestAssemble_EventLabelFallsBackToID(t *testing.T) {
	record := domain.PipelineRecord{Events: []domain.Event{{ID: "mystery", State: domain.State("SKIPPED")}}}

	vm := pipeline.Assemble(record, domain.StageStaging, now)

	require.Len(t, vm.Events, 1)
	assert.Equal(t, "mystery", vm.Events[0].Label)
	assert.Equal(t, domain.ToneNeutral, vm.Events[0].Tone)
}

func TestShortHash(t *testing.T) {
	assert.Equal(t, "abcdef1", pipeline.ShortHash("abcdef1234"))
	assert.Equal(t, "abc", pipeline.ShortHash("abc"))
}
