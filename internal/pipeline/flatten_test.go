package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waabox/sekideck/internal/domain"
	"github.com/waabox/sekideck/internal/pipeline"
)

func TestFlatten_PreservesOrderAndSkipsEmptyEvents(t *testing.T) {
	events := []domain.Event{
		{ID: "E1", SubEvents: []domain.SubEvent{{ID: "S1"}, {ID: "S2"}}},
		{ID: "E2"},
		{ID: "E3", SubEvents: []domain.SubEvent{{ID: "S3"}}},
	}

	flat := pipeline.Flatten(events)

	require.Len(t, flat, 3)
	want := [][2]string{{"E1", "S1"}, {"E1", "S2"}, {"E3", "S3"}}
	for i, w := range want {
		assert.Equal(t, w[0], flat[i].Parent.ID)
		assert.Equal(t, w[1], flat[i].Child.ID)
	}
	assert.Equal(t, flat, pipeline.Flatten(events), "flatten must be repeatable")
}

func TestFlatten_Empty(t *testing.T) {
	assert.Empty(t, pipeline.Flatten(nil))
}

func TestFilterState(t *testing.T) {
	events := []domain.Event{
		{ID: "build", SubEvents: []domain.SubEvent{
			{ID: "lint", State: domain.StateSuccess},
			{ID: "test", State: domain.StateFailed},
		}},
		{ID: "deploy", SubEvents: []domain.SubEvent{
			{ID: "DEPLOY", State: domain.StateFailed},
		}},
	}
	failed := pipeline.FilterState(pipeline.Flatten(events), domain.StateFailed)
	require.Len(t, failed, 2)
	assert.Equal(t, "test", failed[0].Child.ID)
	assert.Equal(t, "DEPLOY", failed[1].Child.ID)
}

func TestSortBySeverity_IsStableAndGrouped(t *testing.T) {
	states := []domain.State{
		domain.StateSuccess, domain.StateWarn, domain.StateRunning, domain.StateFailed,
		domain.StateUnknown, domain.StatePending, domain.StateFailed, domain.StateWarn,
	}
	events := make([]domain.Event, len(states))
	for i, s := range states {
		events[i] = domain.Event{ID: string(rune('a' + i)), State: s}
	}

	sorted := pipeline.SortBySeverity(events)

	ids := make([]string, len(sorted))
	for i, e := range sorted {
		ids[i] = e.ID
	}
	// FAILED: d, g; RUNNING/PENDING: c, f; WARN: b, h; rest: a, e
	assert.Equal(t, []string{"d", "g", "c", "f", "b", "h", "a", "e"}, ids)
	assert.Equal(t, "a", events[0].ID, "input must not be reordered")
}
