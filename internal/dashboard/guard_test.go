package dashboard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/waabox/sekideck/internal/dashboard"
)

func TestGuard_LaterRequestSupersedesEarlier(t *testing.T) {
	var g dashboard.Guard

	first := g.Begin("acme/payments|staging")
	assert.True(t, g.Current(first))

	second := g.Begin("acme/payments|production")
	assert.False(t, g.Current(first))
	assert.True(t, g.Current(second))
}

func TestGuard_SameKeyIsStillANewRequest(t *testing.T) {
	var g dashboard.Guard

	first := g.Begin("acme/payments|staging")
	again := g.Begin("acme/payments|staging")

	assert.False(t, g.Current(first), "a refresh supersedes the earlier fetch of the same key")
	assert.True(t, g.Current(again))
}

func TestGuard_ZeroTicketIsNeverCurrent(t *testing.T) {
	var g dashboard.Guard
	assert.False(t, g.Current(dashboard.Ticket{}))
}
