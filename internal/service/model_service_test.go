package service

import (
	"testing"

	"contentgen/internal/catalog"
	"contentgen/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelService_List(t *testing.T) {
	resp := NewModelService(catalog.Default()).List()

	require.Len(t, resp.Models, 4)
	byID := map[string]int{}
	for i, m := range resp.Models {
		byID[m.ID] = i
	}
	require.Contains(t, byID, "claude-sonnet-4")
	sonnet := resp.Models[byID["claude-sonnet-4"]]
	assert.Equal(t, "anthropic", sonnet.Provider)
	assert.True(t, sonnet.Prices["draft"].Equal(dec("0.045")))
	assert.Len(t, sonnet.Prices, 6)

	assert.True(t, resp.Models[byID["llama3.1:8b"]].Local)
	assert.Equal(t, "claude-opus-4", resp.Routes[models.PhaseDraft][models.TierQuality])
	assert.Equal(t, "gpt-4o-mini", resp.Routes[models.PhaseResearch][models.TierBalanced])
}

func TestOrchestrator_ReviewQueue(t *testing.T) {
	h := newHarness(t, defaultHarnessConfig())
	first := storedTask(t, h, 1, models.PhaseAwaitingApproval)
	storedTask(t, h, 2, models.PhaseAwaitingApproval)
	storedTask(t, h, 1, models.PhaseFailed)

	tasks, total, err := h.orch.ReviewQueue(Viewer{UserID: 9, Reviewer: true}, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, tasks, 2)
	assert.Equal(t, first.TaskID, tasks[0].TaskID)

	_, _, err = h.orch.ReviewQueue(Viewer{UserID: 1}, 0, 10)
	assert.ErrorIs(t, err, ErrForbidden)
}
