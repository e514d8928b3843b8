package dto

import (
	"contentgen/internal/ledger"
	"contentgen/internal/models"
)

// TaskCostResponse is a task's spend breakdown and the raw entries behind it.
type TaskCostResponse struct {
	Summary *ledger.Summary       `json:"summary"`
	Entries []models.CostLogEntry `json:"entries"`
}
