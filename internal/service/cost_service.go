package service

import (
	"context"
	"fmt"

	"contentgen/internal/dto"
	"contentgen/internal/ledger"
)

// CostService answers spend queries.
type CostService struct {
	orchestrator *Orchestrator
	ledger       *ledger.Ledger
}

// NewCostService creates a CostService.
func NewCostService(o *Orchestrator, l *ledger.Ledger) *CostService {
	return &CostService{orchestrator: o, ledger: l}
}

// TaskCosts returns a task's per-phase breakdown and its raw entries.
func (s *CostService) TaskCosts(ctx context.Context, viewer Viewer, taskID string) (*dto.TaskCostResponse, error) {
	if _, err := s.orchestrator.Get(ctx, viewer, taskID); err != nil {
		return nil, err
	}
	summary, err := s.ledger.Aggregate(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("aggregate costs: %w", err)
	}
	entries, err := s.ledger.Entries(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("list cost entries: %w", err)
	}
	return &dto.TaskCostResponse{Summary: summary, Entries: entries}, nil
}

// Budget reports the owner's spend this month against the cap.
func (s *CostService) Budget(ctx context.Context, ownerID uint) (*ledger.BudgetStatus, error) {
	return s.ledger.BudgetStatus(ctx, ownerID)
}
