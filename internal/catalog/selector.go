package catalog

import (
	"errors"
	"fmt"

	"contentgen/internal/models"

	"github.com/shopspring/decimal"
)

// MaxAttempts caps generation attempts per phase, primary included.
const MaxAttempts = 3

var (
	// ErrUnknownModel is returned for a model id missing from the catalog.
	ErrUnknownModel = errors.New("unknown model")
	// ErrNoRoute is returned when the catalog maps no model to (phase, tier).
	ErrNoRoute = errors.New("no model routed")
	// ErrNoPrice is returned when the price table lacks (phase, model).
	ErrNoPrice = errors.New("no price listed")
)

// Candidate is one step of a phase's fallback chain.
type Candidate struct {
	Tier    models.QualityTier `json:"tier"`
	ModelID string             `json:"model_id"`
}

// Estimate is an up-front cost projection for a task.
type Estimate struct {
	PerPhase map[models.Phase]decimal.Decimal `json:"per_phase"`
	Models   map[models.Phase]string          `json:"models"`
	// Total covers the base path without refine passes.
	Total decimal.Decimal `json:"total"`
	// MaxTotal adds the refine cap's worth of refine passes.
	MaxTotal decimal.Decimal `json:"max_total"`
}

// Selector picks models per phase and prices them. It never retries on its
// own; callers walk Candidates.
type Selector struct {
	catalog *Catalog
}

// NewSelector creates a Selector over an immutable catalog.
func NewSelector(c *Catalog) *Selector {
	return &Selector{catalog: c}
}

// Catalog returns the underlying catalog.
func (s *Selector) Catalog() *Catalog {
	return s.catalog
}

// Resolve returns the explicit model when set, otherwise the catalog route
// for (phase, tier).
func (s *Selector) Resolve(phase models.Phase, explicit string, tier models.QualityTier) (string, error) {
	if explicit != "" {
		if _, ok := s.catalog.Model(explicit); !ok {
			return "", fmt.Errorf("%w: %s", ErrUnknownModel, explicit)
		}
		return explicit, nil
	}
	id, ok := s.catalog.Route(phase, tier)
	if !ok {
		return "", fmt.Errorf("%w: phase=%s tier=%s", ErrNoRoute, phase, tier)
	}
	return id, nil
}

// EstimateCost looks up the static per-phase price of a model.
func (s *Selector) EstimateCost(phase models.Phase, modelID string) (decimal.Decimal, error) {
	if _, ok := s.catalog.Model(modelID); !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownModel, modelID)
	}
	price, ok := s.catalog.Price(phase, modelID)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: phase=%s model=%s", ErrNoPrice, phase, modelID)
	}
	return price, nil
}

// Provider returns the provider label of a model, or "" when unknown.
func (s *Selector) Provider(modelID string) string {
	m, ok := s.catalog.Model(modelID)
	if !ok {
		return ""
	}
	return m.Provider
}

// Candidates returns the ordered fallback chain for a phase: the resolved
// model first, then the routes of lower tiers (nearest first), then higher
// tiers (nearest first). Duplicate models are skipped and the chain is capped
// at MaxAttempts.
func (s *Selector) Candidates(phase models.Phase, explicit string, tier models.QualityTier) ([]Candidate, error) {
	primary, err := s.Resolve(phase, explicit, tier)
	if err != nil {
		return nil, err
	}

	chain := []Candidate{{Tier: tier, ModelID: primary}}
	seen := map[string]bool{primary: true}

	var order []models.QualityTier
	rank := tier.Rank()
	for i := rank - 1; i >= 0; i-- {
		order = append(order, models.TierOrder[i])
	}
	for i := rank + 1; i < len(models.TierOrder); i++ {
		order = append(order, models.TierOrder[i])
	}

	for _, t := range order {
		if len(chain) >= MaxAttempts {
			break
		}
		id, ok := s.catalog.Route(phase, t)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		chain = append(chain, Candidate{Tier: t, ModelID: id})
	}
	return chain, nil
}

// EstimateTask prices the base path of a task plus refineCap refine passes.
func (s *Selector) EstimateTask(assignments models.StringMap, tier models.QualityTier, refineCap int) (*Estimate, error) {
	est := &Estimate{
		PerPhase: make(map[models.Phase]decimal.Decimal),
		Models:   make(map[models.Phase]string),
		Total:    decimal.Zero,
	}

	for _, phase := range models.BasePath {
		modelID, err := s.Resolve(phase, assignments[string(phase)], tier)
		if err != nil {
			return nil, err
		}
		price, err := s.EstimateCost(phase, modelID)
		if err != nil {
			return nil, err
		}
		est.PerPhase[phase] = price
		est.Models[phase] = modelID
		est.Total = est.Total.Add(price)
	}

	est.MaxTotal = est.Total
	if refineCap > 0 {
		modelID, err := s.Resolve(models.PhaseRefine, assignments[string(models.PhaseRefine)], tier)
		if err != nil {
			return nil, err
		}
		price, err := s.EstimateCost(models.PhaseRefine, modelID)
		if err != nil {
			return nil, err
		}
		est.Models[models.PhaseRefine] = modelID
		est.MaxTotal = est.MaxTotal.Add(price.Mul(decimal.NewFromInt(int64(refineCap))))
	}
	return est, nil
}
