package service

import (
	"contentgen/internal/catalog"
	"contentgen/internal/dto"
	"contentgen/internal/models"

	"github.com/shopspring/decimal"
)

// ModelService exposes the model catalog to API callers.
type ModelService struct {
	catalog *catalog.Catalog
}

// NewModelService creates a ModelService.
func NewModelService(c *catalog.Catalog) *ModelService {
	return &ModelService{catalog: c}
}

// List returns every catalog model with its phase prices, and the
// phase/tier routing table.
func (s *ModelService) List() *dto.ModelListResponse {
	phases := s.catalog.Phases()

	resp := &dto.ModelListResponse{
		Models: make([]dto.ModelResponse, 0, len(s.catalog.Models())),
		Routes: make(map[models.Phase]map[models.QualityTier]string, len(phases)),
	}
	for _, m := range s.catalog.Models() {
		prices := make(map[string]decimal.Decimal, len(phases))
		for _, p := range phases {
			if price, ok := s.catalog.Price(p, m.ID); ok {
				prices[string(p)] = price
			}
		}
		resp.Models = append(resp.Models, dto.ModelResponse{
			ID:       m.ID,
			Provider: m.Provider,
			Tier:     m.Tier,
			Local:    m.Local,
			Prices:   prices,
		})
	}

	for _, p := range phases {
		tiers := make(map[models.QualityTier]string, len(models.TierOrder))
		for _, t := range models.TierOrder {
			if id, ok := s.catalog.Route(p, t); ok {
				tiers[t] = id
			}
		}
		resp.Routes[p] = tiers
	}
	return resp
}
