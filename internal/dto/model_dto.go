package dto

import (
	"contentgen/internal/models"

	"github.com/shopspring/decimal"
)

// ModelResponse is one catalog entry with its per-phase prices.
type ModelResponse struct {
	ID       string                     `json:"id"`
	Provider string                     `json:"provider"`
	Tier     models.QualityTier         `json:"tier"`
	Local    bool                       `json:"local"`
	Prices   map[string]decimal.Decimal `json:"prices"`
}

// ModelListResponse is the catalog listing.
type ModelListResponse struct {
	Models []ModelResponse                                `json:"models"`
	Routes map[models.Phase]map[models.QualityTier]string `json:"routes"`
}
