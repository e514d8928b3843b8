// Package catalog holds the immutable model/price catalog and the model
// selection policy built on it.
package catalog

import (
	"fmt"
	"os"
	"sort"

	"contentgen/internal/models"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Model describes one catalog entry.
type Model struct {
	ID       string             `yaml:"id" json:"id"`
	Provider string             `yaml:"provider" json:"provider"`
	Tier     models.QualityTier `yaml:"tier" json:"tier"`
	Local    bool               `yaml:"local" json:"local"`
}

// fileFormat is the YAML layout of a catalog file.
type fileFormat struct {
	Models []Model `yaml:"models"`
	// phase -> tier -> model id
	Routes map[string]map[string]string `yaml:"routes"`
	// phase -> model id -> price
	Prices map[string]map[string]string `yaml:"prices"`
}

// Catalog is read-only after construction. It is safe for concurrent use.
type Catalog struct {
	models map[string]Model
	order  []string
	routes map[models.Phase]map[models.QualityTier]string
	prices map[models.Phase]map[string]decimal.Decimal
}

// Load reads a catalog file. An empty path yields the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return Parse(b)
}

// Parse builds a catalog from YAML.
func Parse(b []byte) (*Catalog, error) {
	var f fileFormat
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}
	return build(f)
}

func build(f fileFormat) (*Catalog, error) {
	c := &Catalog{
		models: make(map[string]Model, len(f.Models)),
		routes: make(map[models.Phase]map[models.QualityTier]string),
		prices: make(map[models.Phase]map[string]decimal.Decimal),
	}

	for _, m := range f.Models {
		if m.ID == "" {
			return nil, fmt.Errorf("catalog model without id")
		}
		if !m.Tier.Valid() {
			return nil, fmt.Errorf("catalog model %s: invalid tier %q", m.ID, m.Tier)
		}
		if _, dup := c.models[m.ID]; dup {
			return nil, fmt.Errorf("catalog model %s declared twice", m.ID)
		}
		c.models[m.ID] = m
		c.order = append(c.order, m.ID)
	}

	for phaseName, tiers := range f.Routes {
		phase := models.Phase(phaseName)
		if !phase.IsGeneration() {
			return nil, fmt.Errorf("catalog route for non-generation phase %q", phaseName)
		}
		c.routes[phase] = make(map[models.QualityTier]string, len(tiers))
		for tierName, modelID := range tiers {
			tier := models.QualityTier(tierName)
			if !tier.Valid() {
				return nil, fmt.Errorf("catalog route %s: invalid tier %q", phaseName, tierName)
			}
			if _, ok := c.models[modelID]; !ok {
				return nil, fmt.Errorf("catalog route %s/%s: unknown model %q", phaseName, tierName, modelID)
			}
			c.routes[phase][tier] = modelID
		}
	}

	for phaseName, byModel := range f.Prices {
		phase := models.Phase(phaseName)
		if !phase.IsGeneration() {
			return nil, fmt.Errorf("catalog price for non-generation phase %q", phaseName)
		}
		c.prices[phase] = make(map[string]decimal.Decimal, len(byModel))
		for modelID, raw := range byModel {
			if _, ok := c.models[modelID]; !ok {
				return nil, fmt.Errorf("catalog price %s: unknown model %q", phaseName, modelID)
			}
			price, err := decimal.NewFromString(raw)
			if err != nil || price.IsNegative() {
				return nil, fmt.Errorf("catalog price %s/%s: invalid amount %q", phaseName, modelID, raw)
			}
			c.prices[phase][modelID] = price
		}
	}

	// every generation phase must route every tier to a priced model
	for _, phase := range models.GenerationPhases {
		for _, tier := range models.TierOrder {
			modelID := c.routes[phase][tier]
			if modelID == "" {
				return nil, fmt.Errorf("catalog has no %s model for phase %s", tier, phase)
			}
			if _, ok := c.prices[phase][modelID]; !ok {
				return nil, fmt.Errorf("catalog route %s/%s: no price for model %q", phase, tier, modelID)
			}
		}
	}

	return c, nil
}

// Model looks up a model by id.
func (c *Catalog) Model(id string) (Model, bool) {
	m, ok := c.models[id]
	return m, ok
}

// Models lists catalog models in declaration order.
func (c *Catalog) Models() []Model {
	out := make([]Model, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.models[id])
	}
	return out
}

// Route returns the model mapped to (phase, tier).
func (c *Catalog) Route(phase models.Phase, tier models.QualityTier) (string, bool) {
	id, ok := c.routes[phase][tier]
	return id, ok
}

// Price returns the per-phase price of a model.
func (c *Catalog) Price(phase models.Phase, modelID string) (decimal.Decimal, bool) {
	p, ok := c.prices[phase][modelID]
	return p, ok
}

// Phases returns the phases with routes, in pipeline order.
func (c *Catalog) Phases() []models.Phase {
	out := make([]models.Phase, 0, len(c.routes))
	for p := range c.routes {
		out = append(out, p)
	}
	rank := make(map[models.Phase]int, len(models.GenerationPhases))
	for i, p := range models.GenerationPhases {
		rank[p] = i
	}
	sort.Slice(out, func(i, j int) bool { return rank[out[i]] < rank[out[j]] })
	return out
}
