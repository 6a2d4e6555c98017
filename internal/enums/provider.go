// Package enums exposes the authoritative read-only sets of residue
// categories, measurement units and status values.
package enums

import (
	"context"

	"recolecta/internal/models"
	"recolecta/internal/rules"
	"recolecta/internal/units"
)

// Provider supplies the valid enumeration values. Callers may cache results;
// values only change on redeploy.
type Provider interface {
	Categories(ctx context.Context) ([]string, error)
	MeasureUnits(ctx context.Context) ([]string, error)
	Statuses(ctx context.Context) ([]string, error)
}

type ruleSetProvider struct {
	rs         *rules.RuleSet
	normalizer *units.Normalizer
}

// NewProvider builds a Provider backed by the active rule-set tables and the
// unit conversion table.
func NewProvider(rs *rules.RuleSet, n *units.Normalizer) Provider {
	return &ruleSetProvider{rs: rs, normalizer: n}
}

func (p *ruleSetProvider) Categories(_ context.Context) ([]string, error) {
	out := make([]string, len(p.rs.Categories))
	copy(out, p.rs.Categories)
	return out, nil
}

func (p *ruleSetProvider) MeasureUnits(_ context.Context) ([]string, error) {
	return p.normalizer.Units(), nil
}

func (p *ruleSetProvider) Statuses(_ context.Context) ([]string, error) {
	var out []string
	for _, s := range models.RequestStatuses() {
		out = append(out, string(s))
	}
	// Pickup statuses are a subset of request statuses by value; the
	// combined set has no duplicates to add.
	return out, nil
}
