// Package units converts raw (amount, unit) pairs into canonical base units
// for aggregation. Raw amounts and their original unit are always what gets
// stored; conversion happens only when reporting.
package units

import (
	"fmt"

	"recolecta/internal/models"
)

// Dimension is the physical dimension of a measurement unit.
type Dimension string

const (
	// Mass units normalize to kilograms.
	Mass Dimension = "mass"
	// Volume units normalize to cubic meters.
	Volume Dimension = "volume"
)

// Canonical base unit per dimension.
const (
	BaseMass   = "kg"
	BaseVolume = "m3"
)

type factor struct {
	dimension Dimension
	toBase    float64
}

// Normalizer holds the fixed conversion-factor table.
type Normalizer struct {
	factors map[string]factor
}

// NewNormalizer returns a normalizer with the standard unit table.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		factors: map[string]factor{
			"kg": {Mass, 1},
			"t":  {Mass, 1000},
			"g":  {Mass, 0.001},
			"m3": {Volume, 1},
			"l":  {Volume, 0.001},
		},
	}
}

// Units lists every unit the normalizer knows, base units first.
func (n *Normalizer) Units() []string {
	return []string{"kg", "m3", "t", "g", "l"}
}

// Known reports whether the unit exists in the conversion table.
func (n *Normalizer) Known(unit string) bool {
	_, ok := n.factors[unit]
	return ok
}

// Dimension returns the physical dimension of a unit.
func (n *Normalizer) Dimension(unit string) (Dimension, error) {
	f, ok := n.factors[unit]
	if !ok {
		return "", models.NewConfigurationError(fmt.Sprintf("unknown measurement unit %q", unit))
	}
	return f.dimension, nil
}

// ToBase converts an amount into its dimension's canonical base unit and
// returns the converted amount together with the base unit name. An unknown
// unit is a configuration error, never a silent default.
func (n *Normalizer) ToBase(amount float64, unit string) (float64, string, error) {
	f, ok := n.factors[unit]
	if !ok {
		return 0, "", models.NewConfigurationError(fmt.Sprintf("unknown measurement unit %q", unit))
	}
	base := BaseMass
	if f.dimension == Volume {
		base = BaseVolume
	}
	return amount * f.toBase, base, nil
}
