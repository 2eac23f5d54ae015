// internal/units/registry.go

// Package units converts quantities between units of measure. Every unit
// carries a fixed ratio to the base unit of its kind (mass, volume, count);
// all conversions pass through that base unit.
package units

import (
	"context"
	"fmt"

	"github.com/platewise/costing/internal/domain"
	"github.com/platewise/costing/internal/repository"
)

// Registry resolves units by ID and converts quantities to and from base units.
//
// The registry does not validate kind compatibility across a conversion: callers
// are responsible for never converting mass against volume. Known limitation.
type Registry struct {
	units repository.UnitStore
}

func NewRegistry(units repository.UnitStore) *Registry {
	return &Registry{units: units}
}

// Get resolves a unit by ID.
func (r *Registry) Get(ctx context.Context, unitID string) (*domain.Unit, error) {
	unit, err := r.units.GetUnit(ctx, unitID)
	if err != nil {
		return nil, fmt.Errorf("resolve unit %q: %w", unitID, err)
	}
	return unit, nil
}

// ConvertToBase converts qty expressed in the given unit to base units.
func (r *Registry) ConvertToBase(ctx context.Context, qty float64, unitID string) (float64, error) {
	unit, err := r.Get(ctx, unitID)
	if err != nil {
		return 0, err
	}
	return qty * unit.ToBaseRatio, nil
}

// ConvertFromBase converts a base-unit quantity back to the given unit.
func (r *Registry) ConvertFromBase(ctx context.Context, baseQty float64, unitID string) (float64, error) {
	unit, err := r.Get(ctx, unitID)
	if err != nil {
		return 0, err
	}
	return baseQty / unit.ToBaseRatio, nil
}
