package providers

import "github.com/safarides/safar-backend/pkg/models"

// RegisterProviderRequest creates a new provider. Reliability, rating and
// ride counters always start at platform defaults.
type RegisterProviderRequest struct {
	Name           string              `json:"name" binding:"required,min=2,max=100"`
	Phone          string              `json:"phone" binding:"required,e164"`
	Type           models.ProviderType `json:"type" binding:"required,oneof=INDIVIDUAL FLEET"`
	VehicleModel   *string             `json:"vehicle_model,omitempty"`
	VehiclePlate   *string             `json:"vehicle_plate,omitempty"`
	CommissionRate *float64            `json:"commission_rate,omitempty" binding:"omitempty,gt=0,lt=1"`
}

// UpdateProviderRequest mutates provider profile fields. Identity and the
// performance counters are deliberately absent: those only move through the
// metrics pipeline.
type UpdateProviderRequest struct {
	Name           *string              `json:"name,omitempty" binding:"omitempty,min=2,max=100"`
	Type           *models.ProviderType `json:"type,omitempty" binding:"omitempty,oneof=INDIVIDUAL FLEET"`
	VehicleModel   *string              `json:"vehicle_model,omitempty"`
	VehiclePlate   *string              `json:"vehicle_plate,omitempty"`
	CommissionRate *float64             `json:"commission_rate,omitempty" binding:"omitempty,gt=0,lt=1"`
	Active         *bool                `json:"active,omitempty"`
}

// PauseProviderRequest takes a provider out of rotation for a bounded window.
type PauseProviderRequest struct {
	Reason string `json:"reason" binding:"required,min=3,max=200"`
	Hours  int    `json:"hours" binding:"required,min=1,max=168"`
}

// ListFilter narrows provider listings.
type ListFilter struct {
	Active *bool
}
