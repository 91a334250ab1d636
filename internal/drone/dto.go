package drone

import (
	"time"

	"drone-fleet/internal/common"
)

type RegisterDroneRequest struct {
	Name       string          `json:"name" validate:"required"`
	Model      string          `json:"model" validate:"required"`
	MaxPayload float64         `json:"maxPayload" validate:"gt=0"`
	Range      float64         `json:"range" validate:"gt=0"`
	Speed      float64         `json:"speed" validate:"gt=0"`
	Location   common.Location `json:"location"`
	Address    *string         `json:"address,omitempty"`
	OperatorID *string         `json:"operatorId,omitempty"`
}

// UpdateDroneRequest edits the registered specs. Nil fields are kept.
type UpdateDroneRequest struct {
	Name       *string  `json:"name,omitempty" validate:"omitempty,min=1"`
	Model      *string  `json:"model,omitempty" validate:"omitempty,min=1"`
	MaxPayload *float64 `json:"maxPayload,omitempty" validate:"omitempty,gt=0"`
	Range      *float64 `json:"range,omitempty" validate:"omitempty,gt=0"`
	Speed      *float64 `json:"speed,omitempty" validate:"omitempty,gt=0"`
	OperatorID *string  `json:"operatorId,omitempty"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type SetActiveRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

type LocationRequest struct {
	Lat     *float64 `json:"lat" binding:"required"`
	Lng     *float64 `json:"lng" binding:"required"`
	Address *string  `json:"address,omitempty"`
}

type BatteryRequest struct {
	Level *float64 `json:"batteryLevel" binding:"required"`
}

// MaintenanceRecord is written when a drone comes back from service.
type MaintenanceRecord struct {
	PerformedAt     time.Time  `json:"performedAt"`
	NextMaintenance *time.Time `json:"nextMaintenance,omitempty"`
	FlightHours     *float64   `json:"flightHours,omitempty"`
}

type DroneResponse struct {
	Drone *Drone `json:"drone"`
}

type DronesResponse struct {
	Drones []*Drone `json:"drones"`
}
