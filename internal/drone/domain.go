package drone

import (
	"time"

	"github.com/google/uuid"

	"drone-fleet/internal/common"
	domainerrors "drone-fleet/internal/errors"
)

var allStatuses = []Status{StatusAvailable, StatusInTransit, StatusCharging, StatusMaintenance, StatusOffline}

func ParseStatus(s string) (Status, error) {
	for _, st := range allStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", domainerrors.NewValidation("unknown drone status " + s)
}

// IsMaintenance reports whether s can be set by a maintenance operation.
// in-transit belongs to the assignment path only.
func (s Status) IsMaintenance() bool {
	switch s {
	case StatusAvailable, StatusCharging, StatusMaintenance, StatusOffline:
		return true
	}
	return false
}

func New(req RegisterDroneRequest) *Drone {
	now := time.Now().UTC()
	return &Drone{
		ID:           uuid.New(),
		Name:         req.Name,
		Model:        req.Model,
		Status:       StatusAvailable,
		BatteryLevel: 100,
		Latitude:     req.Location.Lat,
		Longitude:    req.Location.Lng,
		Address:      req.Address,
		MaxPayload:   req.MaxPayload,
		Range:        req.Range,
		Speed:        req.Speed,
		OperatorID:   req.OperatorID,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (d *Drone) Location() common.Location {
	return common.NewLocation(d.Latitude, d.Longitude)
}

// Claimable reports whether the drone may take an order right now.
func (d *Drone) Claimable() bool {
	return d.Status == StatusAvailable && d.IsActive
}

// CanCarry reports whether the payload limit covers weight kg.
func (d *Drone) CanCarry(weight float64) bool {
	return d.MaxPayload <= 0 || weight <= d.MaxPayload
}

func ClampBattery(level float64) float64 {
	switch {
	case level < 0:
		return 0
	case level > 100:
		return 100
	}
	return level
}

func (d *Drone) ApplySpecs(req UpdateDroneRequest, now time.Time) {
	if req.Name != nil {
		d.Name = *req.Name
	}
	if req.Model != nil {
		d.Model = *req.Model
	}
	if req.MaxPayload != nil {
		d.MaxPayload = *req.MaxPayload
	}
	if req.Range != nil {
		d.Range = *req.Range
	}
	if req.Speed != nil {
		d.Speed = *req.Speed
	}
	if req.OperatorID != nil {
		d.OperatorID = clonePtr(req.OperatorID)
	}
	d.UpdatedAt = now
}

func (d *Drone) Clone() *Drone {
	if d == nil {
		return nil
	}
	c := *d
	c.Address = clonePtr(d.Address)
	c.OperatorID = clonePtr(d.OperatorID)
	c.LastMaintenance = clonePtr(d.LastMaintenance)
	c.NextMaintenance = clonePtr(d.NextMaintenance)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func (d *Drone) Fix() Fix {
	return Fix{Lat: d.Latitude, Lng: d.Longitude, Address: clonePtr(d.Address), RecordedAt: d.UpdatedAt}
}
