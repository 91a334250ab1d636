package fleet_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drone-fleet/internal/common"
	"drone-fleet/internal/drone"
	domainerrors "drone-fleet/internal/errors"
	"drone-fleet/internal/fleet"
	"drone-fleet/internal/store/memory"
)

func TestRegister_Defaults(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	c := fleet.NewCoordinator(memory.New(), fleet.WithClock(func() time.Time { return now }))

	d := registerDrone(t, c, 51.5, -0.12, 4)
	assert.Equal(t, drone.StatusAvailable, d.Status)
	assert.Equal(t, 100.0, d.BatteryLevel)
	assert.Zero(t, d.FlightHours)
	assert.True(t, d.IsActive)
	assert.Equal(t, now, d.CreatedAt)
}

func TestRegister_Validation(t *testing.T) {
	c := fleet.NewCoordinator(memory.New())

	tests := []struct {
		name string
		req  drone.RegisterDroneRequest
	}{
		{"missing name", drone.RegisterDroneRequest{Model: "m", MaxPayload: 1, Range: 1, Speed: 1}},
		{"zero payload", drone.RegisterDroneRequest{Name: "n", Model: "m", Range: 1, Speed: 1}},
		{"bad latitude", drone.RegisterDroneRequest{Name: "n", Model: "m", MaxPayload: 1, Range: 1, Speed: 1, Location: common.NewLocation(120, 0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Register(context.Background(), tt.req)
			assert.True(t, domainerrors.HasCode(err, domainerrors.ErrValidation), "got %v", err)
		})
	}
}

func TestList_Filters(t *testing.T) {
	ctx := context.Background()
	c := fleet.NewCoordinator(memory.New())
	registerDrone(t, c, 0, 0, 5)
	b := registerDrone(t, c, 0, 0, 5)
	_, err := c.SetMaintenanceStatus(ctx, b.ID, drone.StatusMaintenance)
	require.NoError(t, err)

	status := drone.StatusMaintenance
	got, err := c.List(ctx, drone.Filter{Status: &status})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, b.ID, got[0].ID)

	all, err := c.List(ctx, drone.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSetMaintenanceStatus(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	c := fleet.NewCoordinator(st)
	d := registerDrone(t, c, 0, 0, 5)

	got, err := c.SetMaintenanceStatus(ctx, d.ID, drone.StatusOffline)
	require.NoError(t, err)
	assert.Equal(t, drone.StatusOffline, got.Status)

	_, err = c.SetMaintenanceStatus(ctx, d.ID, drone.StatusInTransit)
	assert.True(t, domainerrors.HasCode(err, domainerrors.ErrInvalidTransition))

	_, err = c.SetMaintenanceStatus(ctx, uuid.New(), drone.StatusCharging)
	assert.True(t, domainerrors.HasCode(err, domainerrors.ErrNotFound))

	// a drone in flight cannot be sent to maintenance
	flying := registerDrone(t, c, 0, 0, 5)
	o := createOrder(t, st, 1, time.Now())
	_, err = c.Assign(ctx, o.ID, flying.ID, "")
	require.NoError(t, err)
	_, err = c.SetMaintenanceStatus(ctx, flying.ID, drone.StatusAvailable)
	assert.True(t, domainerrors.HasCode(err, domainerrors.ErrInvalidTransition))
	assertBindingInvariant(t, st)
}

func TestRecordMaintenance(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	c := fleet.NewCoordinator(st)
	d := registerDrone(t, c, 0, 0, 5)

	performed := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
	next := performed.AddDate(0, 3, 0)
	hours := 212.5
	got, err := c.RecordMaintenance(ctx, d.ID, drone.MaintenanceRecord{
		PerformedAt:     performed,
		NextMaintenance: &next,
		FlightHours:     &hours,
	})
	require.NoError(t, err)
	require.NotNil(t, got.LastMaintenance)
	assert.True(t, performed.Equal(*got.LastMaintenance))
	require.NotNil(t, got.NextMaintenance)
	assert.True(t, next.Equal(*got.NextMaintenance))
	assert.Equal(t, 212.5, got.FlightHours)

	neg := -1.0
	_, err = c.RecordMaintenance(ctx, d.ID, drone.MaintenanceRecord{FlightHours: &neg})
	assert.True(t, domainerrors.HasCode(err, domainerrors.ErrValidation))
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	cache := &fakeCache{}
	c := fleet.NewCoordinator(st, fleet.WithLocationCache(cache))

	idle := registerDrone(t, c, 0, 0, 5)
	_, err := c.UpdateLocation(ctx, idle.ID, 1, 1, nil)
	require.NoError(t, err)
	require.NoError(t, c.Delete(ctx, idle.ID))
	_, err = c.Get(ctx, idle.ID)
	assert.True(t, domainerrors.HasCode(err, domainerrors.ErrNotFound))
	assert.NotContains(t, cache.fixes, idle.ID.String())

	busy := registerDrone(t, c, 0, 0, 5)
	o := createOrder(t, st, 1, time.Now())
	_, err = c.Assign(ctx, o.ID, busy.ID, "")
	require.NoError(t, err)
	err = c.Delete(ctx, busy.ID)
	assert.True(t, domainerrors.HasCode(err, domainerrors.ErrConflict))
	_, err = c.Get(ctx, busy.ID)
	require.NoError(t, err)

	err = c.Delete(ctx, uuid.New())
	assert.True(t, domainerrors.HasCode(err, domainerrors.ErrNotFound))
}

func TestUpdateSpecs(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	c := fleet.NewCoordinator(st)

	d := registerDrone(t, c, 40.71, -74.0, 1)
	o := createOrder(t, st, 3, time.Now())
	_, err := c.AutoAssign(ctx, o.ID, "")
	require.True(t, domainerrors.HasCode(err, domainerrors.ErrDroneUnavailable))

	payload, name, operator := 5.0, "Falcon II", "op-3"
	got, err := c.UpdateSpecs(ctx, d.ID, drone.UpdateDroneRequest{MaxPayload: &payload, Name: &name, OperatorID: &operator})
	require.NoError(t, err)
	assert.Equal(t, 5.0, got.MaxPayload)
	assert.Equal(t, "Falcon II", got.Name)
	assert.Equal(t, "DX-1", got.Model)
	assert.Equal(t, 25.0, got.Range)
	require.NotNil(t, got.OperatorID)
	assert.Equal(t, "op-3", *got.OperatorID)
	assert.Equal(t, drone.StatusAvailable, got.Status)

	res, err := c.AutoAssign(ctx, o.ID, "")
	require.NoError(t, err)
	assert.Equal(t, d.ID, res.Drone.ID)

	tests := []struct {
		name string
		req  drone.UpdateDroneRequest
	}{
		{"zero payload", drone.UpdateDroneRequest{MaxPayload: ptr(0.0)}},
		{"negative speed", drone.UpdateDroneRequest{Speed: ptr(-1.0)}},
		{"empty name", drone.UpdateDroneRequest{Name: ptr("")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.UpdateSpecs(ctx, d.ID, tt.req)
			assert.True(t, domainerrors.HasCode(err, domainerrors.ErrValidation))
		})
	}

	_, err = c.UpdateSpecs(ctx, uuid.New(), drone.UpdateDroneRequest{MaxPayload: &payload})
	assert.True(t, domainerrors.HasCode(err, domainerrors.ErrNotFound))
}

func ptr[T any](v T) *T { return &v }
