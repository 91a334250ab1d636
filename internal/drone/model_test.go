package drone_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drone-fleet/internal/common"
	"drone-fleet/internal/drone"
)

func TestDrone_JSONNestsLocation(t *testing.T) {
	addr := "Hangar 2"
	d := drone.New(drone.RegisterDroneRequest{
		Name: "Hawk", Model: "X1", MaxPayload: 5,
		Location: common.NewLocation(51.5, -0.12), Address: &addr,
	})

	b, err := json.Marshal(drone.DroneResponse{Drone: d})
	require.NoError(t, err)

	var raw map[string]map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	body := raw["drone"]
	assert.Equal(t, map[string]any{"lat": 51.5, "lng": -0.12, "address": "Hangar 2"}, body["location"])
	assert.NotContains(t, body, "lat")
	assert.NotContains(t, body, "address")
	assert.Equal(t, "Hawk", body["name"])
	assert.Equal(t, "available", body["status"])

	var back drone.DroneResponse
	require.NoError(t, json.Unmarshal(b, &back))
	require.NotNil(t, back.Drone)
	assert.Equal(t, d.ID, back.Drone.ID)
	assert.Equal(t, 51.5, back.Drone.Latitude)
	assert.Equal(t, -0.12, back.Drone.Longitude)
	require.NotNil(t, back.Drone.Address)
	assert.Equal(t, "Hangar 2", *back.Drone.Address)
}
