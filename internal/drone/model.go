package drone

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusAvailable   Status = "available"
	StatusInTransit   Status = "in-transit"
	StatusCharging    Status = "charging"
	StatusMaintenance Status = "maintenance"
	StatusOffline     Status = "offline"
)

type Drone struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	Name            string     `db:"name" json:"name"`
	Model           string     `db:"model" json:"model"`
	Status          Status     `db:"status" json:"status"`
	BatteryLevel    float64    `db:"battery_level" json:"batteryLevel"`
	Latitude        float64    `db:"latitude" json:"-"`
	Longitude       float64    `db:"longitude" json:"-"`
	Address         *string    `db:"address" json:"-"`
	MaxPayload      float64    `db:"max_payload" json:"maxPayload"`
	Range           float64    `db:"range_km" json:"range"`
	Speed           float64    `db:"speed" json:"speed"`
	OperatorID      *string    `db:"operator_id" json:"operatorId,omitempty"`
	FlightHours     float64    `db:"flight_hours" json:"flightHours"`
	IsActive        bool       `db:"is_active" json:"isActive"`
	LastMaintenance *time.Time `db:"last_maintenance" json:"lastMaintenance,omitempty"`
	NextMaintenance *time.Time `db:"next_maintenance" json:"nextMaintenance,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updatedAt"`
}

// Position is the nested location object of a drone on the wire.
type Position struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address *string `json:"address,omitempty"`
}

// droneJSON drops Drone's methods so the wrappers below do not recurse.
type droneJSON Drone

func (d Drone) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		droneJSON
		Location Position `json:"location"`
	}{
		droneJSON: droneJSON(d),
		Location:  Position{Lat: d.Latitude, Lng: d.Longitude, Address: d.Address},
	})
}

func (d *Drone) UnmarshalJSON(b []byte) error {
	w := struct {
		*droneJSON
		Location Position `json:"location"`
	}{droneJSON: (*droneJSON)(d)}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	d.Latitude = w.Location.Lat
	d.Longitude = w.Location.Lng
	d.Address = w.Location.Address
	return nil
}

// Filter narrows a drone listing. Nil fields are ignored.
type Filter struct {
	Status     *Status
	OperatorID *string
	IsActive   *bool
}

// Fix is a reported drone position.
type Fix struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	Address    *string   `json:"address,omitempty"`
	RecordedAt time.Time `json:"recordedAt"`
}
