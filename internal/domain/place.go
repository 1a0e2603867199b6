package domain

import (
	"errors"
	"fmt"
	"time"
)

// Suggestion is an autocomplete candidate. It only lives as long as the
// query that produced it.
type Suggestion struct {
	PlaceID  string `json:"place_id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
}

// Target returns the resolution target for the suggestion.
func (s Suggestion) Target() Target {
	return Target{PlaceID: s.PlaceID}
}

// Location is the normalized result of a resolution.
type Location struct {
	PlaceID          string  `json:"place_id"`
	Name             string  `json:"name"`
	FormattedAddress string  `json:"formatted_address"`
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
}

// SelectedLocation is a location resolved within a search session, as
// written to the location sink.
type SelectedLocation struct {
	Location
	SessionID  string    `json:"session_id"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// Target is a selection to resolve: a place ID, or a coordinate pair when
// PlaceID is empty.
type Target struct {
	PlaceID   string  `json:"place_id,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
}

// CoordinateTarget builds a reverse geocoding target.
func CoordinateTarget(lat, lng float64) Target {
	return Target{Latitude: lat, Longitude: lng}
}

// IsPlace reports whether the target takes the place details path.
func (t Target) IsPlace() bool {
	return t.PlaceID != ""
}

// Validate rejects coordinates outside the WGS84 range. Place targets are
// not checked; an unknown ID is reported by the upstream service.
func (t Target) Validate() error {
	if t.IsPlace() {
		return nil
	}
	if t.Latitude < -90 || t.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range", t.Latitude)
	}
	if t.Longitude < -180 || t.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range", t.Longitude)
	}
	return nil
}

func (t Target) String() string {
	if t.IsPlace() {
		return "place:" + t.PlaceID
	}
	return fmt.Sprintf("latlng:%v,%v", t.Latitude, t.Longitude)
}

var errNoResolver = errors.New("no resolver configured")
