package domain

import "context"

// Autocompleter maps partial text to place suggestions.
type Autocompleter interface {
	Autocomplete(ctx context.Context, query string) ([]Suggestion, error)
}

// Resolver maps a place ID or a coordinate pair to a Location.
type Resolver interface {
	// PlaceDetails looks up a place by the ID returned from autocomplete.
	PlaceDetails(ctx context.Context, placeID string) (Location, error)

	// ReverseGeocode looks up the first address at the coordinates. It
	// returns ErrEmptyResolution when nothing is found.
	ReverseGeocode(ctx context.Context, lat, lng float64) (Location, error)
}

// Resolve dispatches a target to the matching resolution path: place
// details when the target carries a place ID, reverse geocoding otherwise.
func Resolve(ctx context.Context, target Target, resolver Resolver) (Location, error) {
	if resolver == nil {
		return Location{}, ResolveFailed(errNoResolver)
	}
	if target.IsPlace() {
		return resolver.PlaceDetails(ctx, target.PlaceID)
	}
	return resolver.ReverseGeocode(ctx, target.Latitude, target.Longitude)
}
