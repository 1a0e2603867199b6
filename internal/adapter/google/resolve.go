package google

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/couchcryptid/location-search/internal/domain"
)

var errNoResult = errors.New("details response has no result")

// PlaceDetails resolves a place ID through the place details endpoint.
func (c *Client) PlaceDetails(ctx context.Context, placeID string) (domain.Location, error) {
	params := url.Values{
		"key":      {c.apiKey},
		"placeid":  {placeID},
		"language": {c.resolveLanguage},
	}

	var resp detailsResponse
	if err := c.get(ctx, endpointDetails, params, &resp); err != nil {
		return domain.Location{}, c.resolveFailed("details", err)
	}
	c.noteStatus(endpointDetails, resp.Status)
	if err := statusError(resp.Status, resp.ErrorMessage); err != nil {
		return domain.Location{}, c.resolveFailed("details", err)
	}
	if resp.Result == nil {
		return domain.Location{}, c.resolveFailed("details", errNoResult)
	}

	r := resp.Result
	c.metrics.ResolveRequests.WithLabelValues("details", "success").Inc()
	return domain.Location{
		PlaceID:          r.PlaceID,
		Name:             r.Name,
		FormattedAddress: r.FormattedAddress,
		Latitude:         r.Geometry.Location.Lat,
		Longitude:        r.Geometry.Location.Lng,
	}, nil
}

// ReverseGeocode resolves coordinates to the first geocoding result. It
// returns domain.ErrEmptyResolution when Google has no address there.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lng float64) (domain.Location, error) {
	latlng := formatLatLng(lat, lng)
	params := url.Values{
		"latlng":   {latlng},
		"key":      {c.apiKey},
		"language": {c.resolveLanguage},
	}

	var resp geocodeResponse
	if err := c.get(ctx, endpointGeocode, params, &resp); err != nil {
		return domain.Location{}, c.resolveFailed("reverse", err)
	}
	c.noteStatus(endpointGeocode, resp.Status)
	if err := statusError(resp.Status, resp.ErrorMessage); err != nil {
		return domain.Location{}, c.resolveFailed("reverse", err)
	}
	if len(resp.Results) == 0 {
		c.metrics.ResolveRequests.WithLabelValues("reverse", "empty").Inc()
		return domain.Location{}, fmt.Errorf("reverse geocode %s: %w", latlng, domain.ErrEmptyResolution)
	}

	r := resp.Results[0]
	loc := domain.Location{
		PlaceID:          r.PlaceID,
		FormattedAddress: r.FormattedAddress,
		Latitude:         r.Geometry.Location.Lat,
		Longitude:        r.Geometry.Location.Lng,
	}
	if len(r.AddressComponents) > 0 {
		loc.Name = r.AddressComponents[0].LongName
	}
	c.metrics.ResolveRequests.WithLabelValues("reverse", "success").Inc()
	return loc, nil
}

func (c *Client) resolveFailed(method string, err error) error {
	c.metrics.ResolveRequests.WithLabelValues(method, "error").Inc()
	return domain.ResolveFailed(err)
}

// formatLatLng renders "lat,lng" with the shortest exact decimal form.
func formatLatLng(lat, lng float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lng, 'f', -1, 64)
}
