// Package domain models place search and resolution for the location-search
// service.
//
// # Data Source
//
// Suggestions and locations come from the Google Maps Platform web services:
// the Places API (autocomplete and place details) and the Geocoding API
// (reverse geocoding). All three endpoints are plain HTTPS GETs that answer
// with JSON and carry a top-level "status" field next to the payload.
//
// # Google Conventions
//
// Status values:
//
//	"OK"               request succeeded, payload present
//	"ZERO_RESULTS"     request succeeded, nothing matched
//	"REQUEST_DENIED"   key missing, invalid, or not enabled for the API
//	"INVALID_REQUEST"  a required parameter is missing
//	"OVER_QUERY_LIMIT" quota exhausted
//	"UNKNOWN_ERROR"    server side failure, may succeed on retry
//
// Only OK and ZERO_RESULTS are successes. Every other status is reported with
// the upstream "error_message" when Google includes one.
//
// Autocomplete predictions:
//
//	place_id                          →  Suggestion.PlaceID
//	structured_formatting.main_text   →  Suggestion.Title     e.g. "Avenida Paulista"
//	description                       →  Suggestion.Subtitle  e.g. "Avenida Paulista, São Paulo - SP, Brasil"
//
// Coordinates:
//
//	Google uses {"lat": ..., "lng": ...} objects. The reverse geocoding
//	"latlng" parameter is the comma separated "lat,lng" pair, latitude first.
//
// Reverse geocoding names:
//
//	The geocoding API has no "name" field. The first address component's
//	long_name is used instead, which for street addresses is the street
//	number and for localities is the locality itself.
//
// # Query Keys
//
// Queries are cached under the literal input string. "Paulista", "paulista"
// and "Paulista " are three different keys; no trimming or case folding is
// applied. See [Resolve] for how a selection is dispatched to the two
// resolution paths.
package domain
