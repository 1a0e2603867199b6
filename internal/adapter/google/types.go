package google

import "fmt"

// Google response status values. See the domain package docs for meanings.
const (
	statusOK             = "OK"
	statusZeroResults    = "ZERO_RESULTS"
	statusOverQueryLimit = "OVER_QUERY_LIMIT"
)

// Google Maps API response types.

type autocompleteResponse struct {
	Predictions  []prediction `json:"predictions"`
	Status       string       `json:"status"`
	ErrorMessage string       `json:"error_message,omitempty"`
}

type prediction struct {
	PlaceID              string               `json:"place_id"`
	Description          string               `json:"description"`
	StructuredFormatting structuredFormatting `json:"structured_formatting"`
}

type structuredFormatting struct {
	MainText      string `json:"main_text"`
	SecondaryText string `json:"secondary_text,omitempty"`
}

type detailsResponse struct {
	Result       *place `json:"result"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type geocodeResponse struct {
	Results      []place `json:"results"`
	Status       string  `json:"status"`
	ErrorMessage string  `json:"error_message,omitempty"`
}

// place is the shared shape of a details result and a geocoding result.
type place struct {
	PlaceID           string             `json:"place_id"`
	Name              string             `json:"name,omitempty"`
	FormattedAddress  string             `json:"formatted_address"`
	Geometry          geometry           `json:"geometry"`
	AddressComponents []addressComponent `json:"address_components,omitempty"`
}

type geometry struct {
	Location latLng `json:"location"`
}

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type addressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

// statusError converts a non-success Google status into an error carrying
// the upstream message. An absent status is read as success; the payload
// alone decides the outcome then.
func statusError(status, message string) error {
	switch status {
	case "", statusOK, statusZeroResults:
		return nil
	}
	if message != "" {
		return fmt.Errorf("%s: %s", status, message)
	}
	return fmt.Errorf("%s", status)
}
