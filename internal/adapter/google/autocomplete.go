package google

import (
	"context"
	"errors"
	"net/url"

	"github.com/couchcryptid/location-search/internal/domain"
)

var errEmptyQuery = errors.New("empty query")

// Autocomplete returns place suggestions for a partial query. Failures are
// reported as domain.ErrSearchFailed.
func (c *Client) Autocomplete(ctx context.Context, query string) ([]domain.Suggestion, error) {
	if query == "" {
		return nil, domain.SearchFailed(errEmptyQuery)
	}

	var resp autocompleteResponse
	if err := c.get(ctx, endpointAutocomplete, c.autocompleteParams(query), &resp); err != nil {
		c.metrics.AutocompleteRequests.WithLabelValues("error").Inc()
		return nil, domain.SearchFailed(err)
	}
	c.noteStatus(endpointAutocomplete, resp.Status)
	if err := statusError(resp.Status, resp.ErrorMessage); err != nil {
		c.metrics.AutocompleteRequests.WithLabelValues("error").Inc()
		return nil, domain.SearchFailed(err)
	}

	suggestions := make([]domain.Suggestion, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		suggestions = append(suggestions, domain.Suggestion{
			PlaceID:  p.PlaceID,
			Title:    p.StructuredFormatting.MainText,
			Subtitle: p.Description,
		})
	}

	outcome := "success"
	if len(suggestions) == 0 {
		outcome = "empty"
	}
	c.metrics.AutocompleteRequests.WithLabelValues(outcome).Inc()
	return suggestions, nil
}

// autocompleteParams builds the autocomplete query. components is always
// sent, empty when no country filter is configured.
func (c *Client) autocompleteParams(query string) url.Values {
	components := ""
	if c.country != "" {
		components = "country:" + c.country
	}
	return url.Values{
		"input":      {query},
		"key":        {c.apiKey},
		"language":   {c.language},
		"components": {components},
	}
}
