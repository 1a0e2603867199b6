package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/location-search/internal/domain"
	"github.com/couchcryptid/location-search/internal/querycache"
	"github.com/couchcryptid/location-search/internal/search"
)

// Searcher is the part of search.Controller the API needs.
type Searcher interface {
	Search(q string) querycache.Snapshot
	Await(ctx context.Context, q string) (querycache.Snapshot, error)
	Select(ctx context.Context, target domain.Target) (domain.Location, error)
}

const maxBodyBytes = 1 << 16

type apiHandler struct {
	api    Searcher
	logger *slog.Logger
}

type errorResponse struct {
	Error string `json:"error"`
}

// locationRequest accepts either a place ID or a coordinate pair.
type locationRequest struct {
	PlaceID   string   `json:"place_id"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (r locationRequest) target() (domain.Target, error) {
	if r.PlaceID != "" {
		return domain.Target{PlaceID: r.PlaceID}, nil
	}
	if r.Latitude == nil || r.Longitude == nil {
		return domain.Target{}, errors.New("place_id or latitude and longitude are required")
	}
	t := domain.CoordinateTarget(*r.Latitude, *r.Longitude)
	return t, t.Validate()
}

// handleSuggestions returns the cached state of q, starting its lookup if it
// is new. With wait=true it holds the response until the lookup settles or
// the client goes away.
func (h *apiHandler) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	if !params.Has("q") {
		sharedobs.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: "missing query parameter q"})
		return
	}
	q := params.Get("q")

	wait := false
	if v := params.Get("wait"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			sharedobs.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid wait %q", v)})
			return
		}
		wait = b
	}

	snap := h.api.Search(q)
	if wait && snap.Loading {
		var err error
		snap, err = h.api.Await(r.Context(), q)
		if err != nil {
			h.logger.Debug("suggestions wait ended early", "query", q, "error", err)
		}
	}
	sharedobs.WriteJSON(w, http.StatusOK, snap)
}

// handleLocations resolves a place ID or coordinates into a location.
func (h *apiHandler) handleLocations(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sharedobs.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	target, err := req.target()
	if err != nil {
		sharedobs.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	loc, err := h.api.Select(r.Context(), target)
	switch {
	case err == nil:
		sharedobs.WriteJSON(w, http.StatusOK, loc)
	case errors.Is(err, domain.ErrEmptyResolution):
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, search.ErrClosed):
		sharedobs.WriteJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	default:
		h.logger.Warn("location request failed", "target", target.String(), "error", err)
		sharedobs.WriteJSON(w, http.StatusBadGateway, errorResponse{Error: domain.UpstreamMessage(err)})
	}
}
