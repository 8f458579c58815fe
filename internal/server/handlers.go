package server

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"subway-map/internal/query"
	"subway-map/internal/subway"
)

// APIHandlers exposes the query engine over HTTP.
type APIHandlers struct {
	logger  *slog.Logger
	engine  *query.Engine
	summary query.NetworkSummary
}

func NewAPIHandlers(logger *slog.Logger, engine *query.Engine) *APIHandlers {
	return &APIHandlers{
		logger:  logger,
		engine:  engine,
		summary: query.Summarize(engine.Network()),
	}
}

func (h *APIHandlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/network", h.handleNetwork).Methods(http.MethodGet)
	r.HandleFunc("/transfers", h.handleTransfers).Methods(http.MethodGet)
	r.HandleFunc("/stations/{name}/nearby", h.handleNearby).Methods(http.MethodGet)
	r.HandleFunc("/paths", h.handlePaths).Methods(http.MethodGet)
}

func (h *APIHandlers) handleNetwork(w http.ResponseWriter, r *http.Request) {
	etag := `"` + h.summary.Fingerprint + `"`
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	respondJSON(w, http.StatusOK, h.summary)
}

func (h *APIHandlers) handleTransfers(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, query.NewTransfersResponse(h.engine.Transfers()))
}

func (h *APIHandlers) handleNearby(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	raw := r.URL.Query().Get("max")
	if raw == "" {
		writeError(w, http.StatusBadRequest, errors.New("query parameter max is required"))
		return
	}
	maxKm, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(maxKm) || math.IsInf(maxKm, 0) || maxKm < 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid max distance %q", raw))
		return
	}

	found, err := h.engine.Nearby(name, maxKm)
	if err != nil {
		h.queryError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, query.NewNearbyResponse(name, maxKm, found))
}

func (h *APIHandlers) handlePaths(w http.ResponseWriter, r *http.Request) {
	from := strings.TrimSpace(r.URL.Query().Get("from"))
	to := strings.TrimSpace(r.URL.Query().Get("to"))
	if from == "" || to == "" {
		writeError(w, http.StatusBadRequest, errors.New("query parameters from and to are required"))
		return
	}

	paths, err := h.engine.Paths(from, to)
	if err != nil {
		h.queryError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, query.NewPathsResponse(from, to, paths))
}

func (h *APIHandlers) queryError(w http.ResponseWriter, err error) {
	if errors.Is(err, subway.ErrStationNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	h.logger.Error("query failed", "error", err)
	writeError(w, http.StatusInternalServerError, err)
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := query.NewErrorResponse(err)
	if status == http.StatusBadRequest {
		resp.Code = "bad_request"
	}
	respondJSON(w, status, resp)
}
