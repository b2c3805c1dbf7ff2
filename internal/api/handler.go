package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"trade-journal/config"
	"trade-journal/journal"
	"trade-journal/models"
	"trade-journal/repository"
	"trade-journal/services"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Handler handles HTTP API requests
type Handler struct {
	store  repository.Store
	syncer *journal.Syncer
	cfg    *config.Config
}

// NewHandler creates a new Handler. syncer may be nil when no broker token is
// configured; the sync endpoint then reports the journal as read-only.
func NewHandler(store repository.Store, syncer *journal.Syncer, cfg *config.Config) *Handler {
	return &Handler{store: store, syncer: syncer, cfg: cfg}
}

// HandleHealth returns the health status of the application
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status": "ok",
		"services": map[string]string{
			"database": "unknown",
		},
	}

	if err := h.store.Health(r.Context()); err == nil {
		status["services"].(map[string]string)["database"] = "connected"
	} else {
		status["services"].(map[string]string)["database"] = "disconnected"
		status["status"] = "degraded"
	}

	if h.syncer != nil {
		status["sync_state"] = h.syncer.State()
	}

	cbStatus := services.GetGlobalRegistry().Status()
	status["circuit_breakers"] = cbStatus
	for _, cb := range cbStatus {
		if cb.State == "open" {
			status["status"] = "degraded"
			break
		}
	}

	h.jsonResponse(w, status)
}

// HandleGetPositions returns positions matching the query filters
func (h *Handler) HandleGetPositions(w http.ResponseWriter, r *http.Request) {
	filter, err := parsePositionFilter(r)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	positions, err := h.store.ListPositions(r.Context(), filter)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, positionViews(positions))
}

// HandleGetPosition returns a single position with its operations
func (h *Handler) HandleGetPosition(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.jsonError(w, "invalid position id", http.StatusBadRequest)
		return
	}

	pos, err := h.store.PositionByID(r.Context(), id)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if pos == nil {
		h.jsonError(w, "position not found", http.StatusNotFound)
		return
	}

	h.jsonResponse(w, newPositionView(*pos))
}

// HandleUpdateNote sets the free-text note on a position
func (h *Handler) HandleUpdateNote(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.jsonError(w, "invalid position id", http.StatusBadRequest)
		return
	}

	var req struct {
		Note string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid JSON request", http.StatusBadRequest)
		return
	}

	pos, err := h.store.PositionByID(r.Context(), id)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if pos == nil {
		h.jsonError(w, "position not found", http.StatusNotFound)
		return
	}

	if err := h.store.UpdatePositionNote(r.Context(), id, req.Note); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, map[string]string{"status": "saved", "id": id.String()})
}

// HandleGetPayments returns all associated payments
func (h *Handler) HandleGetPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.store.ListAssociatedPayments(r.Context())
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, payments)
}

// HandleGetStats returns aggregate statistics over closed positions
func (h *Handler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	filter, err := parsePositionFilter(r)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	filter.WithOperations = true

	positions, err := h.store.ListPositions(r.Context(), filter)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, journal.ComputeStats(positions))
}

// HandleSync runs a synchronization pass against the broker
func (h *Handler) HandleSync(w http.ResponseWriter, r *http.Request) {
	if h.syncer == nil {
		h.jsonError(w, "broker token not configured, journal is read-only", http.StatusServiceUnavailable)
		return
	}

	count, err := h.syncer.Sync(r.Context())
	if err != nil {
		if errors.Is(err, journal.ErrSyncInProgress) {
			h.jsonError(w, err.Error(), http.StatusConflict)
			return
		}
		h.jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}

	h.jsonResponse(w, map[string]interface{}{
		"status":         "ok",
		"new_operations": count,
	})
}

// positionView decorates a position with its derived read-only values.
type positionView struct {
	models.Position
	Direction           string `json:"direction"`
	Size                int64  `json:"size"`
	ResultingPercentage string `json:"resulting_percentage"`
	OpenedAt            string `json:"opened_at,omitempty"`
	ClosedAt            string `json:"closed_at,omitempty"`
	TimeInTrade         string `json:"time_in_trade,omitempty"`
}

func newPositionView(p models.Position) positionView {
	v := positionView{
		Position:            p,
		Direction:           p.Direction(),
		Size:                p.Size(),
		ResultingPercentage: p.ResultingPercentage().String(),
	}
	if opened := p.OpenedAt(); !opened.IsZero() {
		v.OpenedAt = opened.Format(time.RFC3339)
		if p.Closed {
			closed := p.ClosedAt()
			v.ClosedAt = closed.Format(time.RFC3339)
			v.TimeInTrade = journal.FormatDuration(closed.Sub(opened))
		}
	}
	return v
}

func positionViews(positions []models.Position) []positionView {
	views := make([]positionView, 0, len(positions))
	for _, p := range positions {
		views = append(views, newPositionView(p))
	}
	return views
}

// parsePositionFilter builds a store filter from query parameters: ticker,
// side, status, from, to, sort, order and expand.
func parsePositionFilter(r *http.Request) (repository.PositionFilter, error) {
	q := r.URL.Query()
	filter := repository.PositionFilter{
		Ticker:    strings.ToUpper(strings.TrimSpace(q.Get("ticker"))),
		SortField: q.Get("sort"),
		SortDesc:  q.Get("order") == "desc",
	}

	switch side := q.Get("side"); side {
	case "":
	case "buy", "long":
		filter.Side = models.SideBuy
	case "sell", "short":
		filter.Side = models.SideSell
	default:
		return filter, errors.New("side must be buy or sell")
	}

	switch status := q.Get("status"); status {
	case "", "win", "loss":
		filter.Status = status
	default:
		return filter, errors.New("status must be win or loss")
	}

	var err error
	if filter.From, err = parseDateParam(q.Get("from")); err != nil {
		return filter, err
	}
	if filter.To, err = parseDateParam(q.Get("to")); err != nil {
		return filter, err
	}

	filter.WithOperations = q.Get("expand") == "operations"
	return filter, nil
}

func parseDateParam(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, errors.New("dates must be RFC3339 or YYYY-MM-DD")
	}
	return t, nil
}

func (h *Handler) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
