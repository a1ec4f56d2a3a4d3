package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ngocvh/licensewatch/internal/db"
	"github.com/ngocvh/licensewatch/internal/dispatch"
)

// Sweeper is the dispatcher capability exposed over HTTP.
type Sweeper interface {
	RunSweep(ctx context.Context) (*dispatch.SweepResult, error)
	Resend(ctx context.Context, notificationID uuid.UUID) error
}

// Ledger is the repository slice used for listing notification history.
type Ledger interface {
	ListNotifications(ctx context.Context, f db.NotificationFilter) ([]*db.Notification, int, error)
}

// ErrorResponse represents an error in problem+json format.
type ErrorResponse struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// ListResponse wraps paginated ledger listings.
type ListResponse struct {
	Data       []*db.Notification `json:"data"`
	Pagination Pagination         `json:"pagination"`
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Handler holds dependencies for API handlers.
type Handler struct {
	logger  *zap.Logger
	ledger  Ledger
	sweeper Sweeper
}

// NewHandler creates a new API handler.
func NewHandler(logger *zap.Logger, ledger Ledger, sweeper Sweeper) *Handler {
	return &Handler{
		logger:  logger,
		ledger:  ledger,
		sweeper: sweeper,
	}
}

// RunSweep handles POST /v1/reminders/run, the administrative run-now
// trigger. The full sweep summary, including per-asset errors, is returned
// to the caller.
func (h *Handler) RunSweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.sweeper.RunSweep(r.Context())
	if err != nil {
		h.logger.Error("manual sweep failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "sweep_failed", "Reminder sweep failed", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// ListNotifications handles GET /v1/notifications with optional status and
// type filters plus page/limit pagination.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 20)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	filter := db.NotificationFilter{
		Status: r.URL.Query().Get("status"),
		Type:   r.URL.Query().Get("type"),
		Limit:  limit,
		Offset: (page - 1) * limit,
	}

	notifications, total, err := h.ledger.ListNotifications(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list notifications", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "list_failed", "Failed to list notifications", err.Error())
		return
	}

	totalPages := (total + limit - 1) / limit
	h.writeJSON(w, http.StatusOK, ListResponse{
		Data: notifications,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
		},
	})
}

// ResendNotification handles POST /v1/notifications/{id}/resend, re-sending
// a past reminder by email.
func (h *Handler) ResendNotification(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid notification id", "id must be a valid UUID")
		return
	}

	if err := h.sweeper.Resend(r.Context(), id); err != nil {
		status := http.StatusInternalServerError
		if strings.Contains(err.Error(), "not found") {
			status = http.StatusNotFound
		}
		h.logger.Error("resend failed", zap.Error(err), zap.String("notification_id", id.String()))
		h.writeError(w, status, "resend_failed", "Failed to resend notification", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"message": "notification resent"})
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, errType, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Type:   errType,
		Title:  title,
		Status: status,
		Detail: detail,
	})
}
