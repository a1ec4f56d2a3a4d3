package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ngocvh/licensewatch/internal/db"
	"github.com/ngocvh/licensewatch/internal/dispatch"
)

type fakeSweeper struct {
	result    *dispatch.SweepResult
	sweepErr  error
	resendErr error
	resent    []uuid.UUID
}

func (f *fakeSweeper) RunSweep(ctx context.Context) (*dispatch.SweepResult, error) {
	if f.sweepErr != nil {
		return nil, f.sweepErr
	}
	return f.result, nil
}

func (f *fakeSweeper) Resend(ctx context.Context, id uuid.UUID) error {
	f.resent = append(f.resent, id)
	return f.resendErr
}

type fakeLedger struct {
	notifications []*db.Notification
	total         int
	err           error
	lastFilter    db.NotificationFilter
}

func (f *fakeLedger) ListNotifications(ctx context.Context, filter db.NotificationFilter) ([]*db.Notification, int, error) {
	f.lastFilter = filter
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.notifications, f.total, nil
}

func newTestRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Post("/v1/reminders/run", h.RunSweep)
	r.Get("/v1/notifications", h.ListNotifications)
	r.Post("/v1/notifications/{id}/resend", h.ResendNotification)
	return r
}

func TestRunSweepReturnsFullResult(t *testing.T) {
	assetID := uuid.New()
	sweeper := &fakeSweeper{result: &dispatch.SweepResult{
		Scanned: 5,
		Success: 3,
		Failed:  1,
		Errors: []dispatch.AssetError{
			{AssetID: assetID, AssetName: "Tableau", Error: "no recipient address resolves"},
		},
		ChannelResults: dispatch.ChannelResults{Email: 3, Webhook: 1},
	}}
	h := NewHandler(zap.NewNop(), &fakeLedger{}, sweeper)

	req := httptest.NewRequest("POST", "/v1/reminders/run", nil)
	rec := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var result dispatch.SweepResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Scanned != 5 || result.Success != 3 || result.Failed != 1 {
		t.Errorf("result = %+v", result)
	}
	if len(result.Errors) != 1 || result.Errors[0].AssetName != "Tableau" {
		t.Errorf("errors = %+v", result.Errors)
	}
	if result.ChannelResults.Email != 3 {
		t.Errorf("channelResults = %+v", result.ChannelResults)
	}
}

func TestRunSweepFatalError(t *testing.T) {
	sweeper := &fakeSweeper{sweepErr: errors.New("load reminder candidates: connection refused")}
	h := NewHandler(zap.NewNop(), &fakeLedger{}, sweeper)

	req := httptest.NewRequest("POST", "/v1/reminders/run", nil)
	rec := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestListNotificationsPagination(t *testing.T) {
	ledger := &fakeLedger{
		notifications: []*db.Notification{{ID: uuid.New(), Status: db.StatusSent}},
		total:         41,
	}
	h := NewHandler(zap.NewNop(), ledger, &fakeSweeper{})

	req := httptest.NewRequest("GET", "/v1/notifications?page=2&limit=20&status=SENT", nil)
	rec := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	if ledger.lastFilter.Status != "SENT" || ledger.lastFilter.Offset != 20 || ledger.lastFilter.Limit != 20 {
		t.Errorf("filter = %+v", ledger.lastFilter)
	}

	var resp ListResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Pagination.Total != 41 || resp.Pagination.TotalPages != 3 || resp.Pagination.Page != 2 {
		t.Errorf("pagination = %+v", resp.Pagination)
	}
}

func TestResendNotification(t *testing.T) {
	sweeper := &fakeSweeper{}
	h := NewHandler(zap.NewNop(), &fakeLedger{}, sweeper)
	id := uuid.New()

	req := httptest.NewRequest("POST", "/v1/notifications/"+id.String()+"/resend", nil)
	rec := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(sweeper.resent) != 1 || sweeper.resent[0] != id {
		t.Errorf("resent = %v", sweeper.resent)
	}
}

func TestResendNotificationNotFound(t *testing.T) {
	sweeper := &fakeSweeper{resendErr: errors.New("notification not found: abc")}
	h := NewHandler(zap.NewNop(), &fakeLedger{}, sweeper)

	req := httptest.NewRequest("POST", "/v1/notifications/"+uuid.NewString()+"/resend", nil)
	rec := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestResendNotificationBadID(t *testing.T) {
	h := NewHandler(zap.NewNop(), &fakeLedger{}, &fakeSweeper{})

	req := httptest.NewRequest("POST", "/v1/notifications/not-a-uuid/resend", nil)
	rec := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireRole([]string{"ADMIN", "MANAGER"}, zap.NewNop())(inner)

	tests := []struct {
		name string
		role string
		want int
	}{
		{"admin_allowed", "ADMIN", http.StatusOK},
		{"manager_allowed", "MANAGER", http.StatusOK},
		{"viewer_forbidden", "VIEWER", http.StatusForbidden},
		{"missing_forbidden", "", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/v1/reminders/run", nil)
			if tt.role != "" {
				req.Header.Set("X-Role", tt.role)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRequireRoleEmptyAllowList(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireRole(nil, zap.NewNop())(inner)

	req := httptest.NewRequest("GET", "/v1/notifications", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 for open route", rec.Code)
	}
}
