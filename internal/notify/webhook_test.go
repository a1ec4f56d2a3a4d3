package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ngocvh/licensewatch/internal/db"
)

func webhookAsset(url string) *db.Asset {
	vendor := "Autodesk"
	emailGroup := "it@company.com"
	asset := &db.Asset{
		ID:         uuid.New(),
		Name:       "AutoCAD",
		VendorName: &vendor,
		ExpireDate: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		Status:     db.AssetActive,
		Department: &db.Department{
			ID:         uuid.New(),
			Name:       "Phòng CNTT",
			EmailGroup: &emailGroup,
		},
		ResponsibleUser: &db.User{
			ID:       uuid.New(),
			FullName: "Nguyễn Văn A",
			Email:    "a.nguyen@company.com",
		},
	}
	if url != "" {
		asset.NotificationWebhookURL = &url
	}
	return asset
}

func TestWebhookDeliverPayloadShape(t *testing.T) {
	var received WebhookPayload
	var userAgent string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(WebhookConfig{}, zap.NewNop())
	n.now = func() time.Time { return time.Date(2025, 6, 1, 1, 0, 0, 0, time.UTC) }

	asset := webhookAsset(srv.URL)
	delivery, err := n.Deliver(context.Background(), asset, 30, db.TypeUpcomingExpiry)
	if err != nil {
		t.Fatalf("Deliver() error: %v", err)
	}
	if delivery.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", delivery.StatusCode)
	}

	if userAgent != webhookUserAgent {
		t.Errorf("User-Agent = %q, want %q", userAgent, webhookUserAgent)
	}
	if received.Type != "license_expiry_notification" {
		t.Errorf("payload type = %q", received.Type)
	}
	if received.Timestamp != "2025-06-01T01:00:00Z" {
		t.Errorf("timestamp = %q", received.Timestamp)
	}
	if received.DaysLeft != 30 {
		t.Errorf("daysLeft = %d, want 30", received.DaysLeft)
	}
	if received.Severity != "MEDIUM" {
		t.Errorf("severity = %q, want MEDIUM", received.Severity)
	}
	if received.Asset.Name != "AutoCAD" || received.Asset.Status != db.AssetActive {
		t.Errorf("asset snapshot = %+v", received.Asset)
	}
	if received.Department == nil || received.Department.Name != "Phòng CNTT" {
		t.Errorf("department snippet = %+v", received.Department)
	}
	if received.ResponsibleUser == nil || received.ResponsibleUser.Email != "a.nguyen@company.com" {
		t.Errorf("responsibleUser snippet = %+v", received.ResponsibleUser)
	}
	if received.Message == "" {
		t.Error("message is empty")
	}
}

func TestWebhookDeliverNullSnippets(t *testing.T) {
	var received map[string]json.RawMessage

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
	}))
	defer srv.Close()

	asset := webhookAsset(srv.URL)
	asset.Department = nil
	asset.ResponsibleUser = nil

	n := NewWebhookNotifier(WebhookConfig{}, zap.NewNop())
	if _, err := n.Deliver(context.Background(), asset, 7, db.TypeUpcomingExpiry); err != nil {
		t.Fatalf("Deliver() error: %v", err)
	}

	if string(received["department"]) != "null" {
		t.Errorf("department = %s, want null", received["department"])
	}
	if string(received["responsibleUser"]) != "null" {
		t.Errorf("responsibleUser = %s, want null", received["responsibleUser"])
	}
}

func TestWebhookDeliverNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(WebhookConfig{}, zap.NewNop())
	_, err := n.Deliver(context.Background(), webhookAsset(srv.URL), 7, db.TypeUpcomingExpiry)
	if err == nil {
		t.Fatal("expected error on non-2xx response")
	}
}

func TestWebhookDeliverMissingURL(t *testing.T) {
	n := NewWebhookNotifier(WebhookConfig{}, zap.NewNop())
	_, err := n.Deliver(context.Background(), webhookAsset(""), 7, db.TypeUpcomingExpiry)
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("error = %v, want ErrNotConfigured", err)
	}
}

func TestParseChannels(t *testing.T) {
	tests := []struct {
		in   string
		want []Channel
	}{
		{"EMAIL", []Channel{ChannelEmail}},
		{"EMAIL,WEBHOOK", []Channel{ChannelEmail, ChannelWebhook}},
		{" email , Webhook ", []Channel{ChannelEmail, ChannelWebhook}},
		{"EMAIL,,TELEGRAM", []Channel{ChannelEmail, ChannelTelegram}},
		{"", nil},
	}

	for _, tt := range tests {
		got := ParseChannels(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("ParseChannels(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ParseChannels(%q)[%d] = %v, want %v", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}
