package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ngocvh/licensewatch/internal/db"
	"github.com/ngocvh/licensewatch/internal/policy"
)

const webhookUserAgent = "Software-License-Manager/1.0"

// WebhookConfig holds webhook notifier settings.
type WebhookConfig struct {
	Timeout time.Duration
}

// WebhookNotifier POSTs a structured expiry payload to the asset's
// configured URL. Existing receivers (e.g. n8n flows) depend on the exact
// payload shape.
type WebhookNotifier struct {
	client *http.Client
	logger *zap.Logger
	now    func() time.Time
}

// WebhookPayload is the wire format delivered to receivers.
type WebhookPayload struct {
	Type            string       `json:"type"`
	Timestamp       string       `json:"timestamp"`
	Asset           WebhookAsset `json:"asset"`
	DaysLeft        int          `json:"daysLeft"`
	Department      *WebhookDept `json:"department"`
	ResponsibleUser *WebhookUser `json:"responsibleUser"`
	Message         string       `json:"message"`
	Severity        string       `json:"severity"`
}

type WebhookAsset struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	VendorName  *string   `json:"vendorName"`
	LicenseType *string   `json:"licenseType"`
	ExpireDate  time.Time `json:"expireDate"`
	Status      string    `json:"status"`
}

type WebhookDept struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type WebhookUser struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"fullName"`
	Email    string    `json:"email"`
}

// NewWebhookNotifier creates a webhook notifier.
func NewWebhookNotifier(cfg WebhookConfig, logger *zap.Logger) *WebhookNotifier {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &WebhookNotifier{
		client: &http.Client{Timeout: timeout},
		logger: logger,
		now:    time.Now,
	}
}

func (n *WebhookNotifier) Channel() Channel {
	return ChannelWebhook
}

// Deliver builds the payload and POSTs it to the asset's webhook URL.
// A missing URL is a configuration error, not a delivery failure.
func (n *WebhookNotifier) Deliver(ctx context.Context, asset *db.Asset, daysLeft int, notifType string) (*Delivery, error) {
	if asset.NotificationWebhookURL == nil || *asset.NotificationWebhookURL == "" {
		return nil, fmt.Errorf("asset %s: %w", asset.ID, ErrNotConfigured)
	}
	url := *asset.NotificationWebhookURL

	payload := n.buildPayload(asset, daysLeft)
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", webhookUserAgent)

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	preview, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("webhook returned non-2xx status: %d, body: %s", resp.StatusCode, string(preview))
	}

	n.logger.Info("webhook delivered",
		zap.String("asset_id", asset.ID.String()),
		zap.String("url", url),
		zap.Int("status_code", resp.StatusCode),
	)

	return &Delivery{StatusCode: resp.StatusCode}, nil
}

func (n *WebhookNotifier) buildPayload(asset *db.Asset, daysLeft int) WebhookPayload {
	payload := WebhookPayload{
		Type:      "license_expiry_notification",
		Timestamp: n.now().UTC().Format(time.RFC3339),
		Asset: WebhookAsset{
			ID:          asset.ID,
			Name:        asset.Name,
			VendorName:  asset.VendorName,
			LicenseType: asset.LicenseType,
			ExpireDate:  asset.ExpireDate,
			Status:      asset.Status,
		},
		DaysLeft: daysLeft,
		Message:  policy.Message(asset.Name, daysLeft),
		Severity: policy.Severity(daysLeft),
	}

	if asset.Department != nil {
		payload.Department = &WebhookDept{
			ID:   asset.Department.ID,
			Name: asset.Department.Name,
		}
	}
	if asset.ResponsibleUser != nil {
		payload.ResponsibleUser = &WebhookUser{
			ID:       asset.ResponsibleUser.ID,
			FullName: asset.ResponsibleUser.FullName,
			Email:    asset.ResponsibleUser.Email,
		}
	}

	return payload
}
