package db

import (
	"time"

	"github.com/google/uuid"
)

// Asset represents a tracked software license or contract record.
type Asset struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	VendorName     *string   `json:"vendor_name,omitempty"`
	LicenseType    *string   `json:"license_type,omitempty"`
	ContractNumber *string   `json:"contract_number,omitempty"`
	ExpireDate     time.Time `json:"expire_date"`
	Status         string    `json:"status"`

	// Notification configuration
	NotificationEnabled        bool       `json:"notification_enabled"`
	NotificationFrequency      string     `json:"notification_frequency"`
	NotificationStartDays      int        `json:"notification_start_days"`
	NotificationChannels       string     `json:"notification_channels"`
	NotificationWebhookURL     *string    `json:"notification_webhook_url,omitempty"`
	NotificationCustomSchedule *string    `json:"notification_custom_schedule,omitempty"`
	LastNotificationSentAt     *time.Time `json:"last_notification_sent_at,omitempty"`

	Department      *Department `json:"department,omitempty"`
	ResponsibleUser *User       `json:"responsible_user,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Department owns assets and provides a group mail address for reminders.
type Department struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	EmailGroup *string   `json:"email_group,omitempty"`
}

// User is the person responsible for an asset's renewal.
type User struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
	Email    string    `json:"email"`
}

// Notification is one ledger entry per delivery attempt. Rows are
// append-only; a failed attempt is never retried in place.
type Notification struct {
	ID               uuid.UUID  `json:"id"`
	AssetID          uuid.UUID  `json:"asset_id"`
	Type             string     `json:"type"`
	Channel          string     `json:"channel"`
	RemindBeforeDays int        `json:"remind_before_days"`
	Status           string     `json:"status"`
	SentAt           *time.Time `json:"sent_at,omitempty"`
	EmailSubject     *string    `json:"email_subject,omitempty"`
	EmailTo          *string    `json:"email_to,omitempty"`
	ErrorMessage     *string    `json:"error_message,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Asset lifecycle statuses
const (
	AssetActive         = "ACTIVE"
	AssetExpired        = "EXPIRED"
	AssetRenewedPending = "RENEWED_PENDING"
	AssetCancelled      = "CANCELLED"
	AssetDone           = "DONE"
)

// Notification frequency modes
const (
	FrequencyMilestones = "MILESTONES"
	FrequencyDaily      = "DAILY"
	FrequencyWeekly     = "WEEKLY"
	FrequencyCustom     = "CUSTOM"
)

// Notification types
const (
	TypeUpcomingExpiry = "UPCOMING_EXPIRY"
	TypeExpired        = "EXPIRED"
	TypeCustom         = "CUSTOM"
)

// Notification delivery statuses
const (
	StatusPending = "PENDING"
	StatusSent    = "SENT"
	StatusFailed  = "FAILED"
)
