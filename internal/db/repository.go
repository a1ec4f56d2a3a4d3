package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Repository handles database operations for assets and the
// notification ledger.
type Repository struct {
	db     *DB
	logger *zap.Logger
}

// NewRepository creates a new repository.
func NewRepository(db *DB, logger *zap.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const assetColumns = `
	a.id, a.name, a.vendor_name, a.license_type, a.contract_number,
	a.expire_date, a.status,
	a.notification_enabled, a.notification_frequency, a.notification_start_days,
	a.notification_channels, a.notification_webhook_url, a.notification_custom_schedule,
	a.last_notification_sent_at,
	a.created_at, a.updated_at,
	d.id, d.name, d.email_group,
	u.id, u.full_name, u.email
`

func scanAsset(row pgx.Row) (*Asset, error) {
	var a Asset
	var deptID *uuid.UUID
	var deptName, deptEmailGroup *string
	var userID *uuid.UUID
	var userFullName, userEmail *string

	err := row.Scan(
		&a.ID, &a.Name, &a.VendorName, &a.LicenseType, &a.ContractNumber,
		&a.ExpireDate, &a.Status,
		&a.NotificationEnabled, &a.NotificationFrequency, &a.NotificationStartDays,
		&a.NotificationChannels, &a.NotificationWebhookURL, &a.NotificationCustomSchedule,
		&a.LastNotificationSentAt,
		&a.CreatedAt, &a.UpdatedAt,
		&deptID, &deptName, &deptEmailGroup,
		&userID, &userFullName, &userEmail,
	)
	if err != nil {
		return nil, err
	}

	if deptID != nil {
		a.Department = &Department{
			ID:         *deptID,
			Name:       *deptName,
			EmailGroup: deptEmailGroup,
		}
	}
	if userID != nil {
		a.ResponsibleUser = &User{
			ID:       *userID,
			FullName: *userFullName,
			Email:    *userEmail,
		}
	}

	return &a, nil
}

// ListReminderCandidates returns all assets eligible for a reminder sweep:
// active-like status with notifications enabled.
func (r *Repository) ListReminderCandidates(ctx context.Context) ([]*Asset, error) {
	query := `
		SELECT ` + assetColumns + `
		FROM software_assets a
		LEFT JOIN departments d ON d.id = a.department_id
		LEFT JOIN users u ON u.id = a.responsible_user_id
		WHERE a.status IN ($1, $2) AND a.notification_enabled = true
		ORDER BY a.expire_date ASC
	`

	rows, err := r.db.Pool().Query(ctx, query, AssetActive, AssetRenewedPending)
	if err != nil {
		return nil, fmt.Errorf("query reminder candidates: %w", err)
	}
	defer rows.Close()

	var assets []*Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		assets = append(assets, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return assets, nil
}

// GetAsset retrieves a single asset with its department and responsible user.
func (r *Repository) GetAsset(ctx context.Context, id uuid.UUID) (*Asset, error) {
	query := `
		SELECT ` + assetColumns + `
		FROM software_assets a
		LEFT JOIN departments d ON d.id = a.department_id
		LEFT JOIN users u ON u.id = a.responsible_user_id
		WHERE a.id = $1
	`

	a, err := scanAsset(r.db.Pool().QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("asset not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("query asset: %w", err)
	}

	return a, nil
}

// MarkExpired flips an asset's status to EXPIRED. The transition is
// monotonic: an already-expired asset is left untouched.
func (r *Repository) MarkExpired(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE software_assets
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status <> $1
	`

	_, err := r.db.Pool().Exec(ctx, query, AssetExpired, id)
	if err != nil {
		return fmt.Errorf("mark asset expired: %w", err)
	}

	r.logger.Info("asset marked expired", zap.String("asset_id", id.String()))
	return nil
}

// SetLastNotified stamps last_notification_sent_at. The write is
// conditional: it fails closed (returns false) when another sweep already
// stamped the asset at or after the given time, so concurrent manual and
// scheduled sweeps cannot both claim the same reminder window.
func (r *Repository) SetLastNotified(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE software_assets
		SET last_notification_sent_at = $2, updated_at = NOW()
		WHERE id = $1
		  AND (last_notification_sent_at IS NULL OR last_notification_sent_at < $2)
	`

	result, err := r.db.Pool().Exec(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("set last notified: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// CreateNotification appends a ledger entry for a delivery attempt.
// Entries are immutable once written.
func (r *Repository) CreateNotification(ctx context.Context, n *Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}

	query := `
		INSERT INTO notifications (
			id, asset_id, type, channel, remind_before_days,
			status, sent_at, email_subject, email_to, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`

	err := r.db.Pool().QueryRow(ctx, query,
		n.ID,
		n.AssetID,
		n.Type,
		n.Channel,
		n.RemindBeforeDays,
		n.Status,
		n.SentAt,
		n.EmailSubject,
		n.EmailTo,
		n.ErrorMessage,
	).Scan(&n.CreatedAt)

	if err != nil {
		r.logger.Error("failed to create notification",
			zap.Error(err),
			zap.String("asset_id", n.AssetID.String()),
		)
		return fmt.Errorf("insert notification: %w", err)
	}

	return nil
}

// SentMilestones returns the set of remind-before-days values for which a
// SENT ledger entry already exists. Used for per-milestone de-duplication.
func (r *Repository) SentMilestones(ctx context.Context, assetID uuid.UUID) (map[int]bool, error) {
	query := `
		SELECT DISTINCT remind_before_days
		FROM notifications
		WHERE asset_id = $1 AND status = $2
	`

	rows, err := r.db.Pool().Query(ctx, query, assetID, StatusSent)
	if err != nil {
		return nil, fmt.Errorf("query sent milestones: %w", err)
	}
	defer rows.Close()

	sent := make(map[int]bool)
	for rows.Next() {
		var days int
		if err := rows.Scan(&days); err != nil {
			return nil, fmt.Errorf("scan milestone: %w", err)
		}
		sent[days] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return sent, nil
}

// NotificationFilter narrows ledger listings.
type NotificationFilter struct {
	Status string
	Type   string
	Limit  int
	Offset int
}

// ListNotifications retrieves ledger entries, newest first, with an
// overall count for pagination.
func (r *Repository) ListNotifications(ctx context.Context, f NotificationFilter) ([]*Notification, int, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}

	where := "WHERE 1=1"
	args := []any{}
	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.Type != "" {
		args = append(args, f.Type)
		where += fmt.Sprintf(" AND type = $%d", len(args))
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM notifications " + where
	if err := r.db.Pool().QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	args = append(args, f.Limit, f.Offset)
	query := fmt.Sprintf(`
		SELECT id, asset_id, type, channel, remind_before_days,
		       status, sent_at, email_subject, email_to, error_message, created_at
		FROM notifications
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*Notification
	for rows.Next() {
		var n Notification
		err := rows.Scan(
			&n.ID,
			&n.AssetID,
			&n.Type,
			&n.Channel,
			&n.RemindBeforeDays,
			&n.Status,
			&n.SentAt,
			&n.EmailSubject,
			&n.EmailTo,
			&n.ErrorMessage,
			&n.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, &n)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate rows: %w", err)
	}

	return notifications, total, nil
}

// GetNotification retrieves a single ledger entry by ID.
func (r *Repository) GetNotification(ctx context.Context, id uuid.UUID) (*Notification, error) {
	query := `
		SELECT id, asset_id, type, channel, remind_before_days,
		       status, sent_at, email_subject, email_to, error_message, created_at
		FROM notifications
		WHERE id = $1
	`

	var n Notification
	err := r.db.Pool().QueryRow(ctx, query, id).Scan(
		&n.ID,
		&n.AssetID,
		&n.Type,
		&n.Channel,
		&n.RemindBeforeDays,
		&n.Status,
		&n.SentAt,
		&n.EmailSubject,
		&n.EmailTo,
		&n.ErrorMessage,
		&n.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("notification not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("query notification: %w", err)
	}

	return &n, nil
}
