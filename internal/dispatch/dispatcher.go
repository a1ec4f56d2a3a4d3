// Package dispatch runs reminder sweeps: it loads candidate assets, asks
// the policy engine for a per-asset decision, fans out to the configured
// channel notifiers, and records every attempt in the notification ledger.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ngocvh/licensewatch/internal/db"
	"github.com/ngocvh/licensewatch/internal/metrics"
	"github.com/ngocvh/licensewatch/internal/notify"
	"github.com/ngocvh/licensewatch/internal/policy"
)

// Store is the slice of the repository the dispatcher needs.
type Store interface {
	ListReminderCandidates(ctx context.Context) ([]*db.Asset, error)
	GetAsset(ctx context.Context, id uuid.UUID) (*db.Asset, error)
	MarkExpired(ctx context.Context, id uuid.UUID) error
	SetLastNotified(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	CreateNotification(ctx context.Context, n *db.Notification) error
	SentMilestones(ctx context.Context, assetID uuid.UUID) (map[int]bool, error)
	GetNotification(ctx context.Context, id uuid.UUID) (*db.Notification, error)
}

// Locker provides per-asset mutual exclusion so a manual trigger and the
// scheduled sweep cannot double-send for the same asset. A nil Locker is
// valid; the conditional last-notified write then remains the only guard.
type Locker interface {
	Acquire(ctx context.Context, assetID string) (bool, error)
	Release(ctx context.Context, assetID string) error
}

// AssetError records one asset's processing failure in the sweep summary.
type AssetError struct {
	AssetID   uuid.UUID `json:"assetId"`
	AssetName string    `json:"assetName"`
	Error     string    `json:"error"`
}

// ChannelResults counts successful sends per channel.
type ChannelResults struct {
	Email    int `json:"email"`
	Webhook  int `json:"webhook"`
	Telegram int `json:"telegram"`
	Zalo     int `json:"zalo"`
}

// SweepResult summarizes one full sweep.
type SweepResult struct {
	Scanned        int            `json:"scanned"`
	Success        int            `json:"success"`
	Failed         int            `json:"failed"`
	Errors         []AssetError   `json:"errors"`
	ChannelResults ChannelResults `json:"channelResults"`
}

// Config holds dispatcher settings.
type Config struct {
	// Now supplies "today" for policy decisions and ledger timestamps.
	// Defaults to time.Now; injected in tests.
	Now func() time.Time
}

// Dispatcher orchestrates reminder sweeps.
type Dispatcher struct {
	store     Store
	notifiers map[notify.Channel]notify.Notifier
	locker    Locker
	logger    *zap.Logger
	now       func() time.Time
}

// New creates a dispatcher over the given notifiers.
func New(store Store, notifiers []notify.Notifier, locker Locker, cfg Config, logger *zap.Logger) *Dispatcher {
	byChannel := make(map[notify.Channel]notify.Notifier, len(notifiers))
	for _, n := range notifiers {
		byChannel[n.Channel()] = n
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Dispatcher{
		store:     store,
		notifiers: byChannel,
		locker:    locker,
		logger:    logger,
		now:       now,
	}
}

// RunSweep performs one full pass over all candidate assets. A failure to
// load the candidate set is fatal and propagated; any single asset's error
// is contained and aggregated into the result.
func (d *Dispatcher) RunSweep(ctx context.Context) (*SweepResult, error) {
	start := d.now()
	d.logger.Info("running reminder sweep", zap.Time("started_at", start))

	assets, err := d.store.ListReminderCandidates(ctx)
	if err != nil {
		metrics.RecordSweep("error", d.now().Sub(start))
		return nil, fmt.Errorf("load reminder candidates: %w", err)
	}

	result := &SweepResult{Scanned: len(assets)}
	for _, asset := range assets {
		d.processAsset(ctx, asset, start, result)
	}

	metrics.RecordSweep("ok", d.now().Sub(start))
	metrics.RecordAssetsScanned(result.Scanned)

	d.logger.Info("reminder sweep completed",
		zap.Int("scanned", result.Scanned),
		zap.Int("success", result.Success),
		zap.Int("failed", result.Failed),
		zap.Int("email_sent", result.ChannelResults.Email),
		zap.Int("webhook_sent", result.ChannelResults.Webhook),
	)

	return result, nil
}

func (d *Dispatcher) processAsset(ctx context.Context, asset *db.Asset, now time.Time, result *SweepResult) {
	daysLeft := policy.DaysLeft(asset.ExpireDate, now)

	// Status maintenance runs regardless of whether a reminder fires.
	if daysLeft < 0 && asset.Status != db.AssetExpired {
		if err := d.store.MarkExpired(ctx, asset.ID); err != nil {
			d.logger.Error("failed to mark asset expired",
				zap.Error(err),
				zap.String("asset_id", asset.ID.String()),
			)
		} else {
			asset.Status = db.AssetExpired
		}
	}

	var sentMilestones map[int]bool
	if asset.NotificationFrequency == db.FrequencyMilestones {
		var err error
		sentMilestones, err = d.store.SentMilestones(ctx, asset.ID)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, AssetError{
				AssetID:   asset.ID,
				AssetName: asset.Name,
				Error:     err.Error(),
			})
			return
		}
	}

	decision := policy.Evaluate(asset, sentMilestones, now)
	if !decision.Due {
		return
	}

	if d.locker != nil {
		acquired, err := d.locker.Acquire(ctx, asset.ID.String())
		if err != nil {
			d.logger.Warn("asset lock unavailable, proceeding unguarded",
				zap.Error(err),
				zap.String("asset_id", asset.ID.String()),
			)
		} else if !acquired {
			d.logger.Info("asset locked by concurrent sweep, skipping",
				zap.String("asset_id", asset.ID.String()),
			)
			return
		} else {
			defer func() { _ = d.locker.Release(ctx, asset.ID.String()) }()
		}
	}

	attempted, failures := d.deliver(ctx, asset, decision, now, result)
	if !attempted {
		return
	}

	if len(failures) == 0 {
		result.Success++
	} else {
		result.Failed++
		result.Errors = append(result.Errors, failures...)
	}

	// Stamp the asset once any channel attempt was made, success or not.
	// The write is conditional and fails closed against concurrent sweeps.
	updated, err := d.store.SetLastNotified(ctx, asset.ID, now)
	if err != nil {
		d.logger.Error("failed to update last notification timestamp",
			zap.Error(err),
			zap.String("asset_id", asset.ID.String()),
		)
	} else if !updated {
		d.logger.Warn("last notification timestamp already claimed by another sweep",
			zap.String("asset_id", asset.ID.String()),
		)
	}
}

// deliver fans the reminder out to every configured channel independently.
// It reports whether any real delivery attempt was made, plus the per
// channel failures. Unconfigured and unimplemented channels are skipped
// and count as neither.
func (d *Dispatcher) deliver(ctx context.Context, asset *db.Asset, decision policy.Decision, now time.Time, result *SweepResult) (bool, []AssetError) {
	attempted := false
	var failures []AssetError

	for _, channel := range notify.ParseChannels(asset.NotificationChannels) {
		notifier, ok := d.notifiers[channel]
		if !ok {
			d.logger.Warn("unknown notification channel, skipping",
				zap.String("channel", string(channel)),
				zap.String("asset_id", asset.ID.String()),
			)
			continue
		}

		delivery, err := notifier.Deliver(ctx, asset, decision.DaysLeft, decision.Type)
		switch {
		case errors.Is(err, notify.ErrUnimplemented):
			continue
		case errors.Is(err, notify.ErrNotConfigured):
			d.logger.Warn("channel selected but not configured, skipping",
				zap.String("channel", string(channel)),
				zap.String("asset_id", asset.ID.String()),
			)
			continue
		case err != nil:
			attempted = true
			d.logger.Error("channel delivery failed",
				zap.Error(err),
				zap.String("channel", string(channel)),
				zap.String("asset_id", asset.ID.String()),
			)
			metrics.RecordReminder(string(channel), "failed")
			d.recordAttempt(ctx, asset, decision, channel, nil, err, now)
			failures = append(failures, AssetError{
				AssetID:   asset.ID,
				AssetName: asset.Name,
				Error:     fmt.Sprintf("%s: %v", channel, err),
			})
		default:
			attempted = true
			metrics.RecordReminder(string(channel), "sent")
			d.recordAttempt(ctx, asset, decision, channel, delivery, nil, now)
			d.countChannel(channel, result)
		}
	}

	return attempted, failures
}

// recordAttempt appends the ledger entry for one channel attempt.
func (d *Dispatcher) recordAttempt(ctx context.Context, asset *db.Asset, decision policy.Decision, channel notify.Channel, delivery *notify.Delivery, deliveryErr error, now time.Time) {
	entry := &db.Notification{
		AssetID:          asset.ID,
		Type:             decision.Type,
		Channel:          string(channel),
		RemindBeforeDays: policy.ClampMilestone(decision.DaysLeft),
	}

	if deliveryErr != nil {
		entry.Status = db.StatusFailed
		msg := deliveryErr.Error()
		entry.ErrorMessage = &msg
	} else {
		entry.Status = db.StatusSent
		entry.SentAt = &now
		if delivery != nil && channel == notify.ChannelEmail {
			entry.EmailSubject = &delivery.Subject
			entry.EmailTo = &delivery.Recipients
		}
	}

	if err := d.store.CreateNotification(ctx, entry); err != nil {
		d.logger.Error("failed to append ledger entry",
			zap.Error(err),
			zap.String("asset_id", asset.ID.String()),
			zap.String("channel", string(channel)),
		)
	}
}

func (d *Dispatcher) countChannel(channel notify.Channel, result *SweepResult) {
	switch channel {
	case notify.ChannelEmail:
		result.ChannelResults.Email++
	case notify.ChannelWebhook:
		result.ChannelResults.Webhook++
	case notify.ChannelTelegram:
		result.ChannelResults.Telegram++
	case notify.ChannelZalo:
		result.ChannelResults.Zalo++
	}
}

// Resend re-delivers a past ledger entry's reminder by email, appending a
// fresh ledger entry for the new attempt.
func (d *Dispatcher) Resend(ctx context.Context, notificationID uuid.UUID) error {
	entry, err := d.store.GetNotification(ctx, notificationID)
	if err != nil {
		return err
	}

	asset, err := d.store.GetAsset(ctx, entry.AssetID)
	if err != nil {
		return err
	}

	notifier, ok := d.notifiers[notify.ChannelEmail]
	if !ok {
		return fmt.Errorf("email notifier not configured")
	}

	now := d.now()
	daysLeft := policy.DaysLeft(asset.ExpireDate, now)
	decision := policy.Decision{Due: true, DaysLeft: daysLeft, Type: entry.Type}

	delivery, err := notifier.Deliver(ctx, asset, daysLeft, entry.Type)
	if err != nil {
		d.recordAttempt(ctx, asset, decision, notify.ChannelEmail, nil, err, now)
		return fmt.Errorf("resend notification: %w", err)
	}

	d.recordAttempt(ctx, asset, decision, notify.ChannelEmail, delivery, nil, now)
	return nil
}
