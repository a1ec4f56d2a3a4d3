// Package notify holds the channel notifier capability: pluggable senders
// that deliver a rendered reminder for one asset over one channel.
package notify

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/ngocvh/licensewatch/internal/db"
)

// Channel identifies a delivery mechanism.
type Channel string

const (
	ChannelEmail    Channel = "EMAIL"
	ChannelWebhook  Channel = "WEBHOOK"
	ChannelTelegram Channel = "TELEGRAM"
	ChannelZalo     Channel = "ZALO"
)

// ErrNotConfigured indicates the channel is selected on the asset but its
// configuration is incomplete (e.g. webhook without a URL). The dispatcher
// skips the channel without counting a failure.
var ErrNotConfigured = errors.New("channel not configured")

// ErrUnimplemented indicates a recognized channel that has no working
// sender yet. Skipped with a log line; neither success nor failure.
var ErrUnimplemented = errors.New("channel not implemented")

// Delivery describes a successful channel send.
type Delivery struct {
	MessageID  string
	Subject    string
	Recipients string
	StatusCode int
}

// Notifier delivers one reminder for one asset over one channel.
type Notifier interface {
	Channel() Channel
	Deliver(ctx context.Context, asset *db.Asset, daysLeft int, notifType string) (*Delivery, error)
}

// ParseChannels splits the asset's comma-joined channel list into channel
// tags, trimming whitespace and dropping empty entries. Unknown tags are
// kept so the dispatcher can log them before skipping.
func ParseChannels(list string) []Channel {
	var channels []Channel
	for _, part := range strings.Split(list, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		channels = append(channels, Channel(part))
	}
	return channels
}

// Unimplemented is the explicit stub for channels we recognize but cannot
// deliver to yet (TELEGRAM, ZALO).
type Unimplemented struct {
	channel Channel
	logger  *zap.Logger
}

// NewUnimplemented creates a stub notifier for the given channel.
func NewUnimplemented(channel Channel, logger *zap.Logger) *Unimplemented {
	return &Unimplemented{channel: channel, logger: logger}
}

func (n *Unimplemented) Channel() Channel {
	return n.channel
}

func (n *Unimplemented) Deliver(ctx context.Context, asset *db.Asset, daysLeft int, notifType string) (*Delivery, error) {
	n.logger.Info("channel not implemented, skipping",
		zap.String("channel", string(n.channel)),
		zap.String("asset_id", asset.ID.String()),
	)
	return nil, ErrUnimplemented
}
