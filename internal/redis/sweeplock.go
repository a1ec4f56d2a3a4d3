package redis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// lockTTL bounds how long a sweep may hold an asset. It must comfortably
// exceed the slowest channel timeout so a crashed sweep cannot wedge an
// asset for long.
const lockTTL = 5 * time.Minute

// SweepLock provides per-asset mutual exclusion across concurrent sweeps
// (scheduled vs. manual trigger) using SET NX with a TTL.
type SweepLock struct {
	client *Client
	logger *zap.Logger
}

// NewSweepLock creates a sweep lock service.
func NewSweepLock(client *Client, logger *zap.Logger) *SweepLock {
	return &SweepLock{
		client: client,
		logger: logger,
	}
}

func (l *SweepLock) key(assetID string) string {
	return fmt.Sprintf("sweeplock:%s", assetID)
}

// Acquire attempts to take the lock for an asset. Returns false when
// another sweep currently holds it.
func (l *SweepLock) Acquire(ctx context.Context, assetID string) (bool, error) {
	set, err := l.client.rdb.SetNX(ctx, l.key(assetID), "locked", lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx failed: %w", err)
	}

	if !set {
		l.logger.Debug("sweep lock held elsewhere", zap.String("asset_id", assetID))
	}

	return set, nil
}

// Release frees the lock for an asset.
func (l *SweepLock) Release(ctx context.Context, assetID string) error {
	if err := l.client.rdb.Del(ctx, l.key(assetID)).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}
