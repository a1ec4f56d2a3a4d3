// Package policy implements the reminder decision engine. It is a pure
// function of an asset's notification configuration, its ledger history,
// and an injected "today". No wall-clock reads, no side effects.
package policy

import (
	"time"

	"github.com/ngocvh/licensewatch/internal/db"
)

// Milestones is the fixed set of days-before-expiry at which a
// MILESTONES-mode reminder fires. The values are hard-coded nag points,
// not derived from the asset's start window.
var Milestones = [6]int{90, 60, 30, 7, 1, 0}

// expiredFloor is the point past expiry at which reminders stop for good.
// Not configurable: very old expirations are silenced permanently.
const expiredFloor = -30

// Decision is the outcome of evaluating one asset for one day.
type Decision struct {
	Due      bool
	DaysLeft int
	Type     string
}

// Midnight truncates a time to the start of its calendar day.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DaysLeft computes whole calendar days until expiry. Both dates are
// normalized to midnight first, so the result is independent of
// time-of-day on either side.
func DaysLeft(expireDate, today time.Time) int {
	d := Midnight(expireDate).Sub(Midnight(today))
	return int(d.Hours() / 24)
}

// daysSince computes whole calendar days elapsed since a timestamp.
func daysSince(t, today time.Time) int {
	d := Midnight(today).Sub(Midnight(t))
	return int(d.Hours() / 24)
}

// Evaluate decides whether a reminder is due for the asset today.
// sentMilestones is the set of remind-before-days values that already have
// a SENT ledger entry; it only matters for MILESTONES mode.
func Evaluate(asset *db.Asset, sentMilestones map[int]bool, today time.Time) Decision {
	daysLeft := DaysLeft(asset.ExpireDate, today)
	none := Decision{DaysLeft: daysLeft}

	// Window gate: too far from expiry, or expired long enough that
	// nagging is no longer useful.
	if daysLeft > asset.NotificationStartDays || daysLeft < expiredFloor {
		return none
	}

	// Anti-spam gate: CUSTOM schedules own their timing, everything else
	// is throttled against the last send.
	if asset.NotificationFrequency != db.FrequencyCustom && asset.LastNotificationSentAt != nil {
		elapsed := daysSince(*asset.LastNotificationSentAt, today)
		switch asset.NotificationFrequency {
		case db.FrequencyWeekly:
			if elapsed < 7 {
				return none
			}
		default: // DAILY and MILESTONES: at most once per calendar day
			if elapsed < 1 {
				return none
			}
		}
	}

	// Frequency-specific admission.
	switch asset.NotificationFrequency {
	case db.FrequencyDaily:
		// admitted unconditionally
	case db.FrequencyWeekly:
		if today.Weekday() != time.Monday {
			return none
		}
	case db.FrequencyMilestones:
		if !isMilestone(daysLeft) {
			return none
		}
		if sentMilestones[daysLeft] {
			return none
		}
	case db.FrequencyCustom:
		// Cron-expression evaluation is not implemented yet; CUSTOM
		// assets are always eligible and the schedule is the caller's
		// responsibility.
	default:
		return none
	}

	typ := db.TypeUpcomingExpiry
	if daysLeft < 0 {
		typ = db.TypeExpired
	}

	return Decision{Due: true, DaysLeft: daysLeft, Type: typ}
}

func isMilestone(daysLeft int) bool {
	for _, m := range Milestones {
		if daysLeft == m {
			return true
		}
	}
	return false
}

// ClampMilestone converts a daysLeft value into the non-negative
// remind-before-days recorded on ledger entries.
func ClampMilestone(daysLeft int) int {
	if daysLeft < 0 {
		return 0
	}
	return daysLeft
}
