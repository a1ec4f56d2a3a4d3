package policy

import "fmt"

// Severity levels shared by all notification channels.
const (
	SeverityCritical = "CRITICAL"
	SeverityHigh     = "HIGH"
	SeverityMedium   = "MEDIUM"
	SeverityLow      = "LOW"
)

// Severity classifies urgency from days left. Pure function; existing
// webhook receivers depend on the exact thresholds.
func Severity(daysLeft int) string {
	switch {
	case daysLeft < 0:
		return SeverityCritical
	case daysLeft == 0:
		return SeverityCritical
	case daysLeft <= 7:
		return SeverityHigh
	case daysLeft <= 30:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Message builds the human-readable reminder line for a license.
func Message(name string, daysLeft int) string {
	switch {
	case daysLeft < 0:
		return fmt.Sprintf("⚠️ KHẨN CẤP: License %q đã hết hạn %d ngày trước!", name, -daysLeft)
	case daysLeft == 0:
		return fmt.Sprintf("🔴 HÔM NAY: License %q hết hạn hôm nay!", name)
	case daysLeft == 1:
		return fmt.Sprintf("🟠 NGÀY MAI: License %q sẽ hết hạn vào ngày mai!", name)
	case daysLeft <= 7:
		return fmt.Sprintf("🟡 CẢNH BÁO: License %q sẽ hết hạn trong %d ngày!", name, daysLeft)
	case daysLeft <= 30:
		return fmt.Sprintf("🟢 NHẮC NHỞ: License %q sẽ hết hạn trong %d ngày", name, daysLeft)
	default:
		return fmt.Sprintf("ℹ️ THÔNG TIN: License %q sẽ hết hạn sau %d ngày", name, daysLeft)
	}
}
