package pomomo

import "time"

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityPositive Severity = "positive"
	SeverityWarning  Severity = "warning"
	SeverityNegative Severity = "negative"
)

type Notification struct {
	UserID   UserID    `json:"user_id"`
	Message  string    `json:"message"`
	Severity Severity  `json:"severity"`
	At       time.Time `json:"at"`
}
