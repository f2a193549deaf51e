// Package events publishes account notifications to NATS for an external
// mailer to deliver.
package events

import "time"

const (
	VerificationCodeIssued = "ideaflow.notifications.verification_code"
	PasswordResetIssued    = "ideaflow.notifications.password_reset"
)

type VerificationCodeEvent struct {
	EventID   string    `json:"event_id"`
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	ExpiresIn string    `json:"expires_in"`
	IssuedAt  time.Time `json:"issued_at"`
}

type PasswordResetEvent struct {
	EventID   string    `json:"event_id"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ResetURL  string    `json:"reset_url"`
	ExpiresIn string    `json:"expires_in"`
	IssuedAt  time.Time `json:"issued_at"`
}
