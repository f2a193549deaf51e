package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"strings"

	"ideaflow/api/internal/util"
)

type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier hands verification codes and reset tokens to whoever
// subscribes under ideaflow.notifications.
type NATSNotifier struct {
	pub        publisher
	clock      util.Clock
	appBaseURL string
	logger     *slog.Logger
}

func NewNATSNotifier(pub publisher, clock util.Clock, appBaseURL string, logger *slog.Logger) *NATSNotifier {
	if clock == nil {
		clock = util.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSNotifier{pub: pub, clock: clock, appBaseURL: appBaseURL, logger: logger}
}

func (n *NATSNotifier) SendVerificationCode(_ context.Context, email, code string) bool {
	return n.publish(VerificationCodeIssued, VerificationCodeEvent{
		EventID:   util.NewID(),
		Email:     email,
		Code:      code,
		ExpiresIn: "1h",
		IssuedAt:  n.clock.Now(),
	})
}

func (n *NATSNotifier) SendPasswordReset(_ context.Context, email, token string) bool {
	return n.publish(PasswordResetIssued, PasswordResetEvent{
		EventID:   util.NewID(),
		Email:     email,
		Token:     token,
		ResetURL:  strings.TrimRight(n.appBaseURL, "/") + "/reset-password?token=" + url.QueryEscape(token),
		ExpiresIn: "1h",
		IssuedAt:  n.clock.Now(),
	})
}

func (n *NATSNotifier) publish(subject string, event any) bool {
	data, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("marshal notification", "subject", subject, "error", err)
		return false
	}
	if err := n.pub.Publish(subject, data); err != nil {
		n.logger.Error("publish notification", "subject", subject, "error", err)
		return false
	}
	n.logger.Debug("published notification", "subject", subject)
	return true
}
