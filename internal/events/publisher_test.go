package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideaflow/api/internal/util"
)

type recordingPublisher struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (p *recordingPublisher) Publish(subject string, data []byte) error {
	if p.err != nil {
		return p.err
	}
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, data)
	return nil
}

func TestNATSNotifierPublishesVerificationCode(t *testing.T) {
	pub := &recordingPublisher{}
	clock := util.NewManualClock(time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC))
	notifier := NewNATSNotifier(pub, clock, "http://app.local", nil)

	require.True(t, notifier.SendVerificationCode(context.Background(), "ada@example.com", "ABC234"))
	require.Len(t, pub.subjects, 1)
	assert.Equal(t, VerificationCodeIssued, pub.subjects[0])

	var event VerificationCodeEvent
	require.NoError(t, json.Unmarshal(pub.payloads[0], &event))
	assert.Equal(t, "ada@example.com", event.Email)
	assert.Equal(t, "ABC234", event.Code)
	assert.True(t, event.IssuedAt.Equal(clock.Now()))
	assert.NotEmpty(t, event.EventID)
}

func TestNATSNotifierPublishesResetLink(t *testing.T) {
	pub := &recordingPublisher{}
	notifier := NewNATSNotifier(pub, nil, "http://app.local/", nil)

	require.True(t, notifier.SendPasswordReset(context.Background(), "ada@example.com", "tok123"))
	var event PasswordResetEvent
	require.NoError(t, json.Unmarshal(pub.payloads[0], &event))
	assert.Equal(t, PasswordResetIssued, pub.subjects[0])
	assert.Equal(t, "http://app.local/reset-password?token=tok123", event.ResetURL)
}

func TestNATSNotifierReportsPublishFailure(t *testing.T) {
	notifier := NewNATSNotifier(&recordingPublisher{err: errors.New("nats: connection closed")}, nil, "", nil)
	assert.False(t, notifier.SendVerificationCode(context.Background(), "ada@example.com", "ABC234"))
	assert.False(t, notifier.SendPasswordReset(context.Background(), "ada@example.com", "tok"))
}
