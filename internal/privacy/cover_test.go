package privacy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCoverConfigValidateRejectsOversizeMessage(t *testing.T) {
	cfg := CoverConfig{RatePerMinute: 10, MessageSize: MaxCoverMessageSize + 1, Enabled: true}
	require.ErrorIs(t, cfg.Validate(), ErrCoverMessageTooLarge)
}

func TestMessageIntervalMillisFormula(t *testing.T) {
	cfg := CoverConfig{RatePerMinute: 10}
	require.Equal(t, int64(6000), cfg.MessageIntervalMillis())

	cfg = CoverConfig{RatePerMinute: 120000}
	require.Equal(t, int64(1), cfg.MessageIntervalMillis())

	cfg = CoverConfig{RatePerMinute: 0}
	require.Equal(t, int64(60000), cfg.MessageIntervalMillis())
}

func TestGenerateCoverMessageSizeAndFlag(t *testing.T) {
	cfg := DefaultCoverConfig()
	msg, err := GenerateCoverMessage(cfg)
	require.NoError(t, err)
	require.Len(t, msg.EncryptedPayload, cfg.MessageSize)
	require.True(t, msg.IsCover)
}

func TestGenerateCoverMessageRejectsOversize(t *testing.T) {
	cfg := CoverConfig{MessageSize: MaxCoverMessageSize + 1}
	_, err := GenerateCoverMessage(cfg)
	require.ErrorIs(t, err, ErrCoverMessageTooLarge)
}

func TestSchedulerFiresFirstCallThenWaitsForInterval(t *testing.T) {
	cfg := CoverConfig{RatePerMinute: 60, Enabled: true} // 1000ms interval
	s := NewCoverTrafficScheduler(cfg)
	now := time.Unix(1000, 0)

	require.True(t, s.ShouldGenerate(now))
	require.False(t, s.ShouldGenerate(now.Add(500*time.Millisecond)))
	require.True(t, s.ShouldGenerate(now.Add(1001*time.Millisecond)))
}

func TestSchedulerDisabledNeverFires(t *testing.T) {
	cfg := CoverConfig{RatePerMinute: 60, Enabled: false}
	s := NewCoverTrafficScheduler(cfg)
	require.False(t, s.ShouldGenerate(time.Now()))
}
