package privacy

import (
	"crypto/rand"
	"errors"
	"time"
)

const MaxCoverMessageSize = 65536

var ErrCoverMessageTooLarge = errors.New("privacy: cover message_size exceeds max")

// CoverConfig parameterizes synthetic traffic generation that masks real
// message timing from a traffic-analysis adversary.
type CoverConfig struct {
	RatePerMinute int
	MessageSize   int
	Enabled       bool
}

func DefaultCoverConfig() CoverConfig {
	return CoverConfig{RatePerMinute: 10, MessageSize: 1024, Enabled: true}
}

func (c CoverConfig) Validate() error {
	if c.MessageSize > MaxCoverMessageSize {
		return ErrCoverMessageTooLarge
	}
	return nil
}

// MessageIntervalMillis is the spacing between generated cover messages.
func (c CoverConfig) MessageIntervalMillis() int64 {
	if c.RatePerMinute <= 0 {
		return 60000
	}
	interval := int64(60000 / c.RatePerMinute)
	if interval < 1 {
		interval = 1
	}
	return interval
}

// CoverMessage is a synthetic message indistinguishable on the wire from a
// real envelope: every field is random bytes of the size a genuine
// envelope would use, flagged internally so the local node discards it on
// receipt rather than surfacing it to an application. A recipient cannot
// tell a cover message from a real one without attempting decryption;
// decryption failure is the only signal.
type CoverMessage struct {
	RecipientHint  [4]byte
	EphemeralKey   [32]byte
	EncryptedPayload []byte
	IsCover        bool
}

// GenerateCoverMessage fills RecipientHint, EphemeralKey, and a
// MessageSize-byte EncryptedPayload with random bytes.
func GenerateCoverMessage(cfg CoverConfig) (*CoverMessage, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	msg := &CoverMessage{IsCover: true, EncryptedPayload: make([]byte, cfg.MessageSize)}
	if _, err := rand.Read(msg.RecipientHint[:]); err != nil {
		return nil, err
	}
	if _, err := rand.Read(msg.EphemeralKey[:]); err != nil {
		return nil, err
	}
	if _, err := rand.Read(msg.EncryptedPayload); err != nil {
		return nil, err
	}
	return msg, nil
}

// CoverTrafficScheduler decides, on each call to ShouldGenerate, whether
// enough time has elapsed since the last cover message to emit another.
type CoverTrafficScheduler struct {
	cfg      CoverConfig
	lastSent time.Time
}

func NewCoverTrafficScheduler(cfg CoverConfig) *CoverTrafficScheduler {
	return &CoverTrafficScheduler{cfg: cfg}
}

// ShouldGenerate reports whether a cover message is due at now, and if so
// records now as the new last-sent time.
func (s *CoverTrafficScheduler) ShouldGenerate(now time.Time) bool {
	if !s.cfg.Enabled {
		return false
	}
	interval := time.Duration(s.cfg.MessageIntervalMillis()) * time.Millisecond
	if s.lastSent.IsZero() || now.Sub(s.lastSent) >= interval {
		s.lastSent = now
		return true
	}
	return false
}
