package relay

import (
	"testing"
	"time"

	"github.com/driftmesh/drift/internal/codec"
	"github.com/driftmesh/drift/internal/meshstore"
	"github.com/stretchr/testify/require"
)

func newEngine(localHint [4]byte, cfg Config) *Engine {
	store := meshstore.New(100, func() uint32 { return 1000 })
	return New(store, localHint, cfg, func() time.Time { return time.Unix(1000, 0) })
}

func remoteEnvelope() *codec.Envelope {
	e := &codec.Envelope{
		Version:       codec.CurrentVersion,
		Type:          codec.TypeEncryptedMessage,
		RecipientHint: [4]byte{9, 9, 9, 9},
		CreatedAt:     900,
		HopCount:      0,
		Priority:      10,
		Ciphertext:    []byte("ct"),
	}
	e.MessageID[0] = 1
	return e
}

func TestProcessIncomingThenDuplicate(t *testing.T) {
	e := newEngine([4]byte{1, 1, 1, 1}, DefaultConfig())
	env := remoteEnvelope()

	d, _ := e.ProcessIncoming(env, 1000)
	require.Equal(t, DecisionStoreAndRelay, d)

	d2, _ := e.ProcessIncoming(env, 1000)
	require.Equal(t, DecisionDuplicate, d2)
}

func TestExpiredIsDropped(t *testing.T) {
	e := newEngine([4]byte{1, 1, 1, 1}, DefaultConfig())
	env := remoteEnvelope()
	env.TTLExpiry = 999

	d, reason := e.ProcessIncoming(env, 1000)
	require.Equal(t, DecisionDropped, d)
	require.Equal(t, ReasonExpired, reason)
}

func TestDeliverLocal(t *testing.T) {
	env := remoteEnvelope()
	e := newEngine(env.RecipientHint, DefaultConfig())

	d, _ := e.ProcessIncoming(env, 1000)
	require.Equal(t, DecisionDeliverLocal, d)
}

func TestDormantDropsNonLocal(t *testing.T) {
	e := newEngine([4]byte{1, 1, 1, 1}, DefaultConfig())
	e.SetState(Dormant)
	env := remoteEnvelope()

	d, reason := e.ProcessIncoming(env, 1000)
	require.Equal(t, DecisionDropped, d)
	require.Equal(t, ReasonNetworkDormant, reason)

	_, err := e.PrepareOutgoing(env)
	require.ErrorIs(t, err, ErrNetworkDormant)
}

func TestMaxHopsExceeded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxHopCount = 2
	e := newEngine([4]byte{1, 1, 1, 1}, cfg)
	env := remoteEnvelope()
	env.HopCount = 2

	d, reason := e.ProcessIncoming(env, 1000)
	require.Equal(t, DecisionDropped, d)
	require.Equal(t, ReasonMaxHopsExceeded, reason)
}

func TestLowPriorityDropped(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinRelayPriority = 20
	e := newEngine([4]byte{1, 1, 1, 1}, cfg)
	env := remoteEnvelope()
	env.Priority = 5

	d, reason := e.ProcessIncoming(env, 1000)
	require.Equal(t, DecisionDropped, d)
	require.Equal(t, ReasonLowPriority, reason)
}

func TestRateLimited(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRelayPerHour = 1
	e := newEngine([4]byte{1, 1, 1, 1}, cfg)

	env1 := remoteEnvelope()
	d1, _ := e.ProcessIncoming(env1, 1000)
	require.Equal(t, DecisionStoreAndRelay, d1)

	env2 := remoteEnvelope()
	env2.MessageID[0] = 2
	d2, reason := e.ProcessIncoming(env2, 1000)
	require.Equal(t, DecisionDropped, d2)
	require.Equal(t, ReasonRateLimited, reason)
}
