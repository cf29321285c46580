// Package relay implements the coupling gate between "am I on the
// network?" and "may I send?": the single decision point through which
// every incoming and outgoing envelope passes.
package relay

import (
	"errors"
	"sync"
	"time"

	"github.com/driftmesh/drift/internal/codec"
	"github.com/driftmesh/drift/internal/meshstore"
)

// NetworkState is Active or Dormant. There is no third state.
type NetworkState int

const (
	Active NetworkState = iota
	Dormant
)

// Decision is the outcome of processing an incoming envelope.
type Decision int

const (
	DecisionStoreAndRelay Decision = iota
	DecisionDeliverLocal
	DecisionDuplicate
	DecisionDropped
)

// DropReason qualifies a DecisionDropped outcome.
type DropReason int

const (
	ReasonNone DropReason = iota
	ReasonExpired
	ReasonNetworkDormant
	ReasonMaxHopsExceeded
	ReasonLowPriority
	ReasonRateLimited
	ReasonStoreFull
)

// Config tunes the Relay Engine's gates.
type Config struct {
	MaxHopCount      uint8
	MinRelayPriority uint8
	MaxRelayPerHour  int // 0 disables rate limiting
}

func DefaultConfig() Config {
	return Config{MaxHopCount: 16, MinRelayPriority: 0, MaxRelayPerHour: 0}
}

var ErrNetworkDormant = errors.New("relay: network dormant")

// Engine owns the MeshStore and the rate-limit window.
type Engine struct {
	mu sync.Mutex

	state      NetworkState
	cfg        Config
	store      *meshstore.Store
	localHint  [4]byte
	now        func() time.Time
	windowStart time.Time
	relayedThisHour int
}

func New(store *meshstore.Store, localHint [4]byte, cfg Config, now func() time.Time) *Engine {
	return &Engine{
		state:       Active,
		cfg:         cfg,
		store:       store,
		localHint:   localHint,
		now:         now,
		windowStart: now(),
	}
}

func (e *Engine) SetState(s NetworkState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = s
}

func (e *Engine) State() NetworkState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) SetConfig(cfg Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
}

// ProcessIncoming runs the full decision cascade (§4.E) over raw bytes
// already known to parse (codec errors are the caller's concern — malformed
// bytes are dropped before reaching the Relay Engine).
func (e *Engine) ProcessIncoming(env *codec.Envelope, nowUnix uint32) (Decision, DropReason) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if env.IsExpired(nowUnix) {
		return DecisionDropped, ReasonExpired
	}
	if e.store.Has(env.MessageID) {
		return DecisionDuplicate, ReasonNone
	}
	if env.RecipientHint == e.localHint {
		return DecisionDeliverLocal, ReasonNone
	}
	if e.state == Dormant {
		return DecisionDropped, ReasonNetworkDormant
	}
	if env.HopCount >= e.cfg.MaxHopCount {
		return DecisionDropped, ReasonMaxHopsExceeded
	}
	if env.Priority < e.cfg.MinRelayPriority {
		return DecisionDropped, ReasonLowPriority
	}

	now := e.now()
	if now.Sub(e.windowStart) > time.Hour {
		e.windowStart = now
		e.relayedThisHour = 0
	}
	if e.cfg.MaxRelayPerHour > 0 && e.relayedThisHour >= e.cfg.MaxRelayPerHour {
		return DecisionDropped, ReasonRateLimited
	}

	stored := &meshstore.StoredEnvelope{
		MessageID:     env.MessageID,
		RecipientHint: env.RecipientHint,
		CreatedAt:     env.CreatedAt,
		TTLExpiry:     env.TTLExpiry,
		HopCount:      env.HopCount,
		Priority:      env.Priority,
		ReceivedAt:    nowUnix,
	}
	if raw, err := env.ToBytes(); err == nil {
		stored.RawBytes = raw
	}
	if !e.store.Insert(stored) {
		return DecisionDuplicate, ReasonNone
	}
	e.relayedThisHour++
	return DecisionStoreAndRelay, ReasonNone
}

// PrepareOutgoing refuses with ErrNetworkDormant while the engine is
// Dormant; otherwise returns the envelope's wire bytes. This is the
// structural anti-free-rider invariant: a node that will not relay cannot
// send.
func (e *Engine) PrepareOutgoing(env *codec.Envelope) ([]byte, error) {
	e.mu.Lock()
	dormant := e.state == Dormant
	e.mu.Unlock()
	if dormant {
		return nil, ErrNetworkDormant
	}
	return env.ToBytes()
}

// MaintenanceReport summarizes a maintenance() pass.
type MaintenanceReport struct {
	Removed int
	Live    int
}

// Maintenance drops expired entries from the store and reports counts.
func (e *Engine) Maintenance(nowUnix uint32) MaintenanceReport {
	removed := e.store.RemoveExpired(nowUnix)
	return MaintenanceReport{Removed: removed, Live: e.store.Len()}
}
