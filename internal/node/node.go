// Package node wires every component into a single running instance:
// identity, crypto, mesh store, relay engine, three-layer router, policy
// engine, outbox/inbox, and the peer ledger. Onion routing and cover
// traffic (package privacy) are not wired into the node.
package node

import (
	"crypto/ed25519"
	"crypto/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/driftmesh/drift/internal/codec"
	"github.com/driftmesh/drift/internal/config"
	"github.com/driftmesh/drift/internal/driftcrypto"
	"github.com/driftmesh/drift/internal/ledger"
	"github.com/driftmesh/drift/internal/meshstore"
	"github.com/driftmesh/drift/internal/outbox"
	"github.com/driftmesh/drift/internal/policy"
	"github.com/driftmesh/drift/internal/relay"
	"github.com/driftmesh/drift/internal/routing"
)

// Node is the top-level runtime object a single drift-node process owns.
type Node struct {
	cfg *config.Config
	log *zap.Logger

	identityPriv ed25519.PrivateKey
	identityPub  ed25519.PublicKey
	localHint    [4]byte

	store  *meshstore.Store
	relay  *relay.Engine
	router *routing.Engine
	outbox     *outbox.Outbox
	outboxKey  [32]byte
	outboxPath string
	inbox      *outbox.Inbox
	ledger     *ledger.Ledger
	metrics    *metrics

	mu          sync.Mutex
	relayConfig policy.RelayConfig
}

// New assembles a Node from its durable state. identitySeed is the
// 32-byte Ed25519 seed recovered from the secrets bundle; ledgerState is
// the peer ledger loaded from disk. outboxKey encrypts the on-disk
// outbox snapshot at outboxPath; it is a subkey derived from the
// secrets bundle, never the raw ledger key.
func New(cfg *config.Config, log *zap.Logger, identitySeed []byte, ledgerState *ledger.Ledger, outboxKey [32]byte, outboxPath string) *Node {
	priv := ed25519.NewKeyFromSeed(identitySeed)
	pub := priv.Public().(ed25519.PublicKey)
	hint := driftcrypto.RecipientHint(pub)

	now := func() time.Time { return time.Now() }
	nowUnix := func() uint32 { return uint32(time.Now().Unix()) }

	store := meshstore.New(meshstore.DefaultMaxMessages, nowUnix)
	initial := policy.RelayConfig{
		Profile: policy.ProfileStandard, RelayBudget: 1000, BatteryFloor: 20, ScanInterval: 5 * time.Second,
	}
	relayEngine := relay.New(store, hint, initial.ToRelayEngineConfig(), now)
	router := routing.NewEngine(routing.Hint(hint))

	ob, err := outbox.LoadSnapshot(outboxPath, outboxKey[:], outbox.DefaultMaxPerPeer, outbox.DefaultMaxGlobal)
	if err != nil {
		log.Warn("outbox snapshot unreadable, starting empty", zap.Error(err))
		ob = outbox.New(outbox.DefaultMaxPerPeer, outbox.DefaultMaxGlobal)
	}

	return &Node{
		cfg:          cfg,
		log:          log,
		identityPriv: priv,
		identityPub:  pub,
		localHint:    hint,
		store:        store,
		relay:        relayEngine,
		router:       router,
		outbox:       ob,
		outboxKey:    outboxKey,
		outboxPath:   outboxPath,
		inbox:        outbox.NewInbox(),
		ledger:       ledgerState,
		metrics:      newMetrics(),
		relayConfig:  initial,
	}
}

// SaveOutbox snapshots the outbox to its encrypted on-disk path, for use
// at shutdown.
func (n *Node) SaveOutbox() error {
	return n.outbox.Snapshot(n.outboxPath, n.outboxKey[:])
}

func (n *Node) Identity() ed25519.PublicKey { return n.identityPub }
func (n *Node) LocalHint() [4]byte          { return n.localHint }

// ApplyDeviceState recomputes the relay profile and pushes the derived
// budget into the Relay Engine.
func (n *Node) ApplyDeviceState(state policy.DeviceState, overrides policy.Overrides) error {
	cfg, err := policy.Derive(state, overrides)
	if err != nil {
		return err
	}
	n.mu.Lock()
	n.relayConfig = cfg
	n.mu.Unlock()

	n.relay.SetConfig(cfg.ToRelayEngineConfig())
	n.metrics.recordProfile(cfg.Profile.String())
	return nil
}

// CurrentRelayConfig returns the most recently derived policy snapshot.
func (n *Node) CurrentRelayConfig() policy.RelayConfig {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.relayConfig
}

// Send encrypts plaintext for recipientPub, wraps it in a DriftEnvelope,
// and hands it to the Relay Engine's outgoing gate — which refuses while
// the engine is Dormant.
func (n *Node) Send(recipientPub ed25519.PublicKey, plaintext []byte, priority uint8, ttl time.Duration) ([]byte, error) {
	sealed, err := driftcrypto.Encrypt(n.identityPriv, recipientPub, plaintext)
	if err != nil {
		return nil, err
	}

	var msgID [16]byte
	if _, err := rand.Read(msgID[:]); err != nil {
		return nil, err
	}

	now := uint32(time.Now().Unix())
	wireEnv := &codec.Envelope{
		Version:            codec.CurrentVersion,
		Type:               codec.TypeEncryptedMessage,
		MessageID:          msgID,
		RecipientHint:      driftcrypto.RecipientHint(recipientPub),
		CreatedAt:          now,
		TTLExpiry:          now + uint32(ttl.Seconds()),
		HopCount:           0,
		Priority:           priority,
		SenderPublicKey:    sealed.SenderPublicKey,
		EphemeralPublicKey: sealed.EphemeralPublicKey,
		Nonce:              sealed.Nonce,
		Ciphertext:         sealed.Ciphertext,
	}
	wireEnv.Sign(n.identityPriv)

	return n.relay.PrepareOutgoing(wireEnv)
}

// Receive hands a raw wire envelope to the Relay Engine's incoming
// cascade.
func (n *Node) Receive(raw []byte) (relay.Decision, relay.DropReason, error) {
	env, err := codec.FromBytes(raw)
	if err != nil {
		return relay.DecisionDropped, relay.ReasonNone, err
	}
	decision, reason := n.relay.ProcessIncoming(env, uint32(time.Now().Unix()))
	n.metrics.recordDecision(decision, reason)
	return decision, reason, nil
}

// Decrypt opens a DriftEnvelope addressed to this node.
func (n *Node) Decrypt(env *codec.Envelope) ([]byte, error) {
	return driftcrypto.Decrypt(n.identityPriv, &driftcrypto.Envelope{
		SenderPublicKey:    env.SenderPublicKey,
		EphemeralPublicKey: env.EphemeralPublicKey,
		Nonce:              env.Nonce,
		Ciphertext:         env.Ciphertext,
	})
}

// Tick runs the periodic maintenance cascade: relay store maintenance and
// the routing engine's three-layer cleanup.
func (n *Node) Tick() (relay.MaintenanceReport, routing.TickReport) {
	now := time.Now()
	mr := n.relay.Maintenance(uint32(now.Unix()))
	tr := n.router.Tick(now)
	return mr, tr
}

func (n *Node) Store() *meshstore.Store    { return n.store }
func (n *Node) RelayEngine() *relay.Engine { return n.relay }
func (n *Node) Router() *routing.Engine    { return n.router }
func (n *Node) Outbox() *outbox.Outbox     { return n.outbox }
func (n *Node) Inbox() *outbox.Inbox       { return n.inbox }
func (n *Node) Ledger() *ledger.Ledger     { return n.ledger }

// RunMaintenanceLoop ticks every interval until stop is closed.
func (n *Node) RunMaintenanceLoop(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			mr, tr := n.Tick()
			n.log.Debug("maintenance tick",
				zap.Int("messages_removed", mr.Removed),
				zap.Int("messages_live", mr.Live),
				zap.Int("gateways_expired", tr.GatewaysExpired),
				zap.Int("routes_expired", tr.RoutesExpired),
			)
		}
	}
}
