// Package routing implements the three-layer mycorrhizal routing system:
// a Local Cell of directly reachable peers (Layer 1), a Neighborhood
// gossip table (Layer 2), a sparse Global Route table (Layer 3), and the
// unifying RoutingEngine.
package routing

import "time"

type PeerID [32]byte

type TransportType int

const (
	TransportBLE TransportType = iota
	TransportWiFiAware
	TransportWiFiDirect
	TransportTCP
	TransportQUIC
)

type PeerStatusKind int

const (
	StatusActive PeerStatusKind = iota
	StatusStale
	StatusDormant
)

type PeerStatus struct {
	Kind          PeerStatusKind
	LastSeen      time.Time
	LastTransport TransportType
}

type Hint [4]byte

// PeerInfo is a Local Cell record.
type PeerInfo struct {
	PeerID          PeerID
	Status          PeerStatus
	ReachableHints  map[Hint]struct{}
	MessageCount    int
	ReliabilityScore float64
	Transports      map[TransportType]struct{}
	IsGateway       bool
	SyncCount       int
	AvgSyncMs       float64
	NetworkSegment  string // supplemental: used by circuit diversity selection
}

type RoutingEvent int

const (
	EventPeerBecameStale RoutingEvent = iota
	EventPeerBecameDormant
)

const (
	DefaultMaxPeers      = 1000
	DefaultActiveTimeout = 300 * time.Second
	DefaultStaleTimeout  = 1800 * time.Second
)

// LocalCell is Layer 1.
type LocalCell struct {
	MaxPeers      int
	ActiveTimeout time.Duration
	StaleTimeout  time.Duration
	peers         map[PeerID]*PeerInfo
}

func NewLocalCell() *LocalCell {
	return &LocalCell{
		MaxPeers:      DefaultMaxPeers,
		ActiveTimeout: DefaultActiveTimeout,
		StaleTimeout:  DefaultStaleTimeout,
		peers:         make(map[PeerID]*PeerInfo),
	}
}

// PeerSeen inserts or updates a peer record, adding transport if new and
// setting status Active(now, transport). Evicts the lowest-reliability
// peer when inserting a net-new peer at capacity.
func (c *LocalCell) PeerSeen(id PeerID, transport TransportType, now time.Time) {
	if p, ok := c.peers[id]; ok {
		p.Status = PeerStatus{Kind: StatusActive, LastSeen: now, LastTransport: transport}
		p.Transports[transport] = struct{}{}
		return
	}
	if len(c.peers) >= c.MaxPeers {
		c.evictLowestReliability()
	}
	c.peers[id] = &PeerInfo{
		PeerID:           id,
		Status:           PeerStatus{Kind: StatusActive, LastSeen: now, LastTransport: transport},
		ReachableHints:   make(map[Hint]struct{}),
		ReliabilityScore: 0.5,
		Transports:       map[TransportType]struct{}{transport: {}},
	}
}

func (c *LocalCell) evictLowestReliability() {
	var worst PeerID
	worstScore := 2.0
	first := true
	for id, p := range c.peers {
		if first || p.ReliabilityScore < worstScore {
			worst = id
			worstScore = p.ReliabilityScore
			first = false
		}
	}
	if !first {
		delete(c.peers, worst)
	}
}

func (c *LocalCell) Get(id PeerID) (*PeerInfo, bool) {
	p, ok := c.peers[id]
	return p, ok
}

func (c *LocalCell) UpdatePeerHints(id PeerID, hints []Hint) {
	p, ok := c.peers[id]
	if !ok {
		return
	}
	for _, h := range hints {
		p.ReachableHints[h] = struct{}{}
	}
}

func (c *LocalCell) MarkAsGateway(id PeerID, isGateway bool) {
	if p, ok := c.peers[id]; ok {
		p.IsGateway = isGateway
	}
}

// RecordSync maintains a running arithmetic mean of sync latency.
func (c *LocalCell) RecordSync(id PeerID, durationMs float64, count int) {
	p, ok := c.peers[id]
	if !ok {
		return
	}
	total := p.AvgSyncMs*float64(p.SyncCount) + durationMs
	p.SyncCount++
	p.AvgSyncMs = total / float64(p.SyncCount)
	p.MessageCount += count
}

// UpdateReliability adjusts score by +0.1 on success, -0.15 on failure,
// clamped to [0,1].
func (c *LocalCell) UpdateReliability(id PeerID, success bool) {
	p, ok := c.peers[id]
	if !ok {
		return
	}
	if success {
		p.ReliabilityScore += 0.1
	} else {
		p.ReliabilityScore -= 0.15
	}
	if p.ReliabilityScore < 0 {
		p.ReliabilityScore = 0
	}
	if p.ReliabilityScore > 1 {
		p.ReliabilityScore = 1
	}
}

// Tick runs Active->Stale->Dormant transitions and returns the events
// emitted.
func (c *LocalCell) Tick(now time.Time) []RoutingEvent {
	var events []RoutingEvent
	for _, p := range c.peers {
		switch p.Status.Kind {
		case StatusActive:
			if now.Sub(p.Status.LastSeen) > c.ActiveTimeout {
				p.Status.Kind = StatusStale
				events = append(events, EventPeerBecameStale)
			}
		case StatusStale:
			if now.Sub(p.Status.LastSeen) > c.StaleTimeout {
				p.Status.Kind = StatusDormant
				events = append(events, EventPeerBecameDormant)
			}
		case StatusDormant:
			// absorbing until next PeerSeen
		}
	}
	return events
}

// PeersForHint returns Active peers whose reachable hints contain h.
func (c *LocalCell) PeersForHint(h Hint) []*PeerInfo {
	var out []*PeerInfo
	for _, p := range c.peers {
		if p.Status.Kind != StatusActive {
			continue
		}
		if _, ok := p.ReachableHints[h]; ok {
			out = append(out, p)
		}
	}
	return out
}

// ActivePeers returns all Active peers.
func (c *LocalCell) ActivePeers() []*PeerInfo {
	var out []*PeerInfo
	for _, p := range c.peers {
		if p.Status.Kind == StatusActive {
			out = append(out, p)
		}
	}
	return out
}

// AllPeers returns a snapshot of every known peer, any status.
func (c *LocalCell) AllPeers() []*PeerInfo {
	out := make([]*PeerInfo, 0, len(c.peers))
	for _, p := range c.peers {
		out = append(out, p)
	}
	return out
}

func (c *LocalCell) Len() int { return len(c.peers) }
