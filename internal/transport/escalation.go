// Package transport scores and escalates between a peer's available
// transports, and bridges libp2p peer discovery into the routing layer's
// Local Cell.
package transport

import (
	"sort"
	"time"
)

type TransportType int

const (
	TransportBLE TransportType = iota
	TransportWiFiAware
	TransportWiFiDirect
	TransportInternet
	TransportLocal
)

// Characteristics describes one candidate transport's measured behavior.
type Characteristics struct {
	BandwidthMbps float64
	LatencyMs     float64
	IsStreaming   bool
}

var powerRank = map[TransportType]int{
	TransportBLE:        4,
	TransportWiFiAware:  3,
	TransportWiFiDirect: 2,
	TransportInternet:   1,
	TransportLocal:      0,
}

// EscalationPolicy selects which scoring function governs transport
// choice.
type EscalationPolicy int

const (
	PreferHighBandwidth EscalationPolicy = iota
	PreferLowLatency
	PreferLowPower
	Balanced
)

// Score implements the four policy scoring functions. Higher is better.
func (p EscalationPolicy) Score(t TransportType, c Characteristics) float64 {
	switch p {
	case PreferHighBandwidth:
		return c.BandwidthMbps
	case PreferLowLatency:
		return -c.LatencyMs
	case PreferLowPower:
		return float64(powerRank[t])
	case Balanced:
		streamingBit := 0.0
		if c.IsStreaming {
			streamingBit = 1.0
		}
		return 0.4*c.BandwidthMbps + 0.3*(-c.LatencyMs) + 0.3*streamingBit
	default:
		return 0
	}
}

// PeerTransportState is the per-peer escalation bookkeeping.
type PeerTransportState struct {
	CurrentTransport       TransportType
	AvailableTransports    map[TransportType]Characteristics
	LastEscalationAttempt  time.Time
}

func NewPeerTransportState(initial TransportType) *PeerTransportState {
	return &PeerTransportState{
		CurrentTransport:    initial,
		AvailableTransports: make(map[TransportType]Characteristics),
	}
}

type scored struct {
	t     TransportType
	score float64
}

func (s *PeerTransportState) rankedAvailable(policy EscalationPolicy) []scored {
	out := make([]scored, 0, len(s.AvailableTransports))
	for t, c := range s.AvailableTransports {
		out = append(out, scored{t, policy.Score(t, c)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].score > out[j].score })
	return out
}

// Escalate switches to the highest-scoring available transport strictly
// better than current, recording the attempt time. Returns false if no
// transport beats the current one.
func (s *PeerTransportState) Escalate(policy EscalationPolicy, now time.Time) bool {
	s.LastEscalationAttempt = now
	cur, ok := s.AvailableTransports[s.CurrentTransport]
	curScore := policy.Score(s.CurrentTransport, cur)
	if !ok {
		curScore = -1 << 62
	}
	for _, candidate := range s.rankedAvailable(policy) {
		if candidate.score > curScore {
			s.CurrentTransport = candidate.t
			return true
		}
	}
	return false
}

// Deescalate falls back to the next-highest-scoring transport strictly
// worse than current.
func (s *PeerTransportState) Deescalate(policy EscalationPolicy) bool {
	cur, ok := s.AvailableTransports[s.CurrentTransport]
	curScore := policy.Score(s.CurrentTransport, cur)
	if !ok {
		curScore = 1 << 62
	}
	for _, candidate := range s.rankedAvailable(policy) {
		if candidate.score < curScore {
			s.CurrentTransport = candidate.t
			return true
		}
	}
	return false
}
