package privacy

import (
	"errors"
	"sort"

	"github.com/driftmesh/drift/internal/routing"
)

var (
	ErrNotEnoughPeers  = errors.New("privacy: not enough eligible peers to build a circuit")
	ErrInvalidHopRange = errors.New("privacy: min_hops must be <= max_hops")
)

// CircuitConfig controls circuit length and hop-selection diversity.
type CircuitConfig struct {
	MinHops            int
	MaxHops            int
	PreferDiversePaths bool
	MinReliability     float64
}

func DefaultCircuitConfig() CircuitConfig {
	return CircuitConfig{
		MinHops:            3,
		MaxHops:            5,
		PreferDiversePaths: true,
		MinReliability:     0.5,
	}
}

// BuildCircuit selects hopCount relay peers from candidates, excluding self
// and destination, filtering by MinReliability. When PreferDiversePaths is
// set it round-robins across NetworkSegment buckets, taking the
// highest-reliability unused peer from each segment in turn, so a circuit
// doesn't collapse onto a single segment's peers.
func BuildCircuit(cfg CircuitConfig, candidates []*routing.PeerInfo, self, destination routing.PeerID, hopCount int) ([]routing.PeerID, error) {
	if cfg.MinHops > cfg.MaxHops {
		return nil, ErrInvalidHopRange
	}
	if hopCount < cfg.MinHops {
		hopCount = cfg.MinHops
	}
	if hopCount > cfg.MaxHops {
		hopCount = cfg.MaxHops
	}

	eligible := make([]*routing.PeerInfo, 0, len(candidates))
	for _, p := range candidates {
		if p.PeerID == self || p.PeerID == destination {
			continue
		}
		if p.ReliabilityScore < cfg.MinReliability {
			continue
		}
		eligible = append(eligible, p)
	}
	if len(eligible) < hopCount {
		return nil, ErrNotEnoughPeers
	}

	var ordered []*routing.PeerInfo
	if cfg.PreferDiversePaths {
		ordered = diverseOrder(eligible)
	} else {
		ordered = append([]*routing.PeerInfo(nil), eligible...)
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].ReliabilityScore > ordered[j].ReliabilityScore
		})
	}

	hops := make([]routing.PeerID, hopCount)
	for i := 0; i < hopCount; i++ {
		hops[i] = ordered[i].PeerID
	}
	return hops, nil
}

// diverseOrder buckets peers by NetworkSegment, sorts each bucket by
// descending reliability, then round-robins across buckets so consecutive
// picks favor distinct segments.
func diverseOrder(peers []*routing.PeerInfo) []*routing.PeerInfo {
	buckets := make(map[string][]*routing.PeerInfo)
	var segments []string
	for _, p := range peers {
		seg := p.NetworkSegment
		if _, ok := buckets[seg]; !ok {
			segments = append(segments, seg)
		}
		buckets[seg] = append(buckets[seg], p)
	}
	sort.Strings(segments)
	for _, seg := range segments {
		bucket := buckets[seg]
		sort.SliceStable(bucket, func(i, j int) bool {
			return bucket[i].ReliabilityScore > bucket[j].ReliabilityScore
		})
		buckets[seg] = bucket
	}

	out := make([]*routing.PeerInfo, 0, len(peers))
	idx := make(map[string]int, len(segments))
	for len(out) < len(peers) {
		for _, seg := range segments {
			i := idx[seg]
			bucket := buckets[seg]
			if i >= len(bucket) {
				continue
			}
			out = append(out, bucket[i])
			idx[seg] = i + 1
		}
	}
	return out
}
