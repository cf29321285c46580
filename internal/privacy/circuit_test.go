package privacy

import (
	"testing"

	"github.com/driftmesh/drift/internal/routing"
	"github.com/stretchr/testify/require"
)

func mkPeer(id byte, segment string, reliability float64) *routing.PeerInfo {
	var pid routing.PeerID
	pid[0] = id
	return &routing.PeerInfo{PeerID: pid, NetworkSegment: segment, ReliabilityScore: reliability}
}

func TestBuildCircuitExcludesSelfAndDestination(t *testing.T) {
	self := mkPeer(1, "a", 0.9).PeerID
	dest := mkPeer(2, "a", 0.9).PeerID
	candidates := []*routing.PeerInfo{
		mkPeer(1, "a", 0.9),
		mkPeer(2, "a", 0.9),
		mkPeer(3, "b", 0.8),
		mkPeer(4, "c", 0.7),
	}
	cfg := DefaultCircuitConfig()
	hops, err := BuildCircuit(cfg, candidates, self, dest, 3)
	require.NoError(t, err)
	require.Len(t, hops, 3)
	for _, h := range hops {
		require.NotEqual(t, self, h)
		require.NotEqual(t, dest, h)
	}
}

func TestBuildCircuitFiltersLowReliability(t *testing.T) {
	candidates := []*routing.PeerInfo{
		mkPeer(1, "a", 0.1),
		mkPeer(2, "b", 0.9),
		mkPeer(3, "c", 0.9),
	}
	cfg := DefaultCircuitConfig()
	cfg.MinReliability = 0.5
	_, err := BuildCircuit(cfg, candidates, routing.PeerID{}, routing.PeerID{}, 3)
	require.ErrorIs(t, err, ErrNotEnoughPeers)
}

func TestBuildCircuitDiversitySpreadsAcrossSegments(t *testing.T) {
	candidates := []*routing.PeerInfo{
		mkPeer(1, "a", 0.9),
		mkPeer(2, "a", 0.8),
		mkPeer(3, "b", 0.7),
		mkPeer(4, "c", 0.6),
	}
	cfg := DefaultCircuitConfig()
	cfg.PreferDiversePaths = true
	hops, err := BuildCircuit(cfg, candidates, routing.PeerID{}, routing.PeerID{}, 3)
	require.NoError(t, err)
	require.Len(t, hops, 3)

	segments := make(map[string]bool)
	byID := map[routing.PeerID]string{
		candidates[0].PeerID: "a",
		candidates[1].PeerID: "a",
		candidates[2].PeerID: "b",
		candidates[3].PeerID: "c",
	}
	for _, h := range hops {
		segments[byID[h]] = true
	}
	require.Len(t, segments, 3)
}

func TestBuildCircuitRejectsInvalidHopRange(t *testing.T) {
	cfg := DefaultCircuitConfig()
	cfg.MinHops = 5
	cfg.MaxHops = 3
	_, err := BuildCircuit(cfg, nil, routing.PeerID{}, routing.PeerID{}, 3)
	require.ErrorIs(t, err, ErrInvalidHopRange)
}

func TestBuildCircuitClampsHopCountToRange(t *testing.T) {
	candidates := make([]*routing.PeerInfo, 0, 6)
	for i := byte(1); i <= 6; i++ {
		candidates = append(candidates, mkPeer(i, "a", 0.9))
	}
	cfg := DefaultCircuitConfig()
	cfg.MinHops = 3
	cfg.MaxHops = 5
	hops, err := BuildCircuit(cfg, candidates, routing.PeerID{}, routing.PeerID{}, 1)
	require.NoError(t, err)
	require.Len(t, hops, 3)

	hops, err = BuildCircuit(cfg, candidates, routing.PeerID{}, routing.PeerID{}, 10)
	require.NoError(t, err)
	require.Len(t, hops, 5)
}
