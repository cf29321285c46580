package routing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func peerID(b byte) PeerID {
	var id PeerID
	id[0] = b
	return id
}

func TestPeerSeenInsertsActive(t *testing.T) {
	c := NewLocalCell()
	now := time.Unix(1000, 0)
	c.PeerSeen(peerID(1), TransportBLE, now)

	p, ok := c.Get(peerID(1))
	require.True(t, ok)
	require.Equal(t, StatusActive, p.Status.Kind)
	require.Contains(t, p.Transports, TransportBLE)
}

func TestTickTransitionsActiveToStaleToDormant(t *testing.T) {
	c := NewLocalCell()
	c.ActiveTimeout = 100 * time.Second
	c.StaleTimeout = 200 * time.Second
	base := time.Unix(1000, 0)
	c.PeerSeen(peerID(1), TransportBLE, base)

	events := c.Tick(base.Add(101 * time.Second))
	require.Contains(t, events, EventPeerBecameStale)
	p, _ := c.Get(peerID(1))
	require.Equal(t, StatusStale, p.Status.Kind)

	events = c.Tick(base.Add(101 * time.Second).Add(201 * time.Second))
	require.Contains(t, events, EventPeerBecameDormant)
	p, _ = c.Get(peerID(1))
	require.Equal(t, StatusDormant, p.Status.Kind)
}

func TestUpdateReliabilityClamped(t *testing.T) {
	c := NewLocalCell()
	c.PeerSeen(peerID(1), TransportBLE, time.Now())
	for i := 0; i < 20; i++ {
		c.UpdateReliability(peerID(1), true)
	}
	p, _ := c.Get(peerID(1))
	require.Equal(t, 1.0, p.ReliabilityScore)

	for i := 0; i < 20; i++ {
		c.UpdateReliability(peerID(1), false)
	}
	p, _ = c.Get(peerID(1))
	require.Equal(t, 0.0, p.ReliabilityScore)
}

func TestMaxPeersEvictsLowestReliability(t *testing.T) {
	c := NewLocalCell()
	c.MaxPeers = 2
	now := time.Now()
	c.PeerSeen(peerID(1), TransportBLE, now)
	c.UpdateReliability(peerID(1), false)
	c.PeerSeen(peerID(2), TransportBLE, now)
	c.PeerSeen(peerID(3), TransportBLE, now)

	require.Equal(t, 2, c.Len())
	_, ok := c.Get(peerID(1))
	require.False(t, ok)
}

func TestRecordSyncRunningMean(t *testing.T) {
	c := NewLocalCell()
	c.PeerSeen(peerID(1), TransportBLE, time.Now())
	c.RecordSync(peerID(1), 100, 1)
	c.RecordSync(peerID(1), 200, 1)

	p, _ := c.Get(peerID(1))
	require.Equal(t, 150.0, p.AvgSyncMs)
}

func TestPeersForHintExcludesStale(t *testing.T) {
	c := NewLocalCell()
	c.ActiveTimeout = 10 * time.Second
	now := time.Unix(1000, 0)
	c.PeerSeen(peerID(1), TransportBLE, now)
	h := Hint{1, 2, 3, 4}
	c.UpdatePeerHints(peerID(1), []Hint{h})

	c.Tick(now.Add(11 * time.Second))
	require.Empty(t, c.PeersForHint(h))
}
