package routing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func advert(hint Hint, nextHop PeerID, hops int, reliability float64, seq uint64, confirmed time.Time) *RouteAdvertisement {
	return &RouteAdvertisement{
		DestinationHint: hint,
		NextHop:         nextHop,
		HopCount:        hops,
		Reliability:     reliability,
		LastConfirmed:   confirmed,
		Sequence:        seq,
		TTL:             time.Hour,
	}
}

func TestAddRouteSequenceOrdering(t *testing.T) {
	g := NewGlobalRoutes()
	h := Hint{1}
	now := time.Now()

	require.True(t, g.AddRoute(advert(h, peerID(1), 3, 0.5, 1, now)))
	require.False(t, g.AddRoute(advert(h, peerID(1), 2, 0.9, 1, now))) // equal sequence, ignored
	require.True(t, g.AddRoute(advert(h, peerID(1), 2, 0.9, 2, now)))  // strictly greater, replaces
}

func TestBestRouteForHintOrdering(t *testing.T) {
	g := NewGlobalRoutes()
	h := Hint{1}
	now := time.Now()
	g.AddRoute(advert(h, peerID(1), 5, 0.9, 1, now))
	g.AddRoute(advert(h, peerID(2), 2, 0.5, 1, now))

	best, ok := g.BestRouteForHint(h)
	require.True(t, ok)
	require.Equal(t, peerID(2), best.NextHop)
}

func TestRequestRouteAttemptsCap(t *testing.T) {
	g := NewGlobalRoutes()
	h := Hint{1}
	g.RequestRoute(h, time.Now())
	for i := 0; i < DefaultMaxRequestAttempts; i++ {
		require.True(t, g.IncrementRouteRequestAttempts(h))
	}
	require.False(t, g.IncrementRouteRequestAttempts(h))
}

func TestComplexRoutingScenario(t *testing.T) {
	g := NewGlobalRoutes()
	h := Hint{1}
	now := time.Now()
	g.AddRoute(advert(h, peerID(1), 5, 0.9, 1, now))
	g.AddRoute(advert(h, peerID(2), 2, 0.5, 1, now))
	g.AddRoute(advert(h, peerID(3), 2, 0.6, 1, now))

	best, _ := g.BestRouteForHint(h)
	require.Equal(t, peerID(3), best.NextHop)

	g.RemoveRoutesVia(peerID(3))
	best, _ = g.BestRouteForHint(h)
	require.Equal(t, peerID(2), best.NextHop)
}

func TestUpdateLocalAdvertisementsDefaults(t *testing.T) {
	g := NewGlobalRoutes()
	now := time.Now()
	g.UpdateLocalAdvertisements([]Hint{{1}, {2}}, peerID(9), now)

	adverts := g.LocalAdvertisements()
	require.Len(t, adverts, 2)
	for _, a := range adverts {
		require.Equal(t, 0, a.HopCount)
		require.Equal(t, 1.0, a.Reliability)
		require.Equal(t, uint64(1), a.Sequence)
		require.Equal(t, time.Hour, a.TTL)
	}
}
