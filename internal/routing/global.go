package routing

import "time"

const (
	DefaultMaxRoutesPerHint = 3
	DefaultMaxTotalRoutes   = 10_000
	DefaultMaxRequestAttempts = 5
	DefaultRequestExpiry      = 300 * time.Second
)

// RouteAdvertisement is a Layer 3 route.
type RouteAdvertisement struct {
	DestinationHint Hint
	NextHop         PeerID
	HopCount        int
	Reliability     float64
	LastConfirmed   time.Time
	Sequence        uint64
	TTL             time.Duration
}

// RouteRequest tracks a pending demand-driven route lookup.
type RouteRequest struct {
	Hint        Hint
	RequestedAt time.Time
	Attempts    int
	MaxAttempts int
}

// GlobalRoutes is Layer 3.
type GlobalRoutes struct {
	MaxRoutesPerHint int
	MaxTotalRoutes   int

	routes        map[Hint][]*RouteAdvertisement
	totalRoutes   int
	pending       map[Hint]*RouteRequest
	localAdverts  []*RouteAdvertisement
}

func NewGlobalRoutes() *GlobalRoutes {
	return &GlobalRoutes{
		MaxRoutesPerHint: DefaultMaxRoutesPerHint,
		MaxTotalRoutes:   DefaultMaxTotalRoutes,
		routes:           make(map[Hint][]*RouteAdvertisement),
		pending:          make(map[Hint]*RouteRequest),
	}
}

// AddRoute applies the capacity/replacement/dominance rules of §4.H.
func (g *GlobalRoutes) AddRoute(ad *RouteAdvertisement) bool {
	bucket := g.routes[ad.DestinationHint]

	for i, existing := range bucket {
		if existing.NextHop == ad.NextHop {
			if ad.Sequence > existing.Sequence {
				bucket[i] = ad
				return true
			}
			return false
		}
	}

	if g.totalRoutes >= g.MaxTotalRoutes {
		return false
	}

	if len(bucket) >= g.MaxRoutesPerHint {
		worstIdx := worstRouteIndex(bucket)
		if !dominates(ad, bucket[worstIdx]) {
			return false
		}
		bucket[worstIdx] = ad
		g.routes[ad.DestinationHint] = bucket
		return true
	}

	g.routes[ad.DestinationHint] = append(bucket, ad)
	g.totalRoutes++
	return true
}

// dominates reports whether a should replace b: fewer hops; tie -> higher
// reliability; tie -> more recent.
func dominates(a, b *RouteAdvertisement) bool {
	if a.HopCount != b.HopCount {
		return a.HopCount < b.HopCount
	}
	if a.Reliability != b.Reliability {
		return a.Reliability > b.Reliability
	}
	return a.LastConfirmed.After(b.LastConfirmed)
}

func worstRouteIndex(bucket []*RouteAdvertisement) int {
	worst := 0
	for i := 1; i < len(bucket); i++ {
		if dominates(bucket[worst], bucket[i]) {
			worst = i
		}
	}
	return worst
}

// BestRouteForHint selects by (fewest hops, highest reliability, most
// recently confirmed).
func (g *GlobalRoutes) BestRouteForHint(h Hint) (*RouteAdvertisement, bool) {
	bucket := g.routes[h]
	if len(bucket) == 0 {
		return nil, false
	}
	best := bucket[0]
	for _, r := range bucket[1:] {
		if dominates(r, best) {
			best = r
		}
	}
	return best, true
}

// RequestRoute creates a pending request, replacing any existing one.
func (g *GlobalRoutes) RequestRoute(h Hint, now time.Time) *RouteRequest {
	req := &RouteRequest{Hint: h, RequestedAt: now, MaxAttempts: DefaultMaxRequestAttempts}
	g.pending[h] = req
	return req
}

func (g *GlobalRoutes) HasPendingRequest(h Hint) bool {
	_, ok := g.pending[h]
	return ok
}

// IncrementRouteRequestAttempts returns false once attempts reach
// MaxAttempts.
func (g *GlobalRoutes) IncrementRouteRequestAttempts(h Hint) bool {
	req, ok := g.pending[h]
	if !ok {
		return false
	}
	if req.Attempts >= req.MaxAttempts {
		return false
	}
	req.Attempts++
	return true
}

// UpdateLocalAdvertisements replaces the outbound ad list with
// self-advertisements: hop_count=0, reliability=1.0, ttl=3600s, sequence=1.
func (g *GlobalRoutes) UpdateLocalAdvertisements(hints []Hint, localID PeerID, now time.Time) {
	adverts := make([]*RouteAdvertisement, 0, len(hints))
	for _, h := range hints {
		adverts = append(adverts, &RouteAdvertisement{
			DestinationHint: h,
			NextHop:         localID,
			HopCount:        0,
			Reliability:     1.0,
			LastConfirmed:   now,
			Sequence:        1,
			TTL:             3600 * time.Second,
		})
	}
	g.localAdverts = adverts
}

func (g *GlobalRoutes) LocalAdvertisements() []*RouteAdvertisement { return g.localAdverts }

// Cleanup drops routes past TTL and pending requests older than
// DefaultRequestExpiry.
func (g *GlobalRoutes) Cleanup(now time.Time) (routesRemoved, requestsRemoved int) {
	for hint, bucket := range g.routes {
		kept := bucket[:0]
		for _, r := range bucket {
			if now.Sub(r.LastConfirmed) >= r.TTL {
				routesRemoved++
				g.totalRoutes--
				continue
			}
			kept = append(kept, r)
		}
		if len(kept) == 0 {
			delete(g.routes, hint)
		} else {
			g.routes[hint] = kept
		}
	}
	for hint, req := range g.pending {
		if now.Sub(req.RequestedAt) > DefaultRequestExpiry {
			delete(g.pending, hint)
			requestsRemoved++
		}
	}
	return
}

// RemoveRoutesVia drops every route whose NextHop equals peer — used when
// a peer disconnects.
func (g *GlobalRoutes) RemoveRoutesVia(peer PeerID) int {
	removed := 0
	for hint, bucket := range g.routes {
		kept := bucket[:0]
		for _, r := range bucket {
			if r.NextHop == peer {
				removed++
				g.totalRoutes--
				continue
			}
			kept = append(kept, r)
		}
		if len(kept) == 0 {
			delete(g.routes, hint)
		} else {
			g.routes[hint] = kept
		}
	}
	return removed
}
