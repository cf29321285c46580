package routing

import "time"

const (
	DefaultMaxGateways   = 100
	DefaultMaxHops       = 4
	DefaultMaxStaleness  = 3600 * time.Second
)

// CellSummary is what a gateway advertises about its own Local Cell.
type CellSummary struct {
	ReachableHints map[Hint]struct{}
}

type GatewayInfo struct {
	GatewayPeerID PeerID
	CellSummary   CellSummary
	HopsAway      int
	LastUpdated   time.Time
	Transport     TransportType
}

// NeighborhoodSummary is a remote gossip record: a gateway's reach as seen
// through some path, tagged with how many hops it traveled.
type NeighborhoodSummary struct {
	ReachableHints map[Hint]struct{}
	HopCount       int
	Timestamp      time.Time
}

// Neighborhood is Layer 2.
type Neighborhood struct {
	MaxGateways  int
	MaxHops      int
	MaxStaleness time.Duration

	gateways  map[PeerID]*GatewayInfo
	summaries []NeighborhoodSummary
}

func NewNeighborhood() *Neighborhood {
	return &Neighborhood{
		MaxGateways:  DefaultMaxGateways,
		MaxHops:      DefaultMaxHops,
		MaxStaleness: DefaultMaxStaleness,
		gateways:     make(map[PeerID]*GatewayInfo),
	}
}

// UpdateGateway drops advertisements beyond MaxHops. On capacity, evicts
// the gateway with the oldest LastUpdated.
func (n *Neighborhood) UpdateGateway(gw PeerID, summary CellSummary, hops int, transport TransportType, now time.Time) {
	if hops > n.MaxHops {
		return
	}
	if _, exists := n.gateways[gw]; !exists && len(n.gateways) >= n.MaxGateways {
		n.evictOldest()
	}
	n.gateways[gw] = &GatewayInfo{
		GatewayPeerID: gw,
		CellSummary:   summary,
		HopsAway:      hops,
		LastUpdated:   now,
		Transport:     transport,
	}
}

func (n *Neighborhood) evictOldest() {
	var oldest PeerID
	var oldestTime time.Time
	first := true
	for id, g := range n.gateways {
		if first || g.LastUpdated.Before(oldestTime) {
			oldest = id
			oldestTime = g.LastUpdated
			first = false
		}
	}
	if !first {
		delete(n.gateways, oldest)
	}
}

// ProcessGossip folds each remote summary in with an incremented hop
// count, rejecting those that would exceed MaxHops. It does not record the
// sending peer as a gateway; that takes a separate UpdateGateway call.
// Duplicate summaries (matching hints and hop count) keep whichever has
// the greater timestamp.
func (n *Neighborhood) ProcessGossip(gossip []NeighborhoodSummary) {
	for _, s := range gossip {
		s.HopCount++
		if s.HopCount > n.MaxHops {
			continue
		}
		n.insertOrReplaceSummary(s)
	}
}

func (n *Neighborhood) insertOrReplaceSummary(s NeighborhoodSummary) {
	for i, existing := range n.summaries {
		if sameHints(existing.ReachableHints, s.ReachableHints) && existing.HopCount == s.HopCount {
			if s.Timestamp.After(existing.Timestamp) {
				n.summaries[i] = s
			}
			return
		}
	}
	n.summaries = append(n.summaries, s)
}

func sameHints(a, b map[Hint]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for h := range a {
		if _, ok := b[h]; !ok {
			return false
		}
	}
	return true
}

// BestGatewayForHint picks, among gateways whose summary contains h, the
// one with fewest hops; ties broken by higher reliability (reliability is
// carried by the caller's LocalCell; here we accept a reliability lookup
// func so Neighborhood stays decoupled from LocalCell).
func (n *Neighborhood) BestGatewayForHint(h Hint, reliabilityOf func(PeerID) float64) (*GatewayInfo, bool) {
	var best *GatewayInfo
	for _, g := range n.gateways {
		if _, ok := g.CellSummary.ReachableHints[h]; !ok {
			continue
		}
		if best == nil || g.HopsAway < best.HopsAway {
			best = g
		} else if g.HopsAway == best.HopsAway && reliabilityOf(g.GatewayPeerID) > reliabilityOf(best.GatewayPeerID) {
			best = g
		}
	}
	return best, best != nil
}

// Cleanup drops gateways older than MaxStaleness.
func (n *Neighborhood) Cleanup(now time.Time) int {
	removed := 0
	for id, g := range n.gateways {
		if now.Sub(g.LastUpdated) > n.MaxStaleness {
			delete(n.gateways, id)
			removed++
		}
	}
	return removed
}

func (n *Neighborhood) Len() int { return len(n.gateways) }
