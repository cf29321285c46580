package routing

import "time"

// DecidedBy records which layer produced the primary decision.
type DecidedBy int

const (
	DecidedByLocal DecidedBy = iota
	DecidedByNeighborhood
	DecidedByGlobal
	DecidedByStoreAndCarry
)

type NextHopKind int

const (
	NextHopDirect NextHopKind = iota
	NextHopGateway
	NextHopGlobalRoute
	NextHopRouteDiscovery
	NextHopStoreAndCarry
)

type NextHop struct {
	Kind      NextHopKind
	Peer      PeerID
	Transport TransportType
	Hops      int
	Hint      Hint
}

// RoutingDecision is route_message's result.
type RoutingDecision struct {
	Primary      NextHop
	Alternatives []NextHop
	DecidedBy    DecidedBy
	Confidence   float64
}

// HighPriorityThreshold is the priority at or above which a RouteDiscovery
// may be triggered when no local/neighborhood/global route exists.
const HighPriorityThreshold = 100

// Engine owns one of each layer and a fixed local hint.
type Engine struct {
	Local        *LocalCell
	Neighborhood *Neighborhood
	Global       *GlobalRoutes
	LocalHint    Hint
}

func NewEngine(localHint Hint) *Engine {
	return &Engine{
		Local:        NewLocalCell(),
		Neighborhood: NewNeighborhood(),
		Global:       NewGlobalRoutes(),
		LocalHint:    localHint,
	}
}

func (e *Engine) reliabilityOf(id PeerID) float64 {
	if p, ok := e.Local.Get(id); ok {
		return p.ReliabilityScore
	}
	return 0
}

// RouteMessage runs the four-step decision cascade.
func (e *Engine) RouteMessage(hint Hint, priority uint8, now time.Time) RoutingDecision {
	var alternatives []NextHop

	if peers := e.Local.PeersForHint(hint); len(peers) > 0 {
		best := peers[0]
		for _, p := range peers[1:] {
			if p.ReliabilityScore > best.ReliabilityScore {
				best = p
			}
		}
		transport := firstTransport(best.Transports)
		primary := NextHop{Kind: NextHopDirect, Peer: best.PeerID, Transport: transport, Hint: hint}
		confidence := best.ReliabilityScore
		if confidence > 0.98 {
			confidence = 0.98
		}
		alternatives = e.collectAlternatives(hint, NextHopDirect)
		return RoutingDecision{Primary: primary, Alternatives: alternatives, DecidedBy: DecidedByLocal, Confidence: confidence}
	}

	if gw, ok := e.Neighborhood.BestGatewayForHint(hint, e.reliabilityOf); ok {
		primary := NextHop{Kind: NextHopGateway, Peer: gw.GatewayPeerID, Transport: gw.Transport, Hops: gw.HopsAway, Hint: hint}
		confidence := 0.85 - 0.05*float64(gw.HopsAway)
		alternatives = e.collectAlternatives(hint, NextHopGateway)
		return RoutingDecision{Primary: primary, Alternatives: alternatives, DecidedBy: DecidedByNeighborhood, Confidence: confidence}
	}

	if route, ok := e.Global.BestRouteForHint(hint); ok {
		primary := NextHop{Kind: NextHopGlobalRoute, Peer: route.NextHop, Hops: route.HopCount, Hint: hint}
		alternatives = e.collectAlternatives(hint, NextHopGlobalRoute)
		return RoutingDecision{Primary: primary, Alternatives: alternatives, DecidedBy: DecidedByGlobal, Confidence: route.Reliability}
	}

	if priority >= HighPriorityThreshold && !e.Global.HasPendingRequest(hint) {
		return RoutingDecision{
			Primary:   NextHop{Kind: NextHopRouteDiscovery, Hint: hint},
			DecidedBy: DecidedByStoreAndCarry,
		}
	}
	return RoutingDecision{
		Primary:   NextHop{Kind: NextHopStoreAndCarry, Hint: hint},
		DecidedBy: DecidedByStoreAndCarry,
	}
}

// collectAlternatives asks the other two layers the same question so that
// high-priority messages may be sent redundantly.
func (e *Engine) collectAlternatives(hint Hint, exclude NextHopKind) []NextHop {
	var alts []NextHop
	if exclude != NextHopGateway {
		if gw, ok := e.Neighborhood.BestGatewayForHint(hint, e.reliabilityOf); ok {
			alts = append(alts, NextHop{Kind: NextHopGateway, Peer: gw.GatewayPeerID, Transport: gw.Transport, Hops: gw.HopsAway, Hint: hint})
		}
	}
	if exclude != NextHopGlobalRoute {
		if route, ok := e.Global.BestRouteForHint(hint); ok {
			alts = append(alts, NextHop{Kind: NextHopGlobalRoute, Peer: route.NextHop, Hops: route.HopCount, Hint: hint})
		}
	}
	return alts
}

func firstTransport(ts map[TransportType]struct{}) TransportType {
	for t := range ts {
		return t
	}
	return TransportTCP
}

// TickReport aggregates counts from a Tick pass.
type TickReport struct {
	LocalEvents     []RoutingEvent
	GatewaysExpired int
	RoutesExpired   int
	RequestsExpired int
}

// Tick runs L1.Tick, L2.Cleanup, L3.Cleanup.
func (e *Engine) Tick(now time.Time) TickReport {
	events := e.Local.Tick(now)
	gwExpired := e.Neighborhood.Cleanup(now)
	routesExpired, requestsExpired := e.Global.Cleanup(now)
	return TickReport{
		LocalEvents:     events,
		GatewaysExpired: gwExpired,
		RoutesExpired:   routesExpired,
		RequestsExpired: requestsExpired,
	}
}
