package policy

import "github.com/driftmesh/drift/internal/relay"

// ToRelayEngineConfig adapts a policy-derived RelayConfig into the shape
// the Relay Engine reads at decision time. MaxHopCount and
// MinRelayPriority are not profile-derived in this spec; callers that
// want to vary them per profile can set them on the returned Config
// before calling Engine.SetConfig.
func (c RelayConfig) ToRelayEngineConfig() relay.Config {
	return relay.Config{
		MaxHopCount:      relay.DefaultConfig().MaxHopCount,
		MinRelayPriority: relay.DefaultConfig().MinRelayPriority,
		MaxRelayPerHour:  c.RelayBudget,
	}
}
