// Package policy derives a device's relay profile from battery and
// connectivity state and turns it into a RelayConfig the Relay Engine
// consumes at decision time.
package policy

import (
	"errors"
	"time"
)

// ErrZeroRelayBudgetOverride is returned when an override would set the
// relay budget to zero. A node may never send while refusing to relay —
// the coupling invariant holds at every policy setting, so this override
// is rejected outright rather than silently clamped.
var ErrZeroRelayBudgetOverride = errors.New("policy: relay budget override must not be zero")

type RelayProfile int

const (
	ProfileMaximum RelayProfile = iota
	ProfileHigh
	ProfileStandard
	ProfileReduced
	ProfileMinimal
)

func (p RelayProfile) String() string {
	switch p {
	case ProfileMaximum:
		return "maximum"
	case ProfileHigh:
		return "high"
	case ProfileStandard:
		return "standard"
	case ProfileReduced:
		return "reduced"
	case ProfileMinimal:
		return "minimal"
	default:
		return "unknown"
	}
}

// DeviceState is the raw input read from the host OS's battery and
// connectivity APIs.
type DeviceState struct {
	BatteryPercent int
	IsCharging     bool
	HasWifi        bool
	IsMoving       bool
}

// ComputeProfile implements the profile derivation table.
func ComputeProfile(s DeviceState) RelayProfile {
	switch {
	case s.IsCharging && s.HasWifi:
		return ProfileMaximum
	case s.IsCharging && !s.HasWifi:
		return ProfileHigh
	case !s.IsCharging && s.BatteryPercent >= 51:
		return ProfileStandard
	case !s.IsCharging && s.BatteryPercent >= 20 && s.BatteryPercent <= 50:
		return ProfileReduced
	default:
		return ProfileMinimal
	}
}

type profileDefaults struct {
	scanInterval time.Duration
	relayBudget  int
	batteryFloor int
}

var defaultsByProfile = map[RelayProfile]profileDefaults{
	ProfileMaximum:  {500 * time.Millisecond, 5000, 10},
	ProfileHigh:     {1000 * time.Millisecond, 3000, 15},
	ProfileStandard: {5000 * time.Millisecond, 1000, 20},
	ProfileReduced:  {15000 * time.Millisecond, 300, 30},
	ProfileMinimal:  {60000 * time.Millisecond, 50, 50},
}

// RelayConfig is the profile's output, consumed by the Relay Engine and
// the scan scheduler.
type RelayConfig struct {
	Profile      RelayProfile
	ScanInterval time.Duration
	RelayBudget  int
	BatteryFloor int
}

// Overrides replaces any subset of a profile's derived fields. A nil
// field leaves the profile default in place.
type Overrides struct {
	ScanInterval *time.Duration
	RelayBudget  *int
	BatteryFloor *int
}

// Derive builds a RelayConfig for state, applying overrides on top of the
// profile's defaults. Returns ErrZeroRelayBudgetOverride if overrides
// would set RelayBudget to zero.
func Derive(s DeviceState, overrides Overrides) (RelayConfig, error) {
	profile := ComputeProfile(s)
	d := defaultsByProfile[profile]
	cfg := RelayConfig{
		Profile:      profile,
		ScanInterval: d.scanInterval,
		RelayBudget:  d.relayBudget,
		BatteryFloor: d.batteryFloor,
	}
	if overrides.RelayBudget != nil {
		if *overrides.RelayBudget == 0 {
			return RelayConfig{}, ErrZeroRelayBudgetOverride
		}
		cfg.RelayBudget = *overrides.RelayBudget
	}
	if overrides.ScanInterval != nil {
		cfg.ScanInterval = *overrides.ScanInterval
	}
	if overrides.BatteryFloor != nil {
		cfg.BatteryFloor = *overrides.BatteryFloor
	}
	return cfg, nil
}
