package graph

import (
	"fmt"
	"sort"
)

// Simulation parameter names as persisted in the preference store.
const (
	ParamLinkDistance     = "linkDistance"
	ParamChargeStrength   = "chargeStrength"
	ParamCollisionRadius  = "collisionRadius"
	ParamClusterTightness = "clusterTightness"
)

// SimulationParameters are the user-tunable layout knobs.
type SimulationParameters struct {
	LinkDistance     float64 `json:"linkDistance" yaml:"link_distance"`
	ChargeStrength   float64 `json:"chargeStrength" yaml:"charge_strength"`
	CollisionRadius  float64 `json:"collisionRadius" yaml:"collision_radius"`
	ClusterTightness float64 `json:"clusterTightness" yaml:"cluster_tightness"`
}

// DefaultSimulationParameters returns the out-of-the-box layout settings.
func DefaultSimulationParameters() SimulationParameters {
	return SimulationParameters{
		LinkDistance:     100,
		ChargeStrength:   -300,
		CollisionRadius:  10,
		ClusterTightness: 0.3,
	}
}

type paramRange struct{ min, max float64 }

var paramRanges = map[string]paramRange{
	ParamLinkDistance:     {10, 500},
	ParamChargeStrength:   {-3000, 0},
	ParamCollisionRadius:  {0, 100},
	ParamClusterTightness: {0.05, 1},
}

// ParameterNames returns the known parameter names in a stable order.
func ParameterNames() []string {
	names := make([]string, 0, len(paramRanges))
	for name := range paramRanges {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckParameter validates a named parameter value against its allowed range.
func CheckParameter(name string, value float64) error {
	r, ok := paramRanges[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownParameter, name)
	}
	if value < r.min || value > r.max {
		return fmt.Errorf("%w: %s=%v not in [%v, %v]", ErrParameterRange, name, value, r.min, r.max)
	}
	return nil
}

// Get returns the named parameter.
func (p SimulationParameters) Get(name string) (float64, error) {
	switch name {
	case ParamLinkDistance:
		return p.LinkDistance, nil
	case ParamChargeStrength:
		return p.ChargeStrength, nil
	case ParamCollisionRadius:
		return p.CollisionRadius, nil
	case ParamClusterTightness:
		return p.ClusterTightness, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownParameter, name)
}

// With returns a copy of p with the named parameter set after range checking.
func (p SimulationParameters) With(name string, value float64) (SimulationParameters, error) {
	if err := CheckParameter(name, value); err != nil {
		return p, err
	}
	switch name {
	case ParamLinkDistance:
		p.LinkDistance = value
	case ParamChargeStrength:
		p.ChargeStrength = value
	case ParamCollisionRadius:
		p.CollisionRadius = value
	case ParamClusterTightness:
		p.ClusterTightness = value
	}
	return p, nil
}

// Validate checks every parameter.
func (p SimulationParameters) Validate() error {
	for _, name := range ParameterNames() {
		v, _ := p.Get(name)
		if err := CheckParameter(name, v); err != nil {
			return err
		}
	}
	return nil
}
