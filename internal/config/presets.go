package config

import (
	"sort"

	"github.com/san-kum/pmsim/internal/dynamo"
)

// Presets are named starting points for common setups.
var Presets = map[string]func() Config{
	"default": DefaultConfig,
	"stiff": func() Config {
		c := DefaultConfig()
		c.PenaltyKp, c.PenaltyKv = 200000, 2000
		c.TimeStep = 0.0005
		return c
	},
	"soft": func() Config {
		c := DefaultConfig()
		c.PenaltyKp, c.PenaltyKv = 10000, 200
		c.Epsilon = 0.3
		return c
	},
	"replay": func() Config {
		c := DefaultConfig()
		c.DynamicsMode = dynamo.HighGainDynamics
		return c
	},
	"walking": func() Config {
		c := DefaultConfig()
		c.DynamicsMode = dynamo.Kinematics
		c.KinematicWalking = true
		return c
	},
	"planar": func() Config {
		c := DefaultConfig()
		c.Is2D = true
		return c
	},
}

// GetPreset returns a fresh copy of the named preset.
func GetPreset(name string) (Config, bool) {
	p, ok := Presets[name]
	if !ok {
		return Config{}, false
	}
	return p(), true
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
