package dynamo

import (
	"fmt"
	"strings"
)

// DynamicsMode selects how the stepper advances bodies.
type DynamicsMode int

const (
	ForwardDynamics DynamicsMode = iota
	HighGainDynamics
	Kinematics
)

var dynamicsSymbols = [...]string{
	ForwardDynamics:  "Forward dynamics",
	HighGainDynamics: "High-gain dynamics",
	Kinematics:       "Kinematics",
}

func (m DynamicsMode) String() string {
	if m < 0 || int(m) >= len(dynamicsSymbols) {
		return fmt.Sprintf("DynamicsMode(%d)", int(m))
	}
	return dynamicsSymbols[m]
}

// Valid reports whether m is one of the declared modes.
func (m DynamicsMode) Valid() bool {
	return m >= ForwardDynamics && m <= Kinematics
}

// ParseDynamicsMode accepts the persisted symbol ("High-gain dynamics") as well
// as the short CLI spelling ("highgain", "hg", "forward", "kinematics").
func ParseDynamicsMode(s string) (DynamicsMode, error) {
	for i, sym := range dynamicsSymbols {
		if s == sym {
			return DynamicsMode(i), nil
		}
	}
	switch normalizeSymbol(s) {
	case "forward", "forwarddynamics", "fd":
		return ForwardDynamics, nil
	case "highgain", "highgaindynamics", "hg":
		return HighGainDynamics, nil
	case "kinematics", "kinematic":
		return Kinematics, nil
	}
	return ForwardDynamics, fmt.Errorf("%w: dynamics mode %q", ErrUnknownMode, s)
}

// DynamicsModeSymbols lists the persisted symbols in declaration order.
func DynamicsModeSymbols() []string {
	return append([]string(nil), dynamicsSymbols[:]...)
}

// IntegrationMode selects the integration scheme of the world.
type IntegrationMode int

const (
	Euler IntegrationMode = iota
	RungeKutta
)

var integrationSymbols = [...]string{
	Euler:      "Euler",
	RungeKutta: "Runge Kutta",
}

func (m IntegrationMode) String() string {
	if m < 0 || int(m) >= len(integrationSymbols) {
		return fmt.Sprintf("IntegrationMode(%d)", int(m))
	}
	return integrationSymbols[m]
}

func (m IntegrationMode) Valid() bool {
	return m == Euler || m == RungeKutta
}

// Supported reports whether the world can actually run m.
func (m IntegrationMode) Supported() bool {
	switch m {
	case Euler:
		return true
	case RungeKutta:
		return false
	}
	return false
}

// ParseIntegrationMode accepts the persisted symbol or a short spelling.
func ParseIntegrationMode(s string) (IntegrationMode, error) {
	for i, sym := range integrationSymbols {
		if s == sym {
			return IntegrationMode(i), nil
		}
	}
	switch normalizeSymbol(s) {
	case "euler":
		return Euler, nil
	case "rungekutta", "rk", "rk4":
		return RungeKutta, nil
	}
	return Euler, fmt.Errorf("%w: integration mode %q", ErrUnknownMode, s)
}

// IntegrationModeSymbols lists the persisted symbols in declaration order.
func IntegrationModeSymbols() []string {
	return append([]string(nil), integrationSymbols[:]...)
}

func normalizeSymbol(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(s)
}
