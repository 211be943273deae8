// Package dynamo provides the primitives shared by every layer of the
// penalty-method stepping engine.
//
// The package defines:
//
//   - [DynamicsMode]: forward dynamics, high-gain dynamics or kinematics
//   - [IntegrationMode]: Euler (Runge-Kutta is declared but rejected)
//   - domain errors and the [ConfigurationError] / [ControllerAttachError] wrappers
//   - [ParallelFor]: bounded fan-out used by the kinematics branch
//
// # Example
//
//	mode, err := dynamo.ParseDynamicsMode("High-gain dynamics")
//	if err != nil {
//	    return err
//	}
//	switch mode {
//	case dynamo.ForwardDynamics, dynamo.HighGainDynamics:
//	    w.CalcNextState()
//	case dynamo.Kinematics:
//	    b.CalcForwardKinematics(true, true)
//	}
//
// # Thread Safety
//
// Nothing in this package holds mutable state.
package dynamo
