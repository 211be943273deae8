package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidTimeStep indicates a non-positive or non-finite world time step.
	ErrInvalidTimeStep = errors.New("dynamo: time step must be positive and finite")

	// ErrIntegrationUnsupported indicates an integration scheme that is declared but not wired.
	ErrIntegrationUnsupported = errors.New("dynamo: integration mode is not supported")

	// ErrUnknownMode indicates a symbol that names no dynamics or integration mode.
	ErrUnknownMode = errors.New("dynamo: unknown mode symbol")

	// ErrEmptyMotion indicates a reference motion without frames.
	ErrEmptyMotion = errors.New("dynamo: reference motion is empty")

	// ErrFrameRateMismatch indicates a reference motion recorded at another rate than the world steps.
	ErrFrameRateMismatch = errors.New("dynamo: reference motion frame rate differs from the world frame rate")

	// ErrUnstable indicates the simulation became numerically unstable.
	ErrUnstable = errors.New("dynamo: simulation unstable (state diverged)")

	// ErrInvalidModel indicates a body description that cannot be built.
	ErrInvalidModel = errors.New("dynamo: invalid body model")

	// ErrNoBodies indicates a simulation started without any body.
	ErrNoBodies = errors.New("dynamo: no bodies to simulate")
)

// ConfigurationError is fatal to a simulation run: the world could not be
// initialized with the requested settings.
type ConfigurationError struct {
	Field   string
	Wrapped error
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration: %v", e.Wrapped)
	}
	return fmt.Sprintf("configuration %s: %v", e.Field, e.Wrapped)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Wrapped
}

// ControllerAttachError reports a controller that refused to start. The
// simulation continues without it.
type ControllerAttachError struct {
	Controller string
	Message    string
	Wrapped    error
}

func (e *ControllerAttachError) Error() string {
	return fmt.Sprintf("%s: %s", e.Controller, e.Message)
}

func (e *ControllerAttachError) Unwrap() error {
	return e.Wrapped
}

// SimulationError wraps an error with the step at which it happened.
type SimulationError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
