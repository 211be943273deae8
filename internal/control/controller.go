package control

import "github.com/san-kum/pmsim/internal/body"

// Controller drives the joints of one body.
type Controller interface {
	Name() string
	// Start binds the controller to b. A failing Start leaves the controller
	// unusable and the body uncontrolled.
	Start(b *body.Body, worldTimeStep float64) error
	// Step writes the joint commands for the coming world step and reports
	// whether the controller is still active.
	Step(t float64) bool
	// HighGain reports whether the body must be simulated with prescribed
	// joint trajectories.
	HighGain() bool
}
