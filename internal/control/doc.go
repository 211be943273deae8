// Package control provides joint controllers for articulated bodies.
//
// Controllers implement [Controller] and are driven once per world step by
// the host loop:
//
//   - [HighGain]: replays a reference motion by prescribing joint angles,
//     velocities and accelerations (finite differences of the frames)
//   - [Servo]: PID torque control towards a fixed posture
//
// # Usage
//
//	seq, _ := motion.Load("motions/wave.yaml")
//	hg := control.NewHighGain(seq)
//	if err := hg.Start(b, 0.001); err != nil {
//		// *dynamo.ControllerAttachError, run without the controller
//	}
//	for hg.Step(t) {
//		// advance the world
//	}
package control
