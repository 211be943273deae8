// Package penalty resolves contacts with a spring-damper (penalty) model.
//
// Normal forces are explicit: proportional to the penetration depth (Kp) and
// to the relative normal velocity (Kv), blended with a bounded depth
// correction. Sliding contacts get Coulomb friction directly. Sticking
// contacts are coupled through the bodies' inertia, so their tangential
// forces are found together with a projected Gauss-Seidel iteration
// ([GaussSeidel]) bounded by the static friction cone.
//
// # Usage
//
//	s := penalty.New(penalty.DefaultConfig(), penalty.WithLogger(log))
//	s.SetCollisionDetector(collision.NewSphereDetector())
//	// once per step, before the world integrates:
//	s.ClearExternalForces()
//	res := s.Solve(world, s.Detect(bodies))
//
// The solver never fails. When the iteration budget runs out the last
// iterate is applied and [Result.Converged] is false.
package penalty
