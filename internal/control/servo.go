package control

import "github.com/san-kum/pmsim/internal/body"

// Servo is a per-joint PID torque controller holding a posture under
// forward dynamics.
type Servo struct {
	Kp      float64
	Ki      float64
	Kd      float64
	Targets []float64

	body     *body.Body
	integral []float64
	prevErr  []float64
	prevT    float64
	first    bool
}

// NewServo holds targets, or the posture found at Start when targets is nil.
func NewServo(kp, ki, kd float64, targets []float64) *Servo {
	return &Servo{
		Kp:      kp,
		Ki:      ki,
		Kd:      kd,
		Targets: targets,
		first:   true,
	}
}

func (s *Servo) Name() string   { return "Servo Controller" }
func (s *Servo) HighGain() bool { return false }

func (s *Servo) Start(b *body.Body, worldTimeStep float64) error {
	s.body = b
	if s.Targets == nil {
		s.Targets = b.JointPositions()
	}
	s.integral = make([]float64, b.NumJoints())
	s.prevErr = make([]float64, b.NumJoints())
	s.first = true
	return nil
}

func (s *Servo) Step(t float64) bool {
	if s.body == nil {
		return false
	}
	n := min(len(s.Targets), s.body.NumJoints())

	dt := t - s.prevT
	for i := 0; i < n; i++ {
		j := s.body.Joint(i)
		err := s.Targets[i] - j.Q

		if s.first || dt <= 0 {
			s.prevErr[i] = err
			j.U = s.Kp * err
			continue
		}
		s.integral[i] += err * dt
		derivative := (err - s.prevErr[i]) / dt
		j.U = s.Kp*err + s.Ki*s.integral[i] + s.Kd*derivative
		s.prevErr[i] = err
	}
	s.first = false
	s.prevT = t
	return true
}

// Reset clears integral and derivative state
func (s *Servo) Reset() {
	for i := range s.integral {
		s.integral[i] = 0
		s.prevErr[i] = 0
	}
	s.first = true
}

// GetParams returns tunable parameters for live adjustment
func (s *Servo) GetParams() map[string]float64 {
	return map[string]float64{
		"Kp": s.Kp,
		"Ki": s.Ki,
		"Kd": s.Kd,
	}
}

// SetParam adjusts a gain
func (s *Servo) SetParam(name string, value float64) {
	switch name {
	case "Kp":
		s.Kp = value
	case "Ki":
		s.Ki = value
	case "Kd":
		s.Kd = value
	}
}
