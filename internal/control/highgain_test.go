package control_test

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/pmsim/internal/body"
	"github.com/san-kum/pmsim/internal/control"
	"github.com/san-kum/pmsim/internal/dynamo"
	"github.com/san-kum/pmsim/internal/motion"
)

func twoJointArm() *body.Body {
	root := body.NewLink("base")
	j1 := root.AddChild(body.NewLink("shoulder"))
	j1.JointType = body.JointRevolute
	j1.Axis = mgl64.Vec3{0, 1, 0}
	j2 := j1.AddChild(body.NewLink("elbow"))
	j2.JointType = body.JointRevolute
	j2.Axis = mgl64.Vec3{0, 1, 0}
	j2.Offset = mgl64.Vec3{0.5, 0, 0}
	b, err := body.New("arm", root)
	Expect(err).NotTo(HaveOccurred())
	return b
}

func sequence(rate float64, frames ...[]float64) *motion.Sequence {
	s, err := motion.New("wave", rate, frames)
	Expect(err).NotTo(HaveOccurred())
	return s
}

var _ = Describe("HighGain", func() {
	var arm *body.Body

	BeforeEach(func() {
		arm = twoJointArm()
	})

	It("is named after its motion", func() {
		c := control.NewHighGain(sequence(1000, []float64{0, 0}))
		Expect(c.Name()).To(Equal("HighGain Controller with wave"))
		Expect(c.HighGain()).To(BeTrue())
	})

	Describe("Start", func() {
		It("accepts a motion recorded at the world frame rate", func() {
			c := control.NewHighGain(sequence(1000, []float64{0, 0}, []float64{0.1, 0.1}))
			Expect(c.Start(arm, 0.001)).To(Succeed())
			Expect(c.State()).To(Equal(control.Running))
			Expect(c.Frame()).To(Equal(0))
		})

		It("rejects a motion recorded at another frame rate", func() {
			c := control.NewHighGain(sequence(500, []float64{0, 0}))
			err := c.Start(arm, 0.001)

			Expect(errors.Is(err, dynamo.ErrFrameRateMismatch)).To(BeTrue())
			var attachErr *dynamo.ControllerAttachError
			Expect(errors.As(err, &attachErr)).To(BeTrue())
			Expect(attachErr.Controller).To(Equal(c.Name()))
			Expect(attachErr.Message).To(ContainSubstring("500"))
			Expect(c.State()).To(Equal(control.NotStarted))
		})

		It("rejects an empty motion before looking at the frame rate", func() {
			c := control.NewHighGain(sequence(500))
			err := c.Start(arm, 0.001)

			Expect(errors.Is(err, dynamo.ErrEmptyMotion)).To(BeTrue())
			Expect(c.State()).To(Equal(control.NotStarted))
		})

		It("drives only the joints both sides know", func() {
			c := control.NewHighGain(sequence(1000, []float64{1, 2, 3}))
			Expect(c.Start(arm, 0.001)).To(Succeed())
			Expect(c.NumJoints()).To(Equal(2))
		})
	})

	Describe("Advance", func() {
		It("succeeds once per frame and then finishes", func() {
			const n = 5
			frames := make([][]float64, n)
			for i := range frames {
				frames[i] = []float64{float64(i), 0}
			}
			c := control.NewHighGain(sequence(1000, frames...))
			Expect(c.Start(arm, 0.001)).To(Succeed())

			for i := 0; i < n; i++ {
				target, ok := c.Advance()
				Expect(ok).To(BeTrue(), "advance %d", i)
				Expect(target.Frame).To(Equal(i))
				Expect(target.Q[0]).To(Equal(float64(i)))
			}
			_, ok := c.Advance()
			Expect(ok).To(BeFalse())
			Expect(c.State()).To(Equal(control.Finished))
			Expect(c.Frame()).To(Equal(n - 1))

			_, ok = c.Advance()
			Expect(ok).To(BeFalse())
		})

		It("finishes a single-frame motion after one advance", func() {
			c := control.NewHighGain(sequence(1000, []float64{0.3, 0.4}))
			Expect(c.Start(arm, 0.001)).To(Succeed())
			target, ok := c.Advance()
			Expect(ok).To(BeTrue())
			Expect(target.DQ).To(Equal([]float64{0, 0}))
			Expect(target.DDQ).To(Equal([]float64{0, 0}))
			_, ok = c.Advance()
			Expect(ok).To(BeFalse())
		})

		It("does nothing before Start", func() {
			c := control.NewHighGain(sequence(1000, []float64{0, 0}))
			_, ok := c.Advance()
			Expect(ok).To(BeFalse())
			Expect(c.State()).To(Equal(control.NotStarted))
		})

		DescribeTable("finite differences with clamped neighbors",
			func(frame int, q, dq, ddq float64) {
				c := control.NewHighGain(sequence(10,
					[]float64{0, 0}, []float64{1, 0}, []float64{4, 0}, []float64{9, 0}))
				Expect(c.Start(arm, 0.1)).To(Succeed())

				var target control.Target
				for i := 0; i <= frame; i++ {
					var ok bool
					target, ok = c.Advance()
					Expect(ok).To(BeTrue())
				}
				Expect(target.Q[0]).To(BeNumerically("~", q, 1e-9))
				Expect(target.DQ[0]).To(BeNumerically("~", dq, 1e-9))
				Expect(target.DDQ[0]).To(BeNumerically("~", ddq, 1e-9))
			},
			Entry("first frame", 0, 0.0, 10.0, 100.0),
			Entry("interior frame", 1, 1.0, 30.0, 200.0),
			Entry("last frame", 3, 9.0, 0.0, -500.0),
		)
	})

	Describe("phases", func() {
		It("writes the target into the joints", func() {
			c := control.NewHighGain(sequence(1000, []float64{0.1, 0.2}, []float64{0.2, 0.4}))
			Expect(c.Start(arm, 0.001)).To(Succeed())

			c.Input()
			Expect(c.Control()).To(BeTrue())
			c.Output()

			Expect(arm.Joint(0).Q).To(Equal(0.1))
			Expect(arm.Joint(1).Q).To(Equal(0.2))
			Expect(arm.Joint(0).DQ).To(BeNumerically("~", 100, 1e-9))
			Expect(arm.Joint(1).DDQ).To(BeNumerically("~", 200000, 1e-6))
		})

		It("refreshes link poses with the written joints", func() {
			c := control.NewHighGain(sequence(1000, []float64{math.Pi / 2, 0}))
			Expect(c.Start(arm, 0.001)).To(Succeed())
			Expect(c.Step(0)).To(BeTrue())

			elbow := arm.LinkByName("elbow")
			Expect(elbow.P.X()).To(BeNumerically("~", 0, 1e-12))
			Expect(elbow.P.Z()).To(BeNumerically("~", -0.5, 1e-12))
		})

		It("stops stepping when the motion ends", func() {
			c := control.NewHighGain(sequence(1000, []float64{0, 0}, []float64{1, 1}))
			Expect(c.Start(arm, 0.001)).To(Succeed())
			Expect(c.Step(0)).To(BeTrue())
			Expect(c.Step(0.001)).To(BeTrue())
			Expect(c.Step(0.002)).To(BeFalse())
			Expect(arm.Joint(0).Q).To(Equal(1.0))
		})
	})
})
