package linkage_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/fourbar/internal/linkage"
)

var _ = Describe("Geometry", func() {
	var g linkage.Geometry

	BeforeEach(func() {
		g = linkage.DefaultGeometry()
	})

	Context("Solve", func() {
		It("places the input tip on the input circle", func() {
			pose, err := g.Solve(90)
			Expect(err).NotTo(HaveOccurred())
			Expect(pose.C.X).To(BeNumerically("~", 0, 1e-9))
			Expect(pose.C.Y).To(BeNumerically("~", 50, 1e-9))
			Expect(pose.A).To(Equal(linkage.Point{X: 0, Y: 0}))
			Expect(pose.B).To(Equal(linkage.Point{X: 100, Y: 0}))
		})

		It("closes the loop when the distance is within reach", func() {
			for theta := -90.0; theta <= 90.0; theta += 7.5 {
				pose, err := g.Solve(theta)
				Expect(err).NotTo(HaveOccurred())
				Expect(pose.Clamped).To(BeFalse())
				Expect(pose.Fallback).To(BeFalse())
				Expect(pose.CouplerLength()).To(BeNumerically("~", g.Coupler, 1e-6))
				Expect(pose.B.Dist(pose.D)).To(BeNumerically("~", g.Output, 1e-6))
			}
		})

		It("returns finite coordinates across the whole reach", func() {
			geometries := []linkage.Geometry{
				linkage.DefaultGeometry(),
				{Input: 30, Coupler: 80, Output: 60, Ground: 70},
				{Input: 40, Coupler: 40, Output: 40, Ground: 40},
				{Input: 20, Coupler: 120, Output: 90, Ground: 100},
			}
			for _, geo := range geometries {
				lo, hi := geo.Reach()
				for theta := 0.0; theta < 360; theta += 1 {
					pose, err := geo.Solve(theta)
					if err != nil {
						continue
					}
					d := pose.C.Dist(pose.B)
					if d < lo-1e-9 || d > hi+1e-9 {
						continue
					}
					Expect(pose.Finite()).To(BeTrue(), "theta=%v geometry=%+v", theta, geo)
				}
			}
		})

		It("clamps the distance to the combined reach", func() {
			short := linkage.Geometry{Input: 80, Coupler: 40, Output: 30, Ground: 100}
			pose, err := short.Solve(180)
			Expect(err).NotTo(HaveOccurred())
			Expect(pose.Clamped).To(BeTrue())
			Expect(pose.Finite()).To(BeTrue())
			Expect(pose.B.Dist(pose.D)).To(BeNumerically("~", short.Output, 1e-9))
			Expect(pose.CouplerLength()).To(BeNumerically(">", short.Coupler))
		})

		It("falls back to a zero triangle angle when the triangle cannot close", func() {
			tight := linkage.Geometry{Input: 50, Coupler: 100, Output: 30, Ground: 60}
			pose, err := tight.Solve(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(pose.Fallback).To(BeTrue())
			Expect(pose.Finite()).To(BeTrue())
			// phi = atan2(0, 10) so D lies on the ground line toward C.
			Expect(pose.D.X).To(BeNumerically("~", 30, 1e-9))
			Expect(pose.D.Y).To(BeNumerically("~", 0, 1e-9))
		})

		It("reports a degenerate pose when the input tip hits the output pivot", func() {
			coincident := linkage.Geometry{Input: 100, Coupler: 100, Output: 50, Ground: 100}
			_, err := coincident.Solve(0)
			Expect(err).To(MatchError(linkage.ErrDegenerate))
		})

		It("anchors the spring between the coupler and output midpoints", func() {
			pose, err := g.Solve(45)
			Expect(err).NotTo(HaveOccurred())
			coupler, output := pose.SpringAnchors()
			Expect(coupler.X).To(BeNumerically("~", (pose.C.X+pose.D.X)/2, 1e-12))
			Expect(output.Y).To(BeNumerically("~", (pose.B.Y+pose.D.Y)/2, 1e-12))
		})
	})

	Context("Validate", func() {
		It("accepts the defaults", func() {
			Expect(g.Validate()).To(Succeed())
		})

		It("rejects non-positive lengths", func() {
			g.Coupler = 0
			Expect(g.Validate()).To(MatchError(linkage.ErrInvalidGeometry))
			g.Coupler = math.NaN()
			Expect(g.Validate()).To(MatchError(linkage.ErrInvalidGeometry))
		})

		It("fills zero links with defaults", func() {
			filled := linkage.Geometry{Coupler: 100}.WithDefaults()
			Expect(filled).To(Equal(linkage.DefaultGeometry()))
		})
	})

	Context("Grashof", func() {
		DescribeTable("classifies mechanisms",
			func(geo linkage.Geometry, want linkage.Class) {
				Expect(geo.Grashof()).To(Equal(want))
			},
			Entry("crank-rocker", linkage.Geometry{Input: 20, Coupler: 70, Output: 60, Ground: 80}, linkage.CrankRocker),
			Entry("double-crank", linkage.Geometry{Input: 70, Coupler: 60, Output: 80, Ground: 20}, linkage.DoubleCrank),
			Entry("double-rocker", linkage.Geometry{Input: 70, Coupler: 20, Output: 60, Ground: 80}, linkage.DoubleRocker),
			Entry("change-point", linkage.DefaultGeometry(), linkage.ChangePoint),
			Entry("triple-rocker", linkage.Geometry{Input: 90, Coupler: 40, Output: 50, Ground: 110}, linkage.NonGrashof),
		)
	})
})
