// Package linkage positions the links of a planar four-bar mechanism.
//
// The ground link runs between fixed pivots A = (0, 0) and B = (Ground, 0).
// Given the input-link angle, [Geometry.Solve] places the input tip C and
// then closes the loop by solving triangle C-B-D with the law of cosines,
// where D is the joint between coupler and output link:
//
//	g := linkage.DefaultGeometry()
//	pose, err := g.Solve(30)
//	if errors.Is(err, linkage.ErrDegenerate) {
//	    // C coincides with B; keep the previous pose
//	}
//
// When C is farther from B than the coupler and output links can reach,
// the distance is clamped to Coupler+Output so the loop stays closed with
// a stretched coupler. An arccosine argument outside [-1, 1] falls back to
// a zero triangle angle and is reported through [Pose.Fallback].
package linkage
