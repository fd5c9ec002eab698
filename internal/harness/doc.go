// Package harness provides conformance testing for G3D programs.
//
// A scenario names a program, the outcome compiling it must produce, and
// assertions over the compiled result. Scenarios are the executable form
// of the language's acceptance cases and back the `g3d test` command.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: saddle
//	description: "Saddle surface inlines its function"
//	source: |
//	  SET RANGE X -2 TO 2
//	  DEF FNSADDLE(x,y) = x^2 - y^2
//	  PLOT3D FNSADDLE(x,y)
//	assertions:
//	  - type: surface_expr
//	    expr: "x^2 - y^2"
//	  - type: eval
//	    expr: "FNSADDLE(1, 2)"
//	    expect: -3
//
// A scenario either lists assertions or expects a compile error:
//
//	expect_error:
//	  code: E213
//	  line: 3
//	  contains: "undefined function"
//
// # Assertion Types
//
//   - surface_count: number of surface plots, including the implicit one
//   - surface_expr: expression of the surface at index
//   - function_kind: kind of a named function
//   - eval: value of an expression, with vars bound and a tolerance
//   - animation_frames: frame count of the ANIMATE sweep, 0 without one
//   - color_map: selected color map
//   - label_count: number of labels
//   - particle_count: PARTICLES count, 0 without one
//   - contour_levels: the ordered contour thresholds
//
// # Golden Files
//
// RunWithGolden snapshots the canonical JSON of the compiled program (or
// the compile error) under testdata/golden. Canonical JSON makes the
// snapshot byte-stable across runs.
package harness
