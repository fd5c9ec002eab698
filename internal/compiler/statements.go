package compiler

import (
	"errors"
	"math"
	"strings"

	"github.com/roach88/g3d/internal/expr"
	"github.com/roach88/g3d/internal/ir"
)

// handler compiles one statement. rest is the line text after the keyword.
type handler func(s *state, ln line, rest string) error

// statements is the dispatch table keyed by upper-cased leading keyword.
var statements = map[string]handler{
	"SET":           compileSet,
	"COLOR":         compileColor,
	"PARTICLES":     compileParticles,
	"CONTOUR":       compileContour,
	"LABEL":         compileLabel,
	"DEF":           compileDef,
	"PLOT3D":        compilePlot3D,
	"PLOT_VECFIELD": compileVecField,
	"PLOT_TENSOR":   compileTensorPlot,
	"ANIMATE":       compileAnimate,
}

// Grammar hints used in E201 messages.
const (
	usageSet      = "SET RANGE <X|Y|Z> <min> TO <max>"
	usageColor    = "COLOR MAP <name>"
	usageContour  = "CONTOUR LEVELS <n1>, <n2>, ..."
	usageLabel    = "LABEL <text> AT <x>, <y>, <z>"
	usageDef      = "DEF <name>[(<params>)] = <expr>"
	usageVecField = "PLOT_VECFIELD <name> [GRID <n>] [PHYSICS <key>=<value>, ...]"
	usageTensor   = "PLOT_TENSOR <name> AS GLYPH '<glyph>'"
	usageAnimate  = "ANIMATE <param> FROM <expr> TO <expr> STEP <expr>"
)

// lex tokenizes rest and drops the trailing EOF. Out-of-range numeric
// literals map to E202, other lexical failures to code.
func lex(ln line, rest, code string) ([]expr.Token, error) {
	toks, err := expr.Lex(rest)
	if err != nil {
		var se *expr.SyntaxError
		if errors.As(err, &se) && strings.HasPrefix(se.Message, "invalid number") {
			return nil, errorf(ln.num, ErrInvalidNumber, "%s", se.Message)
		}
		return nil, errorf(ln.num, code, "%v", err)
	}
	return toks[:len(toks)-1], nil
}

// signedNumber accepts an optionally signed numeric literal.
func signedNumber(toks []expr.Token) (float64, bool) {
	sign := 1.0
	if len(toks) == 2 && (toks[0].Kind == expr.Minus || toks[0].Kind == expr.Plus) {
		if toks[0].Kind == expr.Minus {
			sign = -1
		}
		toks = toks[1:]
	}
	if len(toks) != 1 || toks[0].Kind != expr.Number {
		return 0, false
	}
	return sign * toks[0].Num, true
}

// indexWord returns the index of the first top-level identifier equal to
// word at or after from, or -1.
func indexWord(toks []expr.Token, word string, from int) int {
	depth := 0
	for i, t := range toks {
		switch t.Kind {
		case expr.LParen, expr.LBracket:
			depth++
		case expr.RParen, expr.RBracket:
			depth--
		}
		if i >= from && depth == 0 && t.Is(word) {
			return i
		}
	}
	return -1
}

// parseExpr parses a token run as an expression, mapping failures to E216.
func parseExpr(ln line, toks []expr.Token, what string) (expr.Node, error) {
	n, err := expr.ParseTokens(toks)
	if err != nil {
		return nil, errorf(ln.num, ErrMalformedExpr, "malformed expression in %s: %v", what, err)
	}
	return n, nil
}

func compileSet(s *state, ln line, rest string) error {
	toks, err := lex(ln, rest, ErrUnknownStatement)
	if err != nil {
		return err
	}
	if len(toks) < 2 || !toks[0].Is("RANGE") || toks[1].Kind != expr.Name {
		return errorf(ln.num, ErrUnknownStatement, "malformed statement, expected %s", usageSet)
	}

	var target *ir.Range
	switch strings.ToUpper(toks[1].Text) {
	case "X":
		target = &s.prog.Ranges.X
	case "Y":
		target = &s.prog.Ranges.Y
	case "Z":
		target = &s.prog.Ranges.Z
	default:
		return errorf(ln.num, ErrUnknownStatement, "unknown axis %q, expected %s", toks[1].Text, usageSet)
	}

	to := indexWord(toks, "TO", 2)
	if to < 0 {
		return errorf(ln.num, ErrUnknownStatement, "missing TO, expected %s", usageSet)
	}
	lo, ok := signedNumber(toks[2:to])
	if !ok {
		return errorf(ln.num, ErrInvalidNumber, "invalid number %q for range minimum", expr.Span(rest, toks[2:to]))
	}
	hi, ok := signedNumber(toks[to+1:])
	if !ok {
		return errorf(ln.num, ErrInvalidNumber, "invalid number %q for range maximum", expr.Span(rest, toks[to+1:]))
	}
	if lo >= hi {
		return errorf(ln.num, ErrRangeOrder, "range %s minimum %g must be less than maximum %g",
			strings.ToUpper(toks[1].Text), lo, hi)
	}

	*target = ir.Range{Min: lo, Max: hi}
	return nil
}

func compileColor(s *state, ln line, rest string) error {
	toks, err := lex(ln, rest, ErrUnknownStatement)
	if err != nil {
		return err
	}
	if len(toks) != 2 || !toks[0].Is("MAP") {
		return errorf(ln.num, ErrUnknownStatement, "malformed statement, expected %s", usageColor)
	}

	name := toks[1].Text
	if toks[1].Kind == expr.String {
		name = toks[1].Str
	}
	name = strings.ToLower(name)
	if !ir.ValidColorMaps[name] {
		return errorf(ln.num, ErrColorMap, "unknown color map %q", name)
	}
	s.prog.ColorMap = name
	return nil
}

func compileParticles(s *state, ln line, rest string) error {
	toks, err := lex(ln, rest, ErrInvalidNumber)
	if err != nil {
		return err
	}
	v, ok := signedNumber(toks)
	if !ok {
		return errorf(ln.num, ErrInvalidNumber, "invalid particle count %q", rest)
	}
	switch {
	case v != math.Trunc(v):
		return errorf(ln.num, ErrParticleCount, "particle count %g must be an integer", v)
	case v <= 0:
		return errorf(ln.num, ErrParticleCount, "particle count %g must be positive", v)
	case v > ir.MaxParticles:
		return errorf(ln.num, ErrParticleCount, "particle count %g exceeds maximum %d", v, ir.MaxParticles)
	}
	s.prog.Particles = &ir.ParticleConfig{Count: int(v)}
	return nil
}

func compileContour(s *state, ln line, rest string) error {
	if s.prog.Contour != nil {
		return errorf(ln.num, ErrDuplicateContour, "duplicate CONTOUR statement, first declared on line %d", s.contourLine)
	}
	toks, err := lex(ln, rest, ErrInvalidNumber)
	if err != nil {
		return err
	}
	if len(toks) == 0 || !toks[0].Is("LEVELS") {
		return errorf(ln.num, ErrUnknownStatement, "malformed statement, expected %s", usageContour)
	}
	if len(toks) == 1 {
		return errorf(ln.num, ErrEmptyContour, "CONTOUR LEVELS requires at least one level")
	}

	seen := make(map[float64]bool)
	levels := []float64{}
	for _, part := range expr.SplitTop(toks[1:], expr.Comma) {
		v, ok := signedNumber(part)
		if !ok {
			return errorf(ln.num, ErrInvalidNumber, "invalid contour level %q", expr.Span(rest, part))
		}
		if !seen[v] {
			seen[v] = true
			levels = append(levels, v)
		}
	}
	s.prog.Contour = &ir.Contour{Levels: levels}
	s.contourLine = ln.num
	return nil
}

func compileLabel(s *state, ln line, rest string) error {
	toks, err := lex(ln, rest, ErrMalformedLabel)
	if err != nil {
		return err
	}

	// The last top-level AT separates text from position, so AT may
	// appear inside the text expression's string literals or calls.
	at := -1
	for i := indexWord(toks, "AT", 0); i >= 0; i = indexWord(toks, "AT", i+1) {
		at = i
	}
	if at <= 0 {
		return errorf(ln.num, ErrMalformedLabel, "malformed label, expected %s", usageLabel)
	}

	textToks := toks[:at]
	if _, err := parseExpr(ln, textToks, "label text"); err != nil {
		return err
	}

	parts := expr.SplitTop(toks[at+1:], expr.Comma)
	if len(parts) != 3 {
		return errorf(ln.num, ErrMalformedLabel, "label position needs 3 coordinates, got %d", len(parts))
	}
	var pos [3]string
	for i, part := range parts {
		if len(part) == 0 {
			return errorf(ln.num, ErrMalformedLabel, "label coordinate %d is empty", i+1)
		}
		if _, err := parseExpr(ln, part, "label position"); err != nil {
			return err
		}
		pos[i] = expr.Span(rest, part)
	}

	s.prog.Labels = append(s.prog.Labels, ir.Label{
		Text:     expr.Span(rest, textToks),
		Position: pos,
		Line:     ln.num,
	})
	return nil
}

// constantShapes maps a constant name prefix to the body shape it requires.
var constantShapes = map[string]expr.Shape{
	"S_": expr.ShapeScalar,
	"V_": expr.ShapeVector,
	"T_": expr.ShapeTensor,
}

func compileDef(s *state, ln line, rest string) error {
	toks, err := lex(ln, rest, ErrMalformedExpr)
	if err != nil {
		return err
	}
	if len(toks) < 2 || toks[0].Kind != expr.Name {
		return errorf(ln.num, ErrUnknownStatement, "malformed definition, expected %s", usageDef)
	}
	name := toks[0].Text

	// Optional parameter list.
	i := 1
	params := []string{}
	hasParens := toks[1].Kind == expr.LParen
	if hasParens {
		end := -1
		for j := 2; j < len(toks); j++ {
			if toks[j].Kind == expr.RParen {
				end = j
				break
			}
		}
		if end < 0 {
			return errorf(ln.num, ErrMalformedExpr, "unterminated parameter list for %s", name)
		}
		seen := make(map[string]bool)
		if end > 2 {
			for _, p := range expr.SplitTop(toks[2:end], expr.Comma) {
				if len(p) != 1 || p[0].Kind != expr.Name {
					return errorf(ln.num, ErrMalformedExpr, "invalid parameter %q in %s", expr.Span(rest, p), name)
				}
				if seen[p[0].Text] {
					return errorf(ln.num, ErrMalformedExpr, "duplicate parameter %q in %s", p[0].Text, name)
				}
				seen[p[0].Text] = true
				params = append(params, p[0].Text)
			}
		}
		i = end + 1
	}
	if i >= len(toks) || toks[i].Kind != expr.Assign {
		return errorf(ln.num, ErrUnknownStatement, "malformed definition, expected %s", usageDef)
	}
	bodyToks := toks[i+1:]
	if len(bodyToks) == 0 {
		return errorf(ln.num, ErrMalformedExpr, "empty body for %s", name)
	}
	body, err := parseExpr(ln, bodyToks, name)
	if err != nil {
		return err
	}

	if prev, ok := s.prog.Functions[name]; ok {
		return errorf(ln.num, ErrDuplicateName, "%s already defined on line %d", name, prev.Line)
	}

	fn := ir.NamedFunction{
		Name:   name,
		Params: params,
		Body:   strings.TrimSpace(rest[toks[i].End:]),
		Line:   ln.num,
	}

	shape := expr.ShapeOf(body)
	if len(params) == 0 {
		fn.Kind = ir.FunctionConstant
		if err := checkConstant(ln, name, shape); err != nil {
			return err
		}
	} else {
		switch shape {
		case expr.ShapeScalar:
			fn.Kind = ir.FunctionScalar
		case expr.ShapeVector:
			fn.Kind = ir.FunctionVector
		case expr.ShapeTensor:
			fn.Kind = ir.FunctionTensor
		default:
			return shapeError(ln, name, body)
		}
	}

	s.prog.Functions[name] = fn
	s.prog.FunctionOrder = append(s.prog.FunctionOrder, name)
	return nil
}

func checkConstant(ln line, name string, shape expr.Shape) error {
	prefix := ""
	if len(name) >= 2 {
		prefix = strings.ToUpper(name[:2])
	}
	want, ok := constantShapes[prefix]
	if !ok {
		return errorf(ln.num, ErrConstantName, "constant %s must be named with an S_, V_ or T_ prefix", name)
	}
	if shape == want {
		return nil
	}
	switch want {
	case expr.ShapeVector:
		return errorf(ln.num, ErrVectorBody, "vector constant %s must have a body of the form [x, y, z]", name)
	case expr.ShapeTensor:
		return errorf(ln.num, ErrTensorBody, "tensor constant %s must have a body of the form [[a, b], [c, d]]", name)
	}
	return errorf(ln.num, ErrConstantName, "scalar constant %s cannot have a bracketed body", name)
}

// shapeError reports a bracketed body that is neither a vector nor a tensor.
// Nested brackets read as an attempted tensor.
func shapeError(ln line, name string, body expr.Node) error {
	if list, ok := body.(*expr.List); ok {
		for _, e := range list.Elems {
			if _, nested := e.(*expr.List); nested {
				return errorf(ln.num, ErrTensorBody, "tensor %s must have a body of the form [[a, b], [c, d]]", name)
			}
		}
	}
	return errorf(ln.num, ErrVectorBody, "vector %s must have a body of the form [x, y, z]", name)
}

func compilePlot3D(s *state, ln line, rest string) error {
	toks, err := lex(ln, rest, ErrMalformedExpr)
	if err != nil {
		return err
	}
	tree, err := parseExpr(ln, toks, "PLOT3D")
	if err != nil {
		return err
	}
	s.prog.Plots = append(s.prog.Plots, ir.Plot{
		Kind:    ir.PlotSurface,
		Line:    ln.num,
		Surface: &ir.SurfacePlot{Expr: rest},
	})
	s.surfaces = append(s.surfaces, pendingSurface{plot: len(s.prog.Plots) - 1, tree: tree, line: ln.num})
	return nil
}

func compileVecField(s *state, ln line, rest string) error {
	toks, err := lex(ln, rest, ErrUnknownStatement)
	if err != nil {
		return err
	}
	if len(toks) == 0 || toks[0].Kind != expr.Name {
		return errorf(ln.num, ErrUnknownStatement, "malformed statement, expected %s", usageVecField)
	}
	plot := &ir.VectorPlot{Function: toks[0].Text, GridSize: ir.DefaultGridSize}

	for i := 1; i < len(toks); {
		switch {
		case toks[i].Is("GRID"):
			if i+1 >= len(toks) {
				return errorf(ln.num, ErrInvalidNumber, "GRID requires a size")
			}
			v, ok := signedNumber(toks[i+1 : i+2])
			if !ok || v != math.Trunc(v) {
				return errorf(ln.num, ErrInvalidNumber, "invalid grid size %q", toks[i+1].Text)
			}
			if v < 2 || v > ir.MaxGridSize {
				return errorf(ln.num, ErrGridSize, "grid size %g outside [2, %d]", v, ir.MaxGridSize)
			}
			plot.GridSize = int(v)
			i += 2
		case toks[i].Is("PHYSICS"):
			physics, err := parsePhysics(ln, rest, toks[i+1:])
			if err != nil {
				return err
			}
			plot.Physics = physics
			i = len(toks)
		default:
			return errorf(ln.num, ErrUnknownStatement, "unexpected %q, expected %s", toks[i].Text, usageVecField)
		}
	}

	s.prog.Plots = append(s.prog.Plots, ir.Plot{Kind: ir.PlotVector, Line: ln.num, Vector: plot})
	return nil
}

func parsePhysics(ln line, rest string, toks []expr.Token) (map[string]float64, error) {
	if len(toks) == 0 {
		return nil, errorf(ln.num, ErrUnknownStatement, "PHYSICS requires <key>=<value> pairs")
	}
	out := make(map[string]float64)
	for _, part := range expr.SplitTop(toks, expr.Comma) {
		if len(part) < 3 || part[0].Kind != expr.Name || part[1].Kind != expr.Assign {
			return nil, errorf(ln.num, ErrUnknownStatement, "malformed physics parameter %q", expr.Span(rest, part))
		}
		key := strings.ToLower(part[0].Text)
		if !ir.ValidPhysicsKeys[key] {
			return nil, errorf(ln.num, ErrPhysicsKey, "unknown physics parameter %q", part[0].Text)
		}
		v, ok := signedNumber(part[2:])
		if !ok {
			return nil, errorf(ln.num, ErrInvalidNumber, "invalid value %q for %s", expr.Span(rest, part[2:]), key)
		}
		if msg := physicsDomain(key, v); msg != "" {
			return nil, errorf(ln.num, ErrPhysicsValue, "%s=%g: %s", key, v, msg)
		}
		out[key] = v
	}
	return out, nil
}

// physicsDomain reports why v is not a usable value for key, or "".
func physicsDomain(key string, v float64) string {
	switch key {
	case "dt":
		if v <= 0 {
			return "time step must be positive"
		}
	case "damping", "coupling":
		if v < 0 {
			return "must not be negative"
		}
	case "restitution":
		if v < 0 || v > 1 {
			return "must be within [0, 1]"
		}
	}
	return ""
}

func compileTensorPlot(s *state, ln line, rest string) error {
	toks, err := lex(ln, rest, ErrUnknownStatement)
	if err != nil {
		return err
	}
	if len(toks) != 4 || toks[0].Kind != expr.Name || !toks[1].Is("AS") || !toks[2].Is("GLYPH") {
		return errorf(ln.num, ErrUnknownStatement, "malformed statement, expected %s", usageTensor)
	}
	glyph := toks[3].Text
	switch toks[3].Kind {
	case expr.String:
		glyph = toks[3].Str
	case expr.Name:
	default:
		return errorf(ln.num, ErrGlyph, "invalid glyph %q", toks[3].Text)
	}
	glyph = strings.ToLower(glyph)
	if !ir.ValidGlyphs[glyph] {
		return errorf(ln.num, ErrGlyph, "unknown glyph %q", glyph)
	}

	s.prog.Plots = append(s.prog.Plots, ir.Plot{
		Kind:   ir.PlotTensor,
		Line:   ln.num,
		Tensor: &ir.TensorPlot{Function: toks[0].Text, Glyph: glyph},
	})
	return nil
}

func compileAnimate(s *state, ln line, rest string) error {
	if s.animation != nil {
		return errorf(ln.num, ErrDuplicateAnimation, "duplicate ANIMATE statement, first declared on line %d", s.animation.line)
	}
	toks, err := lex(ln, rest, ErrMalformedExpr)
	if err != nil {
		return err
	}
	if len(toks) < 2 || toks[0].Kind != expr.Name || !toks[1].Is("FROM") {
		return errorf(ln.num, ErrUnknownStatement, "malformed statement, expected %s", usageAnimate)
	}
	to := indexWord(toks, "TO", 2)
	step := indexWord(toks, "STEP", max(to, 2))
	if to < 0 || step < 0 || to == 2 || step == to+1 || step == len(toks)-1 {
		return errorf(ln.num, ErrUnknownStatement, "malformed statement, expected %s", usageAnimate)
	}

	parts := [3][]expr.Token{toks[2:to], toks[to+1 : step], toks[step+1:]}
	var srcs [3]string
	for i, part := range parts {
		if _, err := parseExpr(ln, part, "ANIMATE"); err != nil {
			return err
		}
		srcs[i] = expr.Span(rest, part)
	}

	s.animation = &pendingAnimation{
		param: toks[0].Text,
		from:  srcs[0],
		to:    srcs[1],
		step:  srcs[2],
		line:  ln.num,
	}
	return nil
}

func unknownStatement(ln line) error {
	word := strings.Fields(ln.text)[0]
	return errorf(ln.num, ErrUnknownStatement, "unknown statement %q", word)
}
