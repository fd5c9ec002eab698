package plan

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaCUE string

// ParseCUE decodes a CUE plan. The document is unified with the #Plan
// schema first, so unknown fields and out-of-range settings are rejected
// with source positions.
func ParseCUE(src []byte, filename string) (*Plan, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue")).
		FillPath(cue.ParsePath("maxResolution"), MaxResolution)
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compiling plan schema: %w", err)
	}

	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v = schema.LookupPath(cue.ParsePath("#Plan")).Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	p := &Plan{}
	var err error
	if p.Name, err = lookupString(v, "name"); err != nil {
		return nil, err
	}
	if p.Source, err = lookupString(v, "source"); err != nil {
		return nil, err
	}
	if p.Program, err = lookupString(v, "program"); err != nil {
		return nil, err
	}

	iter, err := v.LookupPath(cue.ParsePath("analyses")).List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		a, err := parseCUEAnalysis(iter.Value())
		if err != nil {
			return nil, err
		}
		p.Analyses = append(p.Analyses, a)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func parseCUEAnalysis(v cue.Value) (Analysis, error) {
	var a Analysis
	kind, err := lookupString(v, "kind")
	if err != nil {
		return a, err
	}
	a.Kind = Kind(kind)

	if a.Strategy, err = lookupString(v, "strategy"); err != nil {
		return a, err
	}

	ints := []struct {
		path string
		dst  *int
	}{
		{"steps", &a.Steps},
		{"count", &a.Count},
		{"seeds", &a.Seeds},
		{"resolution", &a.Resolution},
	}
	for _, f := range ints {
		n, err := lookupInt(v, f.path)
		if err != nil {
			return a, err
		}
		*f.dst = int(n)
	}
	if a.Seed, err = lookupInt(v, "seed"); err != nil {
		return a, err
	}
	if a.StepSize, err = lookupFloat(v, "step_size"); err != nil {
		return a, err
	}

	if a.Levels, err = lookupFloats(v, "levels"); err != nil {
		return a, err
	}
	if a.From, err = lookupFloats(v, "from"); err != nil {
		return a, err
	}
	if a.To, err = lookupFloats(v, "to"); err != nil {
		return a, err
	}
	return a, nil
}

func lookupString(v cue.Value, path string) (string, error) {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func lookupInt(v cue.Value, path string) (int64, error) {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return 0, nil
	}
	n, err := f.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return n, nil
}

func lookupFloat(v cue.Value, path string) (float64, error) {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return 0, nil
	}
	x, err := f.Float64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return x, nil
}

func lookupFloats(v cue.Value, path string) ([]float64, error) {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return nil, nil
	}
	iter, err := f.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []float64
	for iter.Next() {
		x, err := iter.Value().Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, x)
	}
	return out, nil
}

// formatCUEError converts the first CUE error into a PlanError carrying its
// source position.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &PlanError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
