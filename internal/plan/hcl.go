package plan

import (
	"fmt"
	"math"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// hclPlanFile is the top-level structure of an HCL plan.
type hclPlanFile struct {
	Name     string         `hcl:"name,optional"`
	Source   string         `hcl:"source,optional"`
	Program  string         `hcl:"program,optional"`
	Analyses []*hclAnalysis `hcl:"analysis,block"`
}

// hclAnalysis is one `analysis "<kind>" { ... }` block.
type hclAnalysis struct {
	Kind       string    `hcl:"kind,label"`
	Steps      int       `hcl:"steps,optional"`
	Count      int       `hcl:"count,optional"`
	Seed       int64     `hcl:"seed,optional"`
	Strategy   string    `hcl:"strategy,optional"`
	Seeds      int       `hcl:"seeds,optional"`
	StepSize   float64   `hcl:"step_size,optional"`
	Levels     []float64 `hcl:"levels,optional"`
	Resolution int       `hcl:"resolution,optional"`
	From       []float64 `hcl:"from,optional"`
	To         []float64 `hcl:"to,optional"`
}

// hclEvalContext exposes the mathematical constants to plan expressions,
// so endpoints may be written as `[pi / 2, 0]`.
func hclEvalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"pi":  cty.NumberFloatVal(math.Pi),
			"e":   cty.NumberFloatVal(math.E),
			"tau": cty.NumberFloatVal(2 * math.Pi),
		},
	}
}

// ParseHCL decodes an HCL plan.
func ParseHCL(src []byte, filename string) (*Plan, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL plan %s: %w", filename, diags)
	}

	var parsed hclPlanFile
	diags = gohcl.DecodeBody(file.Body, hclEvalContext(), &parsed)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL plan %s: %w", filename, diags)
	}

	p := &Plan{
		Name:     parsed.Name,
		Source:   parsed.Source,
		Program:  parsed.Program,
		Analyses: make([]Analysis, 0, len(parsed.Analyses)),
	}
	for _, a := range parsed.Analyses {
		p.Analyses = append(p.Analyses, Analysis{
			Kind:       Kind(a.Kind),
			Steps:      a.Steps,
			Count:      a.Count,
			Seed:       a.Seed,
			Strategy:   a.Strategy,
			Seeds:      a.Seeds,
			StepSize:   a.StepSize,
			Levels:     a.Levels,
			Resolution: a.Resolution,
			From:       a.From,
			To:         a.To,
		})
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
