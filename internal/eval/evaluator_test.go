package eval

import (
	"bytes"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/g3d/internal/ir"
)

func scalar(name, body string, params ...string) ir.NamedFunction {
	return ir.NamedFunction{Name: name, Kind: ir.FunctionScalar, Params: params, Body: body}
}

func constant(name, body string) ir.NamedFunction {
	return ir.NamedFunction{Name: name, Kind: ir.FunctionConstant, Params: []string{}, Body: body}
}

func TestEvalArithmetic(t *testing.T) {
	ev, err := New(nil)
	require.NoError(t, err)

	tests := []struct {
		src  string
		want float64
	}{
		{"1 + 2 * 3", 7},
		{"2 ^ 3 ^ 2", 512},
		{"-2^2", -4},
		{"7 % 4", 3},
		{"mod(-1, 4)", 3},
		{"clamp(5, 0, 2)", 2},
		{"mix(0, 10, 0.25)", 2.5},
		{"step(1, 0.5)", 0},
		{"smoothstep(0, 1, 0.5)", 0.5},
		{"fract(2.75)", 0.75},
		{"sign(-3)", -1},
		{"max(1, 5, 3)", 5},
		{"log(8, 2)", 3},
		{"ln(e)", 1},
		{"PI / pi", 1},
		{"SIN(0)", 0},
		{"norm([3, 4, 0])", 5},
		{"dot([1, 2, 3], [4, 5, 6])", 32},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := ev.EvalFloat(tt.src)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestEvalVariables(t *testing.T) {
	ev, err := New(nil)
	require.NoError(t, err)

	_, err = ev.EvalFloat("x + 1")
	assert.ErrorIs(t, err, ErrUndefinedVariable)

	ev.Set("x", 2)
	got, err := ev.EvalFloat("x + 1")
	require.NoError(t, err)
	assert.Equal(t, 3.0, got)

	ev.Set("pi", 3)
	got, err = ev.EvalFloat("pi")
	require.NoError(t, err)
	assert.Equal(t, 3.0, got, "variables shadow builtin constants")

	ev.Unset("pi")
	got, err = ev.EvalFloat("pi")
	require.NoError(t, err)
	assert.Equal(t, math.Pi, got)
}

func TestEvalVectorsAndTensors(t *testing.T) {
	ev, err := New(nil)
	require.NoError(t, err)
	ev.Set("x", 2)

	v, err := ev.Eval("[x, 1, 0] * 2 + [0, 0, 1]")
	require.NoError(t, err)
	assert.Equal(t, KindVector, v.Kind)
	assert.Equal(t, [3]float64{4, 2, 1}, v.Vec)

	m, err := ev.Eval("-[[1, x], [0, 1]]")
	require.NoError(t, err)
	assert.Equal(t, KindTensor, m.Kind)
	assert.Equal(t, [2][2]float64{{-1, -2}, {0, -1}}, m.Ten)

	_, err = ev.Eval("[1, 0, 0] + [[1, 0], [0, 1]]")
	assert.ErrorIs(t, err, ErrType)

	_, err = ev.Eval("[1, 2]")
	assert.ErrorIs(t, err, ErrType)
}

func TestEvalStrings(t *testing.T) {
	ev, err := New(nil)
	require.NoError(t, err)
	ev.Set("t", 1.5)

	v, err := ev.Eval("'t = ' + t")
	require.NoError(t, err)
	assert.Equal(t, "t = 1.5", v.String())

	v, err = ev.Eval("format('t=%.2f', t)")
	require.NoError(t, err)
	assert.Equal(t, "t=1.50", v.Str)

	v, err = ev.Eval("fixed(pi, 3)")
	require.NoError(t, err)
	assert.Equal(t, "3.142", v.Str)

	_, err = ev.Eval("'a' * 2")
	assert.ErrorIs(t, err, ErrType)
}

func TestUserFunctions(t *testing.T) {
	ev, err := New([]ir.NamedFunction{
		scalar("FNSADDLE", "x^2 - y^2", "x", "y"),
		scalar("G", "FNSADDLE(a, b) * S_K", "a", "b"),
		constant("S_K", "2"),
	})
	require.NoError(t, err)

	v, err := ev.Call("G", Number(3), Number(1))
	require.NoError(t, err)
	assert.Equal(t, 16.0, v.Num)

	got, err := ev.EvalFloat("FNSADDLE(2, 1) + S_K")
	require.NoError(t, err)
	assert.Equal(t, 5.0, got)

	assert.Equal(t, []string{"FNSADDLE", "S_K", "G"}, ev.Functions(), "dependencies bind first")
	assert.Empty(t, ev.Unresolved())

	_, err = ev.Call("G", Number(1))
	assert.ErrorIs(t, err, ErrArity)

	_, err = ev.EvalFloat("G(1)")
	assert.ErrorIs(t, err, ErrArity)
}

func TestForwardReferences(t *testing.T) {
	ev, err := New([]ir.NamedFunction{
		scalar("A", "B(x) + C(x)", "x"),
		scalar("B", "C(x) * 2", "x"),
		scalar("C", "x + 1", "x"),
	})
	require.NoError(t, err)

	v, err := ev.Call("A", Number(1))
	require.NoError(t, err)
	assert.Equal(t, 6.0, v.Num)
	assert.Equal(t, []string{"C", "B", "A"}, ev.Functions())
}

func TestCycleIsReported(t *testing.T) {
	_, err := New([]ir.NamedFunction{
		scalar("OK", "x", "x"),
		scalar("A", "B(x)", "x"),
		scalar("B", "A(x) + 1", "x"),
	})
	var cycle *CycleError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []string{"A", "B"}, cycle.Names)
	assert.Equal(t, []string{"A", "B", "A"}, cycle.Path)
	assert.Contains(t, err.Error(), "A → B → A")
}

func TestSelfReferenceIsCycle(t *testing.T) {
	_, err := New([]ir.NamedFunction{constant("S_X", "S_X + 1")})
	var cycle *CycleError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []string{"S_X"}, cycle.Names)
}

func TestUnresolvedFunctions(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ev, err := New([]ir.NamedFunction{
		scalar("F", "MISSING(x) + 1", "x"),
		scalar("G", "F(x) * 2", "x"),
		scalar("H", "x * 3", "x"),
	}, WithLogger(logger))
	require.NoError(t, err)

	assert.Equal(t, []string{"F", "G"}, ev.Unresolved())
	assert.Contains(t, buf.String(), "function left unresolved")

	_, err = ev.Call("G", Number(1))
	assert.ErrorIs(t, err, ErrUndefinedFunction)

	v, err := ev.Call("H", Number(2))
	require.NoError(t, err)
	assert.Equal(t, 6.0, v.Num)
}

func TestConstantsSeeVariables(t *testing.T) {
	ev, err := New([]ir.NamedFunction{constant("S_A", "sin(t)")})
	require.NoError(t, err)

	ev.Set("t", math.Pi/2)
	got, err := ev.EvalFloat("S_A")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-12)
}

func TestEvalIsIdempotent(t *testing.T) {
	ev, err := New([]ir.NamedFunction{scalar("F", "sin(x) * exp(-y^2) + S_C", "x", "y"), constant("S_C", "0.5")})
	require.NoError(t, err)

	first, err := ev.Call("F", Number(0.3), Number(-1.2))
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := ev.Call("F", Number(0.3), Number(-1.2))
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestCloneIsolatesVariables(t *testing.T) {
	ev, err := New([]ir.NamedFunction{scalar("F", "x * k", "x")})
	require.NoError(t, err)
	ev.Set("k", 2)

	clone := ev.Clone()
	clone.Set("k", 10)

	x, err := ev.Compile("F(3)")
	require.NoError(t, err)

	a, err := ev.RunFloat(x)
	require.NoError(t, err)
	b, err := clone.RunFloat(x)
	require.NoError(t, err)

	assert.Equal(t, 6.0, a)
	assert.Equal(t, 30.0, b)
}

func TestFromProgram(t *testing.T) {
	p := ir.NewProgram()
	p.Functions["F"] = scalar("F", "x + y", "x", "y")
	p.Functions["V"] = ir.NamedFunction{Name: "V", Kind: ir.FunctionVector, Params: []string{"x", "y"}, Body: "[-y, x, 0]"}
	p.FunctionOrder = []string{"F", "V"}

	ev, err := FromProgram(p)
	require.NoError(t, err)

	v, err := ev.Call("V", Number(1), Number(2))
	require.NoError(t, err)
	assert.Equal(t, [3]float64{-2, 1, 0}, v.Vec)

	fn, ok := ev.Function("F")
	require.True(t, ok)
	assert.Equal(t, "x + y", fn.Body)
}

func TestNonFiniteIsNotAnError(t *testing.T) {
	ev, err := New(nil)
	require.NoError(t, err)

	v, err := ev.Eval("1 / 0")
	require.NoError(t, err)
	assert.False(t, v.Finite())
}
