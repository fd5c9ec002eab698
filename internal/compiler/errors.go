package compiler

import "fmt"

// Compile error codes (E201-E222).
const (
	// Statement shape
	ErrUnknownStatement = "E201" // no grammar rule matches
	ErrInvalidNumber    = "E202" // literal or evaluated bound is not a finite number
	ErrRangeOrder       = "E203" // SET RANGE min >= max
	ErrColorMap         = "E204" // color map not in the closed set
	ErrParticleCount    = "E205" // count not positive or exceeds maximum
	ErrEmptyContour     = "E206" // CONTOUR LEVELS without levels

	// Definitions
	ErrConstantName  = "E207" // constant without S_/V_/T_ prefix or with mismatched body
	ErrDuplicateName = "E208" // function or constant defined twice
	ErrVectorBody    = "E209" // vector body is not [x, y, z]
	ErrTensorBody    = "E210" // tensor body is not [[a, b], [c, d]]

	// Singletons
	ErrDuplicateAnimation = "E211" // more than one ANIMATE
	ErrDuplicateContour   = "E212" // more than one CONTOUR

	// Cross references
	ErrUndefinedFunction = "E213" // plot references an unknown function
	ErrFunctionKind      = "E214" // plot references a function of the wrong shape
	ErrAnimationStep     = "E215" // ANIMATE STEP <= 0
	ErrMalformedExpr     = "E216" // expression does not parse
	ErrDependencyCycle   = "E217" // functions depend on each other
	ErrGlyph             = "E218" // glyph kind not in the closed set
	ErrMalformedLabel    = "E219" // LABEL without AT and three coordinates
	ErrGridSize          = "E220" // PLOT_VECFIELD GRID outside [2, MaxGridSize]
	ErrPhysicsKey        = "E221" // unknown PHYSICS parameter
	ErrPhysicsValue      = "E222" // PHYSICS parameter outside its domain
)

// CompileError is the single diagnostic produced by a failed compile.
// Line is 1-based; 0 means the error is not tied to one statement.
type CompileError struct {
	Line    int    `json:"line"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: [%s] %s", e.Line, e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func errorf(line int, code, format string, args ...any) *CompileError {
	return &CompileError{Line: line, Code: code, Message: fmt.Sprintf(format, args...)}
}
