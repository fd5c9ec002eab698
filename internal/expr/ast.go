package expr

import (
	"sort"
	"strconv"
	"strings"
)

// Node is an expression AST node.
type Node interface {
	Pos() int
	String() string
}

// Num is a numeric literal.
type Num struct {
	Value float64
	At    int
}

// Str is a quoted string literal.
type Str struct {
	Value string
	At    int
}

// Ident is a variable, parameter or constant reference.
type Ident struct {
	Name string
	At   int
}

// Unary is a prefix + or -.
type Unary struct {
	Op Kind
	X  Node
	At int
}

// Binary is an infix arithmetic operation.
type Binary struct {
	Op   Kind
	X, Y Node
	At   int
}

// Call is a builtin or user function call.
type Call struct {
	Name string
	Args []Node
	At   int
}

// List is a bracketed element list: a vector [a,b,c] or a row block.
type List struct {
	Elems []Node
	At    int
}

func (n *Num) Pos() int    { return n.At }
func (n *Str) Pos() int    { return n.At }
func (n *Ident) Pos() int  { return n.At }
func (n *Unary) Pos() int  { return n.At }
func (n *Binary) Pos() int { return n.At }
func (n *Call) Pos() int   { return n.At }
func (n *List) Pos() int   { return n.At }

func (n *Num) String() string   { return strconv.FormatFloat(n.Value, 'g', -1, 64) }
func (n *Str) String() string   { return strconv.Quote(n.Value) }
func (n *Ident) String() string { return n.Name }

func (n *Unary) String() string {
	return "(" + opText(n.Op) + n.X.String() + ")"
}

func (n *Binary) String() string {
	return "(" + n.X.String() + " " + opText(n.Op) + " " + n.Y.String() + ")"
}

func (n *Call) String() string {
	return n.Name + "(" + joinNodes(n.Args) + ")"
}

func (n *List) String() string {
	return "[" + joinNodes(n.Elems) + "]"
}

func joinNodes(nodes []Node) string {
	parts := make([]string, len(nodes))
	for i, a := range nodes {
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}

func opText(k Kind) string {
	switch k {
	case Plus:
		return "+"
	case Minus:
		return "-"
	case Star:
		return "*"
	case Slash:
		return "/"
	case Percent:
		return "%"
	case Caret:
		return "^"
	}
	return k.String()
}

// Walk traverses n depth-first, calling fn for every node. Children are
// skipped when fn returns false.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch n := n.(type) {
	case *Unary:
		Walk(n.X, fn)
	case *Binary:
		Walk(n.X, fn)
		Walk(n.Y, fn)
	case *Call:
		for _, a := range n.Args {
			Walk(a, fn)
		}
	case *List:
		for _, e := range n.Elems {
			Walk(e, fn)
		}
	}
}

// Refs returns the unique identifiers and called function names in n,
// each sorted for deterministic output.
func Refs(n Node) (idents, calls []string) {
	identSet := make(map[string]struct{})
	callSet := make(map[string]struct{})
	Walk(n, func(n Node) bool {
		switch n := n.(type) {
		case *Ident:
			identSet[n.Name] = struct{}{}
		case *Call:
			callSet[n.Name] = struct{}{}
		}
		return true
	})
	return sortedKeys(identSet), sortedKeys(callSet)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Shape describes the bracket structure of an expression.
type Shape int

const (
	ShapeScalar Shape = iota // no outer brackets
	ShapeVector              // [a, b, c] with scalar components
	ShapeTensor              // [[a, b], [c, d]]
	ShapeOther               // any other bracket structure
)

// ShapeOf classifies a parsed body: a vector is one bracket level with
// exactly three components, a tensor is two nested levels forming 2x2.
func ShapeOf(n Node) Shape {
	list, ok := n.(*List)
	if !ok {
		return ShapeScalar
	}
	if len(list.Elems) == 3 && !anyList(list.Elems) {
		return ShapeVector
	}
	if len(list.Elems) == 2 {
		for _, row := range list.Elems {
			r, ok := row.(*List)
			if !ok || len(r.Elems) != 2 || anyList(r.Elems) {
				return ShapeOther
			}
		}
		return ShapeTensor
	}
	return ShapeOther
}

func anyList(nodes []Node) bool {
	for _, n := range nodes {
		if _, ok := n.(*List); ok {
			return true
		}
	}
	return false
}
