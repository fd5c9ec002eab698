// Package expr tokenizes and parses the arithmetic expression language used
// inside G3D statements.
//
// Expressions support numbers, identifiers, quoted strings, the operators
// + - * / % ^, function calls and bracket lists ([a,b,c] and nested
// [[a,b],[c,d]]). Power is right-associative and binds tighter than unary
// minus, so -x^2 parses as -(x^2).
//
// The package produces an AST only; evaluation lives in package eval. The
// G3D statement compiler reuses the same tokenizer so that every token
// carries a byte offset into its logical line.
package expr
