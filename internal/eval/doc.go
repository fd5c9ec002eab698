// Package eval binds a program's named functions into a live evaluation
// context.
//
// Function bodies are parsed once into expression trees, ordered by their
// dependencies and compiled into closures in that order. A dependency cycle
// is reported as a *CycleError rather than leaving functions silently
// unbound. Functions that call names which are neither builtins nor user
// functions still bind; calling them yields ErrUndefinedFunction.
//
// An Evaluator owns a mutable variable scope and is not safe for concurrent
// use. Clone returns an independent Evaluator sharing the compiled library.
package eval
