// Package ir provides the intermediate representation produced by the G3D
// compiler.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. A Program is built once per
// successful compile and is read-only afterwards: analysis packages read it
// but never mutate it.
//
// Key design constraints:
//   - A failed compile produces no Program, only a diagnostic
//   - Every Range satisfies Min < Max
//   - All JSON tags use snake_case
//   - Function identity is its name; FunctionOrder preserves declaration order
package ir
