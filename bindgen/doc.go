// Package bindgen turns preprocessed C headers into cgo bindings.
//
// The input is the output of a C preprocessor run with macro definitions
// retained (clang/gcc "-E -dD"). Line markers in that stream tell [Parse]
// which file every declaration came from and whether it is a system header.
//
// [Generate] renders a Go source file with:
//   - a cgo preamble carrying CFLAGS, LDFLAGS and the #include
//   - constants for literal #defines and enumerators
//   - type aliases for typedefs, including every typedef reachable from an
//     emitted declaration
//   - variables mirroring extern C objects
//   - thin Go wrappers for C functions
//
// Output is deterministic: declarations keep stream order and duplicates
// are dropped, so identical input always produces identical bytes.
package bindgen
