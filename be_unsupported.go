//go:build !(amd64 || arm64 || 386 || arm || riscv64 || loong64 || mipsle || mips64le || ppc64le || wasm)

package main

// The emulated ISA's multi-byte accessors are little-endian by definition;
// running on a big-endian host would silently produce the wrong bytes.
var _ = "this VM requires a little-endian architecture" + 1
