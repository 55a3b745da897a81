// Package compress produces and checks the precompressed siblings of build
// artifacts (App.wasm -> App.wasm.gz, App.wasm.br, App.wasm.zst).
//
// gzip and zstd come from github.com/klauspost/compress, brotli from
// github.com/andybalholm/brotli. Every sibling is decompressed again after
// writing and its SHA3-256 digest compared with the original, so a shipped
// sibling always round-trips to the exact bytes the compiler produced.
package compress
