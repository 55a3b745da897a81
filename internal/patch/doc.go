// Package patch performs literal find-and-replace edits on generated text
// files, typically the JavaScript loader emitted next to a WebAssembly module.
//
// Only the first occurrence of the search text is replaced. A file that does
// not contain the search text is left alone and reported as not patched; this
// is not an error because generated loaders change shape between toolchain
// versions and a stale patch must not break the build.
package patch
