// Package fetch downloads shipped artifacts the way the patched loader does
// in the browser and checks that they decode to the original bytes.
//
// The client asks for every supported encoding. A response is decoded by its
// Content-Encoding header; when the server sent a compressed sibling without
// one (a plain static host serving App.wasm.gz as application/gzip), the URL
// suffix decides, which is what the loader's DecompressionStream fallback does.
package fetch
