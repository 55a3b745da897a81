// Package devserver serves a built documentation site during development.
//
// Browsers only stream-compile WebAssembly served as application/wasm, and
// they only decompress transparently when the response carries a matching
// Content-Encoding. Static file servers send precompressed siblings such as
// App.wasm.gz as application/gzip, so the Handler special-cases them. A
// Watcher triggers rebuilds when sources change.
package devserver
