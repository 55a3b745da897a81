// Package main provides the entry point for the assetship CLI.
//
// assetship builds a WebAssembly application, ships the artifacts into a
// documentation site as compressed siblings, patches the generated loader
// so that browsers decompress the artifact themselves, and serves the result.
//
// Usage:
//
//	assetship build
//	assetship serve --watch
//	assetship docs
//
// See --help for all available options.
package main

// main is the entry point for assetship.
func main() {
	Execute()
}
