// Package docsite runs plugins over a static documentation site after the
// site generator has written it.
//
// A Runner calls each Plugin's hooks in a fixed order, modeled on the
// lifecycle of documentation generator plugins:
//
//  1. OnConfig once, before any page is read
//  2. OnPage for every HTML page under the site directory
//  3. OnPostBuild once, after all changed pages were written
//
// WasmPlugin is the plugin assetship ships: it injects the artifact loader
// into selected pages and copies the compressed artifacts into the site.
package docsite
