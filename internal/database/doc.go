// Package database stores the build history of assetship projects in SQLite
// (modernc.org/sqlite, no cgo).
//
// Each build report is kept as JSON together with an aggregate summary, and
// the size of every compressed sibling is stored in its own table so that
// size trends of an artifact can be queried without decoding reports.
package database
