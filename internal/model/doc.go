// Package model defines the data structures shared by the build pipeline,
// the report writers and the build history database.
//
// The main types are:
//   - BuildReport: the result of one build
//   - ArtifactResult: the result of shipping one artifact
//   - BuildSummary: aggregate numbers used for history listings
//
// All types serialize to JSON; the database stores reports in that form.
package model
