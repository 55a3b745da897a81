// Package pipeline ships build artifacts.
//
// A build runs the compile command once (BuildStep), then processes every
// configured artifact through its own Pipeline of steps:
//
//	copy -> compress -> patch -> stats
//
// CopyStep moves the artifact from the compiler output to the destination,
// CompressStep writes and verifies the compressed siblings, PatchStep points
// the generated loader at the compressed sibling, and StatsStep prints size
// statistics. A missing artifact fails CopyStep and abandons the remaining
// steps for that artifact.
//
// Artifacts are independent, so BatchProcessor runs their pipelines
// concurrently with errgroup. Runner composes both phases into a BuildReport.
package pipeline
