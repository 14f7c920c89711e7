// Package domain defines the core business entities for Aegis.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document, Chunk: uploaded documents and their indexed slices
//   - PipelineResult: the always-total outcome of the five-step analysis graph
//   - ConsistencyInput, RiskFlag: structured lending documents and findings
//   - ConsentRecord, RightsRequest: governance of external data fetches
//   - AnalysisJob: queued ingestion and analysis work
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
