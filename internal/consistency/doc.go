// Package consistency scores structured lending documents for cross-document
// discrepancies.
//
// Evaluate is pure: it performs no I/O and holds no state, so the same input
// always yields the same report. Custom rules are passed in by the caller;
// loading them from storage is the job of the consistency service.
package consistency
