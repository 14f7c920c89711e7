// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - ParserRegistry, Parser: Extract text from uploaded bytes
//   - PostProcessor: Sanitise and chunk extracted text
//   - DocumentStore: Document and chunk persistence
//   - ConsentLog, RightsRequestStore, RetentionStore: Governance persistence
//   - RuleRepository: Custom consistency rules
//   - JobStore, SchedulerStore: Background work state
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Without it, retrieval uses the fallback tier only.
//   - VectorIndex: External nearest-neighbour search. Without it, retrieval falls back.
//   - TextGenerator: Without it, classification defaults and agent steps fail in isolation.
//   - FetchIntegration: Without it, governed fetches are rejected.
//   - Notifier: Without it, job webhooks are not delivered.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, parser or postprocessor package
package driven
