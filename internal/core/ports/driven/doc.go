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
//   - CorpusSource: Reads extraction artifacts and bibliographic metadata
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Generates vector embeddings. Without it, the index
//     is built lexical-only.
//   - VectorCache: Persists the embedding matrix between runs. Without it,
//     every build re-embeds.
//   - Generator: Streams answer tokens. Without it, chat reports a
//     configuration error inline and still terminates cleanly.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
