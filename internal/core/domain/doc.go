// Package domain defines the core business entities for Warraq.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Chunk: the atomic retrievable unit of corpus text
//   - Hit: a scored chunk returned for one query
//   - SourceCitation: the externally visible projection of a hit
//   - StreamEvent: one event on the answer stream
//   - IndexStatus: the externally visible index state
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
