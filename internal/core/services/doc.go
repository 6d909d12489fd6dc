// Package services implements the driving port interfaces defined in
// internal/core/ports/driving. Each service wires domain logic to the
// driven ports (corpus source, embedding service, vector cache,
// generator) without knowing which adapters sit behind them.
//
// # Services
//
//   - IndexService: builds the in-memory retrieval index from the
//     corpus source and swaps it atomically. Not a driving port itself;
//     RetrievalService and the watcher consume it directly.
//   - RetrievalService: hybrid lexical/semantic search over the
//     current index. Implements driving.RetrievalService.
//   - ChatService: retrieval-augmented answer streaming. Implements
//     driving.ChatService.
//
// # Import Rules
//
//   - May import domain, ports, chunker, index/bm25, index/dense, logger.
//   - Must NOT import adapters.
//
// Services hold no I/O of their own. Everything that touches disk,
// network, or a subprocess arrives through a driven port.
package services
