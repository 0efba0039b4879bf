// Package knowledge implements the vector index over the CV corpus:
// a pgvector-backed passage store, an idempotent index populator, and a
// top-k retriever.
//
// The store owns all indexed data; chunks are written once and never
// re-embedded or deleted by the pipeline (first-write-wins population).
package knowledge
