// Package rag implements the retrieval-augmented answering core for
// guideline questions.
//
// Write path: guide items are split into overlapping chunks (chunker.go),
// embedded (embedder.go, openai.go) and persisted with their citation
// reference (store.go). Read path: the question is embedded, candidate
// chunks are retrieved by vector similarity with a lexical fallback
// (store.go), reranked by a fused similarity/BM25/fuzzy score (bm25.go,
// rerank.go) and assembled into a strictly extractive answer or a refusal
// (engine.go). Every ask is recorded for audit (provenance.go).
//
// The engine never generates text: answers are concatenations of retrieved
// chunk previews, and every claim is backed by a citation.
package rag
