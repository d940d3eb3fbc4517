// Package rag holds the narrow interface to the external retrieval
// stack. Embedding, chunking and vector search live in a sidecar
// service; this package only moves requests and results.
package rag

import (
	"context"
	"io"
)

type Chunk struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type IndexStats struct {
	ChunksCreated int    `json:"chunks_created"`
	Collection    string `json:"collection"`
}

type Retriever interface {
	// Query returns the k most relevant chunks from a collection.
	Query(ctx context.Context, collection, query string, k int) ([]Chunk, error)
	// Count reports how many documents a collection holds.
	Count(ctx context.Context, collection string) (int, error)
	// Reset drops and recreates a collection.
	Reset(ctx context.Context, collection string) error
	// Index uploads one document for chunking and embedding.
	Index(ctx context.Context, collection, filename string, r io.Reader) (IndexStats, error)
}
