// Package vector declares the thin client interfaces for the embedding
// model and vector index the Memory Gateway sits on top of, plus a
// SQLite+FTS5-backed default implementation for the five logical
// collections (knowledge, fix_outcomes, observations, web_pages,
// quarantine). Both interfaces are deliberately small: the gateway is
// the only caller, and it only ever needs embed-and-search, never the
// full surface of a particular embedding provider or ANN library.
package vector

import "context"

// Collection names the five logical document stores the gateway serves.
type Collection string

const (
	CollectionKnowledge    Collection = "knowledge"
	CollectionFixOutcomes  Collection = "fix_outcomes"
	CollectionObservations Collection = "observations"
	CollectionWebPages     Collection = "web_pages"
	CollectionQuarantine   Collection = "quarantine"
)

// EmbeddingModel turns text into vectors. A nil EmbeddingModel is a valid
// configuration for Store: Query then falls back to FTS5 bm25 ranking
// instead of cosine distance over embeddings.
type EmbeddingModel interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Hit is one result row from Query or Get.
type Hit struct {
	ID       string
	Document string
	Metadata map[string]any
	Distance float64
}

// Store is the gateway's single collaborator for all five collections:
// everything the UDS protocol's query/get/upsert/delete/count methods
// need. Implementations own their own writer-exclusivity; Store itself
// assumes it is the only writer, matching the gateway's single-writer
// invariant.
type Store interface {
	Count(ctx context.Context, collection Collection) (int, error)
	Query(ctx context.Context, collection Collection, queryTexts []string, nResults int) ([]Hit, error)
	Get(ctx context.Context, collection Collection, ids []string, limit int) ([]Hit, error)
	Upsert(ctx context.Context, collection Collection, documents []string, metadatas []map[string]any, ids []string) error
	Delete(ctx context.Context, collection Collection, ids []string) error
	Close() error
}
