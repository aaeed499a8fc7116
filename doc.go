// Package corpus manages the lifecycle of a vector search corpus: it
// ingests source documents into overlapping text chunks, embeds each
// chunk, writes the vectors to a Redis search index, and keeps a
// reversible ledger of every ingestion so the corpus can be listed and
// pruned later.
//
// Three independently stored things must stay consistent: the search
// index schema, the per-chunk vector records, and the ledger. The store
// offers no multi-object transaction, so the package targets detectable
// eventual consistency instead: the ledger append is always the last
// step of an ingestion, deletion cascades vectors → ledger entry →
// index schema, and a fully drained ledger triggers a schema reset so
// the next ingestion starts from a guaranteed-fresh index.
//
// # Quick Start
//
//	session := redisstore.NewSession(&redis.Options{Addr: "localhost:6379"}, logger)
//	ledger := redisstore.NewLedger(session, logger)
//	index := redisstore.NewIndex(session, logger, redisstore.WithDimensions(768))
//	vectors := redisstore.NewVectors(session)
//	embedding := openaicompat.NewEmbedding(apiKey, model, baseURL, 768)
//
//	mgr := corpus.New(ledger, vectors, index, embedding, ingest.NewResolver(), ingest.DefaultSplitter)
//
//	keys, err := mgr.Ingest(ctx, corpus.FileConfig{Name: "notes.md", Path: "docs/notes.md"})
//	records, err := mgr.List(ctx)
//	found, err := mgr.Delete(ctx, "docs/notes.md")
//
// # Core Interfaces
//
// The root package defines the contracts the subpackages implement:
//
//   - [Ledger] — ordered record of every ingestion (store/redis)
//   - [VectorStore] — per-chunk vector record persistence (store/redis)
//   - [IndexLifecycle] — search index schema create/drop/reset (store/redis)
//   - [EmbeddingProvider] — text-to-vector embedding (provider/openaicompat)
//   - [Resolver] — source document to raw text segments (ingest)
//   - [Splitter] — text to overlapping chunks (ingest)
//
// See cmd/corpusd for the HTTP service wiring everything together.
package corpus
