package corpus

import "context"

// IngestionRecord is one ledger entry: the reversible trace of a single
// ingestion call. ChunkKeys lists every vector key the call wrote, in
// chunk order; it is the single source of truth for which vectors belong
// to the ingestion when it is deleted later.
//
// SourcePath is the natural identifier used for lookup and deletion, but
// uniqueness is not enforced: ingesting the same path twice produces two
// ledger entries with disjoint chunk keys, and Delete removes all of them.
type IngestionRecord struct {
	SourceName  string   `json:"source_name"`
	SourcePath  string   `json:"source_path"`
	ProcessedAt int64    `json:"processed_at"`
	ChunkKeys   []string `json:"chunk_keys"`
}

// VectorRecord is one per-chunk record in the search index.
type VectorRecord struct {
	Key      string
	Content  string
	Metadata ChunkMetadata
	Vector   []float32
}

// ChunkMetadata is the JSON metadata blob stored alongside each chunk.
// ID repeats the record's own key so search results carry it.
type ChunkMetadata struct {
	ID         string `json:"id"`
	SourceName string `json:"source_name,omitempty"`
	SourcePath string `json:"source_path,omitempty"`
	ChunkIndex int    `json:"chunk_index"`
}

// ChunkConfig controls chunking for one ingestion. Zero values mean
// "use the defaults" (1000-byte chunks, 200-byte overlap).
type ChunkConfig struct {
	Size    int `json:"size"`
	Overlap int `json:"overlap"`
}

// FileConfig describes one source document to ingest. Path is a local
// file path or an http(s) URL and becomes the record's SourcePath.
// ContentType, when set, overrides extension-based type detection.
type FileConfig struct {
	Name        string      `json:"name"`
	Path        string      `json:"path"`
	ContentType string      `json:"content_type,omitempty"`
	Chunk       ChunkConfig `json:"chunk"`
}

// Segment is one logical sub-document of raw extracted text (a whole
// file, one article, one caption window). Segments are chunked in order.
type Segment struct {
	Text string
	Meta map[string]string
}

// Resolver turns a FileConfig into ordered raw text segments. It must
// return ErrUnsupportedContent for inputs it does not recognize rather
// than empty output.
type Resolver interface {
	Resolve(ctx context.Context, file FileConfig) ([]Segment, error)
}

// Splitter splits raw text into overlapping chunks. overlap >= size is
// a configuration error.
type Splitter interface {
	Split(text string, size, overlap int) ([]string, error)
}

// EmbeddingProvider abstracts text-to-vector embedding.
type EmbeddingProvider interface {
	Name() string
	Dimensions() int
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Ledger is the ordered record of every ingestion, newest first.
type Ledger interface {
	// Append pushes a record to the head of the ledger. No uniqueness check.
	Append(ctx context.Context, rec IngestionRecord) error
	// List returns every parseable record, newest first. Corrupt entries
	// are skipped, not fatal.
	List(ctx context.Context) ([]IngestionRecord, error)
	// RemoveBySourcePath removes every record whose SourcePath matches
	// and returns them so the caller can cascade-delete their vectors.
	RemoveBySourcePath(ctx context.Context, path string) ([]IngestionRecord, error)
}

// VectorStore persists and deletes per-chunk vector records.
type VectorStore interface {
	Put(ctx context.Context, records []VectorRecord) error
	// Delete removes the given keys best-effort: one failed key does not
	// stop the rest, but any failure is reported in the returned error.
	Delete(ctx context.Context, keys []string) error
}

// IndexLifecycle owns existence of the search index schema.
type IndexLifecycle interface {
	// Ensure checks that the schema exists. When force is true, or the
	// schema is absent, it drops any existing schema (drop failures are
	// tolerated) and creates a fresh one. Reports whether a create ran.
	Ensure(ctx context.Context, force bool) (bool, error)
	// Reset is Ensure(ctx, true), exposed for operator-triggered recovery.
	Reset(ctx context.Context) error
}
