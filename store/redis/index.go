package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	corpus "github.com/nevindra/corpus"
)

// IndexName is the fixed name of the vector search index.
const IndexName = "corpus-idx"

// DefaultDimensions matches the default embedding model output.
const DefaultDimensions = 768

// Compile-time interface check.
var _ corpus.IndexLifecycle = (*Index)(nil)

// Index owns existence of the search index schema: one named index
// over the chunk key namespace with a fixed field set (content TEXT,
// metadata TEXT, content_vector FLAT FLOAT32 cosine).
//
// RediSearch binds dimension and metric at creation time, so a drained
// corpus is the moment to recreate the schema: it guards against drift
// between the configured embedding dimension and a schema left behind
// by manual tooling or an earlier reset.
type Index struct {
	session *Session
	logger  *slog.Logger
	dim     int
}

// IndexOption configures an Index.
type IndexOption func(*Index)

// WithDimensions sets the vector field dimension. Default: 768.
func WithDimensions(d int) IndexOption {
	return func(ix *Index) {
		if d > 0 {
			ix.dim = d
		}
	}
}

// NewIndex creates the lifecycle controller on the shared session.
func NewIndex(session *Session, logger *slog.Logger, opts ...IndexOption) *Index {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ix := &Index{session: session, logger: logger, dim: DefaultDimensions}
	for _, o := range opts {
		o(ix)
	}
	return ix
}

// Ensure checks schema existence; when forced or absent it drops any
// existing schema and creates a fresh one. Dropping is tolerated to
// fail (logged, creation proceeds), and "already exists" on create is
// success: the whole operation is idempotent. Reports whether a create
// ran.
func (ix *Index) Ensure(ctx context.Context, force bool) (bool, error) {
	client, err := ix.session.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("redis: acquire: %w", err)
	}

	exists, err := ix.exists(ctx, client)
	if err != nil {
		return false, err
	}
	if exists && !force {
		return false, nil
	}
	if exists {
		if err := client.FTDropIndex(ctx, IndexName).Err(); err != nil {
			ix.logger.Warn("dropping index schema failed, creating anyway", "index", IndexName, "error", err)
		}
	}

	createOpts := &goredis.FTCreateOptions{
		OnHash: true,
		Prefix: []any{corpus.ChunkKeyNamespace},
	}
	schema := []*goredis.FieldSchema{
		{FieldName: "content", FieldType: goredis.SearchFieldTypeText},
		{FieldName: "metadata", FieldType: goredis.SearchFieldTypeText},
		{
			FieldName: "content_vector",
			FieldType: goredis.SearchFieldTypeVector,
			VectorArgs: &goredis.FTVectorArgs{
				FlatOptions: &goredis.FTFlatOptions{
					Type:           "FLOAT32",
					Dim:            ix.dim,
					DistanceMetric: "COSINE",
				},
			},
		},
	}
	if err := client.FTCreate(ctx, IndexName, createOpts, schema...).Err(); err != nil {
		// A concurrent creator won the race; the schema is in place, but
		// no create ran here.
		if strings.Contains(strings.ToLower(err.Error()), "already exists") {
			return false, nil
		}
		return false, fmt.Errorf("redis: create index: %w", err)
	}

	ix.logger.Info("index schema created", "index", IndexName, "dimensions", ix.dim)
	return true, nil
}

// Reset drops and recreates the schema unconditionally.
func (ix *Index) Reset(ctx context.Context) error {
	_, err := ix.Ensure(ctx, true)
	return err
}

// exists probes the schema with FT.INFO.
func (ix *Index) exists(ctx context.Context, client *goredis.Client) (bool, error) {
	err := client.FTInfo(ctx, IndexName).Err()
	if err == nil {
		return true, nil
	}
	if isUnknownIndex(err) {
		return false, nil
	}
	return false, fmt.Errorf("redis: index info: %w", err)
}

// isUnknownIndex matches the error RediSearch returns for a missing
// index; the wording varies across server versions.
func isUnknownIndex(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unknown index") || strings.Contains(msg, "no such index")
}
