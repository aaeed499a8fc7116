package corpus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "github.com/nevindra/corpus"

// Manager orchestrates the ingestion pipeline and the deletion cascade
// over the ledger, the vector store, and the index lifecycle controller.
//
// Manager does not serialize concurrent mutations: two overlapping
// Delete calls (or a Delete racing an Ingest) can observe stale ledger
// snapshots. Callers needing concurrent safety must serialize writes at
// a higher layer.
type Manager struct {
	ledger    Ledger
	vectors   VectorStore
	index     IndexLifecycle
	embedding EmbeddingProvider
	resolver  Resolver
	splitter  Splitter

	batchSize int
	logger    *slog.Logger
	tracer    trace.Tracer
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithSplitter overrides the chunking engine. Default:
// ingest.DefaultSplitter semantics wired by the caller.
func WithSplitter(s Splitter) Option {
	return func(m *Manager) { m.splitter = s }
}

// WithEmbedBatchSize sets how many chunks are embedded per provider
// call. Default: 64.
func WithEmbedBatchSize(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.batchSize = n
		}
	}
}

// New creates a Manager over the given collaborators. splitter is the
// chunking engine (typically ingest.DefaultSplitter).
func New(ledger Ledger, vectors VectorStore, index IndexLifecycle, embedding EmbeddingProvider, resolver Resolver, splitter Splitter, opts ...Option) *Manager {
	m := &Manager{
		ledger:    ledger,
		vectors:   vectors,
		index:     index,
		embedding: embedding,
		resolver:  resolver,
		splitter:  splitter,
		batchSize: 64,
		tracer:    otel.Tracer(scopeName),
	}
	for _, o := range opts {
		o(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// Ingest runs the full pipeline for one source document: resolve raw
// text, split into chunks, make sure the index schema is usable, embed
// and write the vector records under a fresh run prefix, and append the
// ledger record strictly last. It returns the chunk keys written.
//
// Failure before the ledger append leaves no ledger entry; vector
// records written before a later failure are cleaned up best-effort
// (there is no cross-store transaction to make this atomic).
func (m *Manager) Ingest(ctx context.Context, file FileConfig) (keys []string, err error) {
	ctx, span := m.tracer.Start(ctx, "corpus.ingest",
		trace.WithAttributes(
			attribute.String("corpus.source_path", file.Path),
			attribute.String("corpus.source_name", file.Name),
		))
	defer func() { endSpan(span, err) }()

	segments, err := m.resolver.Resolve(ctx, file)
	if err != nil {
		return nil, err
	}

	var chunks []string
	for _, seg := range segments {
		cs, err := m.splitter.Split(seg.Text, file.Chunk.Size, file.Chunk.Overlap)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, cs...)
	}
	span.SetAttributes(attribute.Int("corpus.chunks", len(chunks)))

	// An empty ledger means the corpus was fully drained (or never
	// used): force a schema reset so a stale index left behind by
	// manual tooling cannot drift from the embedding dimension.
	records, err := m.ledger.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger list: %w", err)
	}
	created, err := m.index.Ensure(ctx, len(records) == 0)
	if err != nil {
		return nil, fmt.Errorf("ensure index: %w", err)
	}
	if created {
		m.logger.Info("index schema created", "empty_ledger", len(records) == 0)
	}

	prefix := NewRunPrefix()
	keys = make([]string, len(chunks))
	for i := range chunks {
		keys[i] = ChunkKey(prefix, i)
	}

	if err := m.writeVectors(ctx, file, chunks, keys); err != nil {
		return nil, err
	}

	rec := IngestionRecord{
		SourceName:  file.Name,
		SourcePath:  file.Path,
		ProcessedAt: NowUnix(),
		ChunkKeys:   keys,
	}
	if err := m.ledger.Append(ctx, rec); err != nil {
		// Compensating action: without a ledger entry these vectors
		// would be unreachable orphans, so try to remove them now.
		if derr := m.vectors.Delete(ctx, keys); derr != nil {
			m.logger.Warn("orphan cleanup after failed ledger append", "error", derr, "keys", len(keys))
		}
		return nil, fmt.Errorf("ledger append: %w", err)
	}

	m.logger.Info("ingested document", "source_path", file.Path, "chunks", len(keys))
	return keys, nil
}

// writeVectors embeds chunks in batches and writes the vector records.
func (m *Manager) writeVectors(ctx context.Context, file FileConfig, chunks []string, keys []string) error {
	for start := 0; start < len(chunks); start += m.batchSize {
		end := start + m.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		vecs, err := m.embedding.Embed(ctx, chunks[start:end])
		if err != nil {
			return fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}
		if len(vecs) != end-start {
			return fmt.Errorf("embed batch %d-%d: got %d vectors for %d texts", start, end, len(vecs), end-start)
		}

		records := make([]VectorRecord, end-start)
		for i := range records {
			idx := start + i
			records[i] = VectorRecord{
				Key:     keys[idx],
				Content: chunks[idx],
				Metadata: ChunkMetadata{
					ID:         keys[idx],
					SourceName: file.Name,
					SourcePath: file.Path,
					ChunkIndex: idx,
				},
				Vector: vecs[i],
			}
		}
		if err := m.vectors.Put(ctx, records); err != nil {
			return fmt.Errorf("store vectors %d-%d: %w", start, end, err)
		}
	}
	return nil
}

// List returns every ledger record, newest first. Duplicate source
// paths appear as often as they were ingested.
func (m *Manager) List(ctx context.Context) ([]IngestionRecord, error) {
	return m.ledger.List(ctx)
}

// Delete removes every ingestion of sourcePath as one logical cascade:
// ledger entries out first, then all of their chunk keys from the
// vector store, then a schema reset when the ledger drained. It reports
// found=false, with no writes, when nothing matched.
//
// Vector deletion is best-effort per key; any failure surfaces in the
// returned error, but the ledger entries stay removed.
func (m *Manager) Delete(ctx context.Context, sourcePath string) (found bool, err error) {
	ctx, span := m.tracer.Start(ctx, "corpus.delete",
		trace.WithAttributes(attribute.String("corpus.source_path", sourcePath)))
	defer func() { endSpan(span, err) }()

	matched, err := m.ledger.RemoveBySourcePath(ctx, sourcePath)
	if err != nil {
		return false, fmt.Errorf("ledger remove: %w", err)
	}
	if len(matched) == 0 {
		return false, nil
	}

	var keys []string
	for _, rec := range matched {
		keys = append(keys, rec.ChunkKeys...)
	}
	span.SetAttributes(
		attribute.Int("corpus.records", len(matched)),
		attribute.Int("corpus.chunks", len(keys)),
	)

	var errs []error
	if derr := m.vectors.Delete(ctx, keys); derr != nil {
		errs = append(errs, fmt.Errorf("delete vectors: %w", derr))
	}

	remaining, lerr := m.ledger.List(ctx)
	switch {
	case lerr != nil:
		errs = append(errs, fmt.Errorf("ledger list: %w", lerr))
	case len(remaining) == 0:
		if rerr := m.index.Reset(ctx); rerr != nil {
			errs = append(errs, fmt.Errorf("reset index: %w", rerr))
		} else {
			m.logger.Info("ledger drained, index schema reset")
		}
	}

	m.logger.Info("deleted document", "source_path", sourcePath, "records", len(matched), "chunks", len(keys))
	return true, errors.Join(errs...)
}

// ResetIndex drops and recreates the index schema regardless of ledger
// state. Manual recovery hook; idempotent.
func (m *Manager) ResetIndex(ctx context.Context) (err error) {
	ctx, span := m.tracer.Start(ctx, "corpus.reset_index")
	defer func() { endSpan(span, err) }()
	return m.index.Reset(ctx)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
