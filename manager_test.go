package corpus_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	corpus "github.com/nevindra/corpus"
	"github.com/nevindra/corpus/ingest"
)

type fakeLedger struct {
	records   []corpus.IngestionRecord // newest first
	appendErr error
}

func (l *fakeLedger) Append(_ context.Context, rec corpus.IngestionRecord) error {
	if l.appendErr != nil {
		return l.appendErr
	}
	l.records = append([]corpus.IngestionRecord{rec}, l.records...)
	return nil
}

func (l *fakeLedger) List(_ context.Context) ([]corpus.IngestionRecord, error) {
	out := make([]corpus.IngestionRecord, len(l.records))
	copy(out, l.records)
	return out, nil
}

func (l *fakeLedger) RemoveBySourcePath(_ context.Context, path string) ([]corpus.IngestionRecord, error) {
	var matched, kept []corpus.IngestionRecord
	for _, rec := range l.records {
		if rec.SourcePath == path {
			matched = append(matched, rec)
		} else {
			kept = append(kept, rec)
		}
	}
	l.records = kept
	return matched, nil
}

type fakeVectors struct {
	stored  map[string]corpus.VectorRecord
	deleted []string
	putErr  error
	delErr  error
}

func newFakeVectors() *fakeVectors {
	return &fakeVectors{stored: map[string]corpus.VectorRecord{}}
}

func (v *fakeVectors) Put(_ context.Context, records []corpus.VectorRecord) error {
	if v.putErr != nil {
		return v.putErr
	}
	for _, rec := range records {
		v.stored[rec.Key] = rec
	}
	return nil
}

func (v *fakeVectors) Delete(_ context.Context, keys []string) error {
	if v.delErr != nil {
		return v.delErr
	}
	for _, k := range keys {
		delete(v.stored, k)
		v.deleted = append(v.deleted, k)
	}
	return nil
}

type fakeIndex struct {
	exists  bool
	ensures []bool // force flag per Ensure call
	resets  int
}

func (x *fakeIndex) Ensure(_ context.Context, force bool) (bool, error) {
	x.ensures = append(x.ensures, force)
	if x.exists && !force {
		return false, nil
	}
	x.exists = true
	return true, nil
}

func (x *fakeIndex) Reset(_ context.Context) error {
	x.resets++
	x.exists = true
	return nil
}

type fakeEmbedding struct {
	dims  int
	calls int
	err   error
}

func (e *fakeEmbedding) Name() string    { return "fake" }
func (e *fakeEmbedding) Dimensions() int { return e.dims }

func (e *fakeEmbedding) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		vec := make([]float32, e.dims)
		for j := range vec {
			vec[j] = 0.5
		}
		out[i] = vec
	}
	return out, nil
}

type staticResolver struct {
	text string
	err  error
}

func (r *staticResolver) Resolve(_ context.Context, _ corpus.FileConfig) ([]corpus.Segment, error) {
	if r.err != nil {
		return nil, r.err
	}
	return []corpus.Segment{{Text: r.text}}, nil
}

type deps struct {
	ledger  *fakeLedger
	vectors *fakeVectors
	index   *fakeIndex
	embed   *fakeEmbedding
}

func newManager(text string, opts ...corpus.Option) (*corpus.Manager, deps) {
	d := deps{
		ledger:  &fakeLedger{},
		vectors: newFakeVectors(),
		index:   &fakeIndex{},
		embed:   &fakeEmbedding{dims: 4},
	}
	m := corpus.New(d.ledger, d.vectors, d.index, d.embed, &staticResolver{text: text}, ingest.DefaultSplitter, opts...)
	return m, d
}

func TestIngestWritesVectorsAndLedger(t *testing.T) {
	m, d := newManager(strings.Repeat("a", 2500))

	keys, err := m.Ingest(context.Background(), corpus.FileConfig{
		Name:  "notes.txt",
		Path:  "/data/notes.txt",
		Chunk: corpus.ChunkConfig{Size: 1000, Overlap: 200},
	})
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if len(keys) != 3 {
		t.Fatalf("expected 3 chunk keys, got %d", len(keys))
	}

	if len(d.vectors.stored) != 3 {
		t.Errorf("expected 3 stored vectors, got %d", len(d.vectors.stored))
	}
	for i, key := range keys {
		rec, ok := d.vectors.stored[key]
		if !ok {
			t.Fatalf("no vector record for key %s", key)
		}
		if rec.Metadata.ID != key {
			t.Errorf("metadata id %q does not match key %q", rec.Metadata.ID, key)
		}
		if rec.Metadata.ChunkIndex != i {
			t.Errorf("key %s: chunk index %d, want %d", key, rec.Metadata.ChunkIndex, i)
		}
		if rec.Metadata.SourcePath != "/data/notes.txt" {
			t.Errorf("key %s: source path %q", key, rec.Metadata.SourcePath)
		}
		if len(rec.Vector) != 4 {
			t.Errorf("key %s: vector dimension %d, want 4", key, len(rec.Vector))
		}
		if !strings.HasPrefix(key, corpus.ChunkKeyNamespace) {
			t.Errorf("key %s outside the chunk namespace", key)
		}
	}

	records, err := m.List(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 ledger record, got %d", len(records))
	}
	if records[0].SourcePath != "/data/notes.txt" || records[0].SourceName != "notes.txt" {
		t.Errorf("unexpected record identity: %+v", records[0])
	}
	if len(records[0].ChunkKeys) != 3 {
		t.Errorf("record has %d chunk keys, want 3", len(records[0].ChunkKeys))
	}
	if records[0].ProcessedAt == 0 {
		t.Error("processed_at not set")
	}

	// First ingestion sees an empty ledger and must force a fresh schema.
	if len(d.index.ensures) != 1 || !d.index.ensures[0] {
		t.Errorf("expected one forced Ensure, got %v", d.index.ensures)
	}
}

func TestIngestDoesNotForceSchemaWhenLedgerPopulated(t *testing.T) {
	m, d := newManager(strings.Repeat("b", 300))
	d.index.exists = true
	d.ledger.records = []corpus.IngestionRecord{{SourcePath: "/data/earlier.txt"}}

	if _, err := m.Ingest(context.Background(), corpus.FileConfig{Path: "/data/next.txt"}); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if len(d.index.ensures) != 1 || d.index.ensures[0] {
		t.Errorf("expected one non-forced Ensure, got %v", d.index.ensures)
	}
}

func TestIngestLedgerAppendFailureRemovesVectors(t *testing.T) {
	m, d := newManager(strings.Repeat("c", 2500))
	d.ledger.appendErr = errors.New("connection reset")

	_, err := m.Ingest(context.Background(), corpus.FileConfig{
		Path:  "/data/doomed.txt",
		Chunk: corpus.ChunkConfig{Size: 1000, Overlap: 200},
	})
	if err == nil {
		t.Fatal("expected ingest to fail")
	}
	if len(d.vectors.stored) != 0 {
		t.Errorf("expected orphan vectors cleaned up, %d remain", len(d.vectors.stored))
	}
	if len(d.vectors.deleted) != 3 {
		t.Errorf("expected 3 compensating deletes, got %d", len(d.vectors.deleted))
	}
}

func TestIngestResolverErrorWritesNothing(t *testing.T) {
	d := deps{
		ledger:  &fakeLedger{},
		vectors: newFakeVectors(),
		index:   &fakeIndex{},
		embed:   &fakeEmbedding{dims: 4},
	}
	resolveErr := &corpus.ErrUnsupportedContent{ContentType: "application/zip"}
	m := corpus.New(d.ledger, d.vectors, d.index, d.embed, &staticResolver{err: resolveErr}, ingest.DefaultSplitter)

	_, err := m.Ingest(context.Background(), corpus.FileConfig{Path: "/data/archive.zip"})
	var unsupported *corpus.ErrUnsupportedContent
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected ErrUnsupportedContent, got %v", err)
	}
	if len(d.vectors.stored) != 0 || len(d.ledger.records) != 0 || len(d.index.ensures) != 0 {
		t.Error("resolver failure must not touch the stores")
	}
}

func TestDeleteNotFound(t *testing.T) {
	m, d := newManager("text")

	found, err := m.Delete(context.Background(), "/data/missing.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("expected found=false for unknown source path")
	}
	if len(d.vectors.deleted) != 0 || d.index.resets != 0 {
		t.Error("not-found delete must not write")
	}
}

func TestDeleteCascadesAndResetsOnDrain(t *testing.T) {
	m, d := newManager(strings.Repeat("d", 2500))
	ctx := context.Background()

	cfg := corpus.ChunkConfig{Size: 1000, Overlap: 200}
	keysA, err := m.Ingest(ctx, corpus.FileConfig{Path: "/data/a.txt", Chunk: cfg})
	if err != nil {
		t.Fatalf("ingest a: %v", err)
	}
	keysB, err := m.Ingest(ctx, corpus.FileConfig{Path: "/data/b.txt", Chunk: cfg})
	if err != nil {
		t.Fatalf("ingest b: %v", err)
	}

	found, err := m.Delete(ctx, "/data/a.txt")
	if err != nil || !found {
		t.Fatalf("delete a: found=%v err=%v", found, err)
	}
	for _, k := range keysA {
		if _, ok := d.vectors.stored[k]; ok {
			t.Errorf("vector %s survived deletion", k)
		}
	}
	for _, k := range keysB {
		if _, ok := d.vectors.stored[k]; !ok {
			t.Errorf("vector %s of another document was deleted", k)
		}
	}
	if d.index.resets != 0 {
		t.Error("schema reset while ledger still has records")
	}

	found, err = m.Delete(ctx, "/data/b.txt")
	if err != nil || !found {
		t.Fatalf("delete b: found=%v err=%v", found, err)
	}
	if len(d.vectors.stored) != 0 {
		t.Errorf("%d vectors remain after draining the ledger", len(d.vectors.stored))
	}
	if d.index.resets != 1 {
		t.Errorf("expected exactly one schema reset, got %d", d.index.resets)
	}
}

func TestDeleteRemovesAllIngestionsOfSamePath(t *testing.T) {
	m, d := newManager(strings.Repeat("e", 2500))
	ctx := context.Background()
	cfg := corpus.ChunkConfig{Size: 1000, Overlap: 200}

	if _, err := m.Ingest(ctx, corpus.FileConfig{Path: "/data/dup.txt", Chunk: cfg}); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if _, err := m.Ingest(ctx, corpus.FileConfig{Path: "/data/dup.txt", Chunk: cfg}); err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	records, _ := m.List(ctx)
	if len(records) != 2 {
		t.Fatalf("expected 2 ledger records for duplicate path, got %d", len(records))
	}

	found, err := m.Delete(ctx, "/data/dup.txt")
	if err != nil || !found {
		t.Fatalf("delete: found=%v err=%v", found, err)
	}
	records, _ = m.List(ctx)
	if len(records) != 0 {
		t.Errorf("%d records remain after delete", len(records))
	}
	if len(d.vectors.stored) != 0 {
		t.Errorf("%d vectors remain after delete", len(d.vectors.stored))
	}
}

func TestIngestEmbedsInBatches(t *testing.T) {
	m, d := newManager(strings.Repeat("f", 2500), corpus.WithEmbedBatchSize(2))

	if _, err := m.Ingest(context.Background(), corpus.FileConfig{
		Path:  "/data/batched.txt",
		Chunk: corpus.ChunkConfig{Size: 1000, Overlap: 200},
	}); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	// 3 chunks at batch size 2: two provider calls.
	if d.embed.calls != 2 {
		t.Errorf("expected 2 embed calls, got %d", d.embed.calls)
	}
}

func TestResetIndexIdempotent(t *testing.T) {
	m, d := newManager("text")
	ctx := context.Background()

	if err := m.ResetIndex(ctx); err != nil {
		t.Fatalf("first reset: %v", err)
	}
	if err := m.ResetIndex(ctx); err != nil {
		t.Fatalf("second reset: %v", err)
	}
	if d.index.resets != 2 {
		t.Errorf("expected 2 resets, got %d", d.index.resets)
	}
}
