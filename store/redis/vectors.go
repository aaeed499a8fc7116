package redis

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	corpus "github.com/nevindra/corpus"
)

// Compile-time interface check.
var _ corpus.VectorStore = (*Vectors)(nil)

// Vectors persists per-chunk records as hashes under the chunk key
// namespace, the layout the search index is created over.
type Vectors struct {
	session *Session
}

// NewVectors creates the vector record store on the shared session.
func NewVectors(session *Session) *Vectors {
	return &Vectors{session: session}
}

// Put writes all records in one pipelined batch.
func (v *Vectors) Put(ctx context.Context, records []corpus.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	client, err := v.session.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("redis: acquire: %w", err)
	}

	pipe := client.Pipeline()
	for _, rec := range records {
		meta, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("redis: encode metadata for %s: %w", rec.Key, err)
		}
		pipe.HSet(ctx, rec.Key, map[string]any{
			"content":        rec.Content,
			"metadata":       string(meta),
			"content_vector": encodeVector(rec.Vector),
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: store vectors: %w", err)
	}
	return nil
}

// Delete removes the given keys in one pipelined batch. Every key is
// attempted regardless of individual failures; any failure surfaces in
// the returned error.
func (v *Vectors) Delete(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	client, err := v.session.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("redis: acquire: %w", err)
	}

	pipe := client.Pipeline()
	for _, key := range keys {
		pipe.Del(ctx, key)
	}
	cmds, execErr := pipe.Exec(ctx)

	var errs []error
	for i, cmd := range cmds {
		if cerr := cmd.Err(); cerr != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", keys[i], cerr))
		}
	}
	if len(errs) == 0 && execErr != nil {
		errs = append(errs, execErr)
	}
	if len(errs) > 0 {
		return fmt.Errorf("redis: delete vectors: %w", errors.Join(errs...))
	}
	return nil
}

// encodeVector serializes a vector as little-endian float32 bytes, the
// blob format RediSearch expects for vector fields on hashes.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}
