package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	corpus "github.com/nevindra/corpus"
)

// LedgerKey is the well-known list key holding the ingestion ledger.
const LedgerKey = "corpus:ledger"

// removedSentinel is the placeholder written over an entry being
// removed. Redis lists have no index-stable delete, so removal is
// LSET-to-sentinel followed by LREM of the sentinel.
const removedSentinel = "__corpus:removed__"

// Compile-time interface check.
var _ corpus.Ledger = (*Ledger)(nil)

// Ledger stores ingestion records as JSON in a Redis list, newest at
// the head.
type Ledger struct {
	session *Session
	logger  *slog.Logger
}

// NewLedger creates a Ledger on the shared session.
func NewLedger(session *Session, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Ledger{session: session, logger: logger}
}

// Append pushes a record to the head of the ledger.
func (l *Ledger) Append(ctx context.Context, rec corpus.IngestionRecord) error {
	client, err := l.session.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("redis: acquire: %w", err)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("redis: encode ledger record: %w", err)
	}
	if err := client.LPush(ctx, LedgerKey, data).Err(); err != nil {
		return fmt.Errorf("redis: ledger append: %w", err)
	}
	return nil
}

// List returns every parseable record, newest first. Entries that fail
// to decode are logged and skipped; a single corrupt entry must never
// block listing or deleting everything else.
func (l *Ledger) List(ctx context.Context) ([]corpus.IngestionRecord, error) {
	client, err := l.session.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("redis: acquire: %w", err)
	}
	entries, err := client.LRange(ctx, LedgerKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: ledger scan: %w", err)
	}

	records := make([]corpus.IngestionRecord, 0, len(entries))
	for i, entry := range entries {
		var rec corpus.IngestionRecord
		if err := json.Unmarshal([]byte(entry), &rec); err != nil {
			l.logger.Warn("skipping corrupt ledger entry", "index", i, "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// RemoveBySourcePath removes every entry whose SourcePath matches and
// returns the removed records. The scan runs tail to head so that a
// removal never shifts the index of an entry not yet visited. Corrupt
// entries are skipped like in List.
func (l *Ledger) RemoveBySourcePath(ctx context.Context, path string) ([]corpus.IngestionRecord, error) {
	client, err := l.session.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("redis: acquire: %w", err)
	}
	entries, err := client.LRange(ctx, LedgerKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: ledger scan: %w", err)
	}

	var matched []corpus.IngestionRecord
	for i := len(entries) - 1; i >= 0; i-- {
		var rec corpus.IngestionRecord
		if err := json.Unmarshal([]byte(entries[i]), &rec); err != nil {
			l.logger.Warn("skipping corrupt ledger entry", "index", i, "error", err)
			continue
		}
		if rec.SourcePath != path {
			continue
		}
		if err := client.LSet(ctx, LedgerKey, int64(i), removedSentinel).Err(); err != nil {
			return matched, fmt.Errorf("redis: ledger mark entry %d: %w", i, err)
		}
		if err := client.LRem(ctx, LedgerKey, 1, removedSentinel).Err(); err != nil {
			return matched, fmt.Errorf("redis: ledger remove entry %d: %w", i, err)
		}
		matched = append(matched, rec)
	}
	return matched, nil
}
