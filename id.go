package corpus

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ChunkKeyNamespace is the fixed key prefix reserved for vector records.
// The search index is created over this prefix; nothing else may write
// keys under it.
const ChunkKeyNamespace = "corpus:chunk:"

// NewRunPrefix returns a fresh key prefix scoping every vector key of
// one ingestion call, e.g. "corpus:chunk:7f9c…:". The random identifier
// makes cross-ingestion key collisions negligible even when chunk
// indices repeat.
func NewRunPrefix() string {
	return ChunkKeyNamespace + uuid.NewString() + ":"
}

// ChunkKey returns the vector key for chunk i of a run. It is stable
// for a given (prefix, index) pair: the same function produces the keys
// at write time and the ledger stores them verbatim for deletion.
func ChunkKey(prefix string, i int) string {
	return prefix + strconv.Itoa(i)
}

// NowUnix returns current time as Unix seconds.
func NowUnix() int64 {
	return time.Now().Unix()
}
