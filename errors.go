package corpus

import "fmt"

// ErrHTTP is a non-2xx response from an external collaborator
// (embedding API, remote document fetch).
type ErrHTTP struct {
	Status int
	Body   string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// ErrUnsupportedContent reports a file type or MIME type no extractor
// recognizes. The ingestion writes nothing.
type ErrUnsupportedContent struct {
	ContentType string
}

func (e *ErrUnsupportedContent) Error() string {
	return fmt.Sprintf("unsupported content type %q", e.ContentType)
}

// ErrChunkConfig reports an invalid chunk size/overlap combination.
// It fails the ingestion before anything is written.
type ErrChunkConfig struct {
	Size    int
	Overlap int
}

func (e *ErrChunkConfig) Error() string {
	return fmt.Sprintf("chunk overlap %d must be smaller than chunk size %d", e.Overlap, e.Size)
}
