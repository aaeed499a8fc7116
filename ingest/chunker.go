// Package ingest provides the chunking engine and the content
// extraction collaborators of the corpus pipeline: splitting raw text
// into overlapping chunks and turning files or remote URLs into raw
// text segments.
package ingest

import (
	"strings"

	corpus "github.com/nevindra/corpus"
)

// Defaults applied when a chunk setting is unset (zero or negative).
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// separators in coarse-to-fine order: paragraph, line, space. When none
// lands in the window, the cut falls on an arbitrary byte boundary.
var separators = []string{"\n\n", "\n", " "}

// SplitterFunc adapts a plain function to corpus.Splitter.
type SplitterFunc func(text string, size, overlap int) ([]string, error)

// Split implements corpus.Splitter.
func (f SplitterFunc) Split(text string, size, overlap int) ([]string, error) {
	return f(text, size, overlap)
}

// DefaultSplitter is the hierarchical overlapping splitter used by the
// pipeline unless a caller overrides it.
var DefaultSplitter corpus.Splitter = SplitterFunc(Split)

// Split cuts text into ordered chunks of at most size bytes, each
// consecutive pair sharing exactly overlap bytes. Cut points prefer the
// coarsest boundary available in the window: paragraph break, then line
// break, then space, then an arbitrary byte.
//
// Stripping the first overlap bytes of every chunk after the first and
// concatenating reconstructs the input. Empty input yields no chunks.
// size and overlap fall back to the defaults when unset; overlap >=
// size is a configuration error.
func Split(text string, size, overlap int) ([]string, error) {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap <= 0 {
		overlap = DefaultChunkOverlap
	}
	if overlap >= size {
		return nil, &corpus.ErrChunkConfig{Size: size, Overlap: overlap}
	}
	if text == "" {
		return nil, nil
	}
	if len(text) <= size {
		return []string{text}, nil
	}

	var chunks []string
	start := 0
	for {
		if len(text)-start <= size {
			chunks = append(chunks, text[start:])
			return chunks, nil
		}
		end := cutPoint(text, start, start+size, overlap)
		chunks = append(chunks, text[start:end])
		start = end - overlap
	}
}

// cutPoint picks where the chunk starting at start should end. It scans
// the window for the last occurrence of each separator, coarsest first,
// and takes the first that still leaves the next chunk strictly past
// start (end > start+overlap, so the loop always advances). With no
// usable separator the chunk fills the whole window.
func cutPoint(text string, start, limit, overlap int) int {
	window := text[start:limit]
	for _, sep := range separators {
		idx := strings.LastIndex(window, sep)
		if idx < 0 {
			continue
		}
		end := idx + len(sep)
		if end > overlap {
			return start + end
		}
	}
	return limit
}
