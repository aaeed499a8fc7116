package ingest

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"

	corpus "github.com/nevindra/corpus"
)

// Compile-time interface check.
var _ corpus.Resolver = (*SourceResolver)(nil)

// SourceResolver is the content extraction collaborator: it maps a
// FileConfig to ordered raw text segments. Local paths go through the
// extractor matching the declared or detected content type; http(s)
// URLs are fetched and run through readability with a plain HTML strip
// as fallback.
type SourceResolver struct {
	client     *http.Client
	extractors map[ContentType]Extractor
	maxBody    int64
}

// ResolverOption configures a SourceResolver.
type ResolverOption func(*SourceResolver)

// WithHTTPClient sets the client used for remote URLs.
// Default: 15-second timeout.
func WithHTTPClient(c *http.Client) ResolverOption {
	return func(r *SourceResolver) { r.client = c }
}

// WithExtractor registers or replaces the extractor for a content type.
func WithExtractor(ct ContentType, e Extractor) ResolverOption {
	return func(r *SourceResolver) { r.extractors[ct] = e }
}

// NewResolver creates a SourceResolver with the built-in extractors
// (plain text, HTML, markdown, CSV, PDF).
func NewResolver(opts ...ResolverOption) *SourceResolver {
	r := &SourceResolver{
		client: &http.Client{Timeout: 15 * time.Second},
		extractors: map[ContentType]Extractor{
			TypePlainText: PlainTextExtractor{},
			TypeHTML:      HTMLExtractor{},
			TypeMarkdown:  NewMarkdownExtractor(),
			TypeCSV:       NewCSVExtractor(),
			TypePDF:       NewPDFExtractor(),
		},
		maxBody: 10 << 20,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve returns the raw text segments of the configured source.
func (r *SourceResolver) Resolve(ctx context.Context, file corpus.FileConfig) ([]corpus.Segment, error) {
	if strings.HasPrefix(file.Path, "http://") || strings.HasPrefix(file.Path, "https://") {
		return r.resolveURL(ctx, file)
	}
	return r.resolveFile(file)
}

// resolveFile reads a local file and extracts it with the extractor for
// its declared content type, or the type detected from the extension.
func (r *SourceResolver) resolveFile(file corpus.FileConfig) ([]corpus.Segment, error) {
	ct, err := r.contentType(file)
	if err != nil {
		return nil, err
	}
	extractor := r.extractors[ct]

	content, err := os.ReadFile(file.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file.Path, err)
	}

	text, err := extractor.Extract(content)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", ct, err)
	}

	return []corpus.Segment{{
		Text: text,
		Meta: map[string]string{
			"source":       file.Path,
			"content_type": string(ct),
		},
	}}, nil
}

// contentType resolves the extraction type: a declared MIME type wins,
// otherwise the file extension decides. Anything unrecognized is an
// explicit unsupported-content error, never silently empty output.
func (r *SourceResolver) contentType(file corpus.FileConfig) (ContentType, error) {
	if file.ContentType != "" {
		// Declared types may carry parameters ("text/plain; charset=utf-8");
		// only the media type itself selects the extractor.
		mediaType, _, err := mime.ParseMediaType(file.ContentType)
		if err != nil {
			mediaType = strings.ToLower(strings.TrimSpace(file.ContentType))
		}
		ct := ContentType(mediaType)
		if _, ok := r.extractors[ct]; !ok {
			return "", &corpus.ErrUnsupportedContent{ContentType: file.ContentType}
		}
		return ct, nil
	}
	ext := filepath.Ext(file.Path)
	ct, ok := ContentTypeFromExtension(ext)
	if !ok {
		return "", &corpus.ErrUnsupportedContent{ContentType: ext}
	}
	if _, registered := r.extractors[ct]; !registered {
		return "", &corpus.ErrUnsupportedContent{ContentType: string(ct)}
	}
	return ct, nil
}

// resolveURL fetches a remote page and extracts its readable article
// content, falling back to a raw HTML strip when readability finds
// nothing.
func (r *SourceResolver) resolveURL(ctx context.Context, file corpus.FileConfig) ([]corpus.Segment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Path, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", file.Path, err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", file.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBody))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", file.Path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &corpus.ErrHTTP{Status: resp.StatusCode, Body: truncate(string(body), 200)}
	}

	meta := map[string]string{"source": file.Path, "content_type": string(TypeHTML)}

	parsedURL, _ := url.Parse(file.Path)
	article, err := readability.FromReader(strings.NewReader(string(body)), parsedURL)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		if article.Title != "" {
			meta["title"] = article.Title
		}
		return []corpus.Segment{{Text: strings.TrimSpace(article.TextContent), Meta: meta}}, nil
	}

	return []corpus.Segment{{Text: StripHTML(string(body)), Meta: meta}}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
