package ingest

import (
	"strings"
	"testing"
)

func TestContentTypeFromExtension(t *testing.T) {
	tests := []struct {
		ext  string
		want ContentType
		ok   bool
	}{
		{".txt", TypePlainText, true},
		{"txt", TypePlainText, true},
		{".LOG", TypePlainText, true},
		{".md", TypeMarkdown, true},
		{".markdown", TypeMarkdown, true},
		{".html", TypeHTML, true},
		{".htm", TypeHTML, true},
		{".csv", TypeCSV, true},
		{".pdf", TypePDF, true},
		{".zip", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ContentTypeFromExtension(tt.ext)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ContentTypeFromExtension(%q) = (%q, %v), want (%q, %v)", tt.ext, got, ok, tt.want, tt.ok)
		}
	}
}

func TestStripHTML(t *testing.T) {
	in := "<p>Hello &amp; welcome</p><script>var x = 1;</script><style>p{color:red}</style><p>Goodbye</p>"
	got := StripHTML(in)
	if !strings.Contains(got, "Hello & welcome") {
		t.Errorf("entity not decoded: %q", got)
	}
	if !strings.Contains(got, "Goodbye") {
		t.Errorf("text after script/style lost: %q", got)
	}
	if strings.Contains(got, "var x") || strings.Contains(got, "color:red") {
		t.Errorf("script or style content leaked: %q", got)
	}
	if strings.Contains(got, "<") {
		t.Errorf("tag survived: %q", got)
	}
}

func TestStripHTMLNumericEntities(t *testing.T) {
	if got := StripHTML("&#65;&#x42;"); got != "AB" {
		t.Errorf("numeric entities: got %q, want %q", got, "AB")
	}
	// Unknown entity stays literal.
	if got := StripHTML("a &bogus; b"); got != "a &bogus; b" {
		t.Errorf("unknown entity: got %q", got)
	}
}

func TestCollapseWhitespace(t *testing.T) {
	in := "  first  \n\n\n\n  second  \nthird"
	want := "first\n\nsecond\nthird"
	if got := collapseWhitespace(in); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCSVExtractor(t *testing.T) {
	in := []byte("Name,Role\nAda,Engineer\nGrace,Admiral\n")
	got, err := NewCSVExtractor().Extract(in)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	want := "Name: Ada, Role: Engineer\n\nName: Grace, Role: Admiral"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCSVExtractorSkipsEmptyValues(t *testing.T) {
	in := []byte("Name,Role\nAda,\n,\n")
	got, err := NewCSVExtractor().Extract(in)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if got != "Name: Ada" {
		t.Errorf("got %q, want %q", got, "Name: Ada")
	}
}

func TestCSVExtractorEmpty(t *testing.T) {
	got, err := NewCSVExtractor().Extract([]byte("  \n"))
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty output, got %q", got)
	}
}

func TestCSVExtractorStripsBOM(t *testing.T) {
	in := []byte("\xef\xbb\xbfName\nAda\n")
	got, err := NewCSVExtractor().Extract(in)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if got != "Name: Ada" {
		t.Errorf("got %q, want %q", got, "Name: Ada")
	}
}

func TestMarkdownExtractor(t *testing.T) {
	in := []byte("# Title\n\nSome *emphasized* text with a [link](http://example.com/page).\n\n```go\nfunc main() {}\n```\n")
	got, err := NewMarkdownExtractor().Extract(in)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	for _, want := range []string{"Title", "emphasized", "link", "func main() {}"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q: %q", want, got)
		}
	}
	for _, gone := range []string{"#", "*", "```", "http://example.com/page"} {
		if strings.Contains(got, gone) {
			t.Errorf("markdown syntax %q survived: %q", gone, got)
		}
	}
}

func TestPlainTextExtractor(t *testing.T) {
	got, err := PlainTextExtractor{}.Extract([]byte("raw text\nas is"))
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if got != "raw text\nas is" {
		t.Errorf("got %q", got)
	}
}
