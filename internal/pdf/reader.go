package pdf

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// DefaultMaxTextSize bounds the text kept from one document
const DefaultMaxTextSize = 10 * 1024 * 1024

const (
	pageBreak = "\n\n--- Page Break ---\n\n"

	// below this many characters a page set reads as an image scan
	minMeaningfulTextLength = 50
)

// ContentType describes what a document is made of
type ContentType string

const (
	ContentText          ContentType = "text"
	ContentMixed         ContentType = "mixed"
	ContentScannedImages ContentType = "scanned_images"
	ContentEmpty         ContentType = "no_content"
)

// HasTextLayer reports whether the text is worth scanning
func (c ContentType) HasTextLayer() bool {
	return c == ContentText || c == ContentMixed
}

// Document is the text layer of one PDF
type Document struct {
	Path        string      `json:"path"`
	Pages       int         `json:"pages"`
	Text        string      `json:"text"`
	ContentType ContentType `json:"content_type"`
	ImageCount  int         `json:"image_count"`
	Truncated   bool        `json:"truncated,omitempty"`
}

// Reader extracts the text layer of PDF documents
type Reader struct {
	validator   *Validator
	maxTextSize int
}

// NewReader creates a reader with the given file and text limits
func NewReader(maxFileSize int64, maxTextSize int) *Reader {
	if maxTextSize <= 0 {
		maxTextSize = DefaultMaxTextSize
	}
	return &Reader{
		validator:   NewValidator(maxFileSize),
		maxTextSize: maxTextSize,
	}
}

// WithRoot confines reads to files under root
func (r *Reader) WithRoot(root string) *Reader {
	r.validator.WithRoot(root)
	return r
}

// ReadFile extracts the document text. A document with no text layer is
// not an error; its ContentType says so.
func (r *Reader) ReadFile(path string) (*Document, error) {
	if err := r.validator.CheckPath(path); err != nil {
		return nil, err
	}

	f, pdfReader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	text, truncated := r.extractText(pdfReader)
	images := countImages(pdfReader)

	return &Document{
		Path:        path,
		Pages:       pdfReader.NumPage(),
		Text:        text,
		ContentType: classifyContent(text, images),
		ImageCount:  images,
		Truncated:   truncated,
	}, nil
}

// extractText concatenates page text until maxTextSize bytes
func (r *Reader) extractText(pdfReader *pdf.Reader) (string, bool) {
	var b strings.Builder
	pages := pdfReader.NumPage()

	for n := 1; n <= pages; n++ {
		page := pdfReader.Page(n)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			// unreadable pages are skipped
			continue
		}

		if b.Len()+len(content) > r.maxTextSize {
			b.WriteString(truncateUTF8(content, r.maxTextSize-b.Len()))
			return b.String(), true
		}
		b.WriteString(content)
		if n < pages {
			b.WriteString(pageBreak)
		}
	}
	return b.String(), false
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune
func truncateUTF8(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func classifyContent(text string, images int) ContentType {
	clean := strings.TrimSpace(strings.ReplaceAll(text, strings.TrimSpace(pageBreak), ""))

	switch {
	case len(clean) < minMeaningfulTextLength && images > 0:
		return ContentScannedImages
	case len(clean) < minMeaningfulTextLength:
		return ContentEmpty
	case images > 0:
		return ContentMixed
	default:
		return ContentText
	}
}

func countImages(pdfReader *pdf.Reader) int {
	total := 0
	for n := 1; n <= pdfReader.NumPage(); n++ {
		total += countPageImages(pdfReader, n)
	}
	return total
}

func countPageImages(pdfReader *pdf.Reader, n int) (count int) {
	defer func() {
		// malformed resource dictionaries make ledongthuc panic
		if recover() != nil {
			count = 0
		}
	}()

	page := pdfReader.Page(n)
	if page.V.IsNull() {
		return 0
	}
	resources := page.V.Key("Resources")
	if resources.IsNull() {
		return 0
	}
	xObjects := resources.Key("XObject")
	if xObjects.IsNull() || xObjects.Kind() != pdf.Dict {
		return 0
	}

	for _, key := range xObjects.Keys() {
		obj := xObjects.Key(key)
		if obj.IsNull() {
			continue
		}
		if obj.Key("Subtype").Name() == "Image" {
			count++
		}
	}
	return count
}
