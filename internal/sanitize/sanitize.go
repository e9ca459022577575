// Package sanitize normalizes raw candidate strings before they are
// validated and fused.
package sanitize

import (
	"regexp"
	"strings"
)

// DefaultPlaceholders are annotations people write into a form when they
// have no value to give. They are compared case-insensitively after cleaning.
var DefaultPlaceholders = []string{
	"no disponible",
	"not available",
	"n/a",
	"na",
	"n.a.",
	"s/d",
	"sin dato",
	"sin datos",
	"no aplica",
	"pendiente",
	"ver texto arriba",
	"ver arriba",
	"see text above",
	"see above",
	"null",
	"none",
	"-",
	"--",
	"---",
}

var (
	// encoded spaces and line breaks that survive HTML and XML exports
	breakSequences = []string{
		"&nbsp;", "&#160;", "&#xa0;", "&#xA0;", "\u00a0",
		"<br>", "<br/>", "<br />", "<BR>", "<BR/>", "<BR />",
		`\r\n`, `\n`, `\r`, `\t`,
		"\r\n", "\n", "\r", "\t",
	}

	markupTagRe  = regexp.MustCompile(`</?[A-Za-z][A-Za-z0-9]*(?:\s[^<>]*)?/?>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Sanitizer cleans raw field values
type Sanitizer struct {
	placeholders map[string]struct{}
}

// New creates a sanitizer that nulls out the given placeholder phrases.
// A nil slice selects DefaultPlaceholders.
func New(placeholders []string) *Sanitizer {
	if placeholders == nil {
		placeholders = DefaultPlaceholders
	}
	set := make(map[string]struct{}, len(placeholders))
	for _, p := range placeholders {
		p = strings.ToLower(collapse(p))
		if p != "" {
			set[p] = struct{}{}
		}
	}
	return &Sanitizer{placeholders: set}
}

var defaultSanitizer = New(nil)

// Clean sanitizes raw with the default placeholder list
func Clean(raw *string) *string {
	return defaultSanitizer.Clean(raw)
}

// CleanString is Clean for callers holding a plain string; the boolean is
// false when the value was nulled out.
func CleanString(raw string) (string, bool) {
	out := defaultSanitizer.Clean(&raw)
	if out == nil {
		return "", false
	}
	return *out, true
}

// Clean returns the cleaned value or nil when nothing meaningful remains.
// Clean is idempotent.
func (s *Sanitizer) Clean(raw *string) *string {
	if raw == nil {
		return nil
	}
	v := strings.TrimSpace(*raw)
	for _, seq := range breakSequences {
		v = strings.ReplaceAll(v, seq, " ")
	}
	v = markupTagRe.ReplaceAllString(v, " ")
	v = collapse(v)
	if v == "" || s.isPlaceholder(v) {
		return nil
	}
	return &v
}

// IsPlaceholder reports whether v is a known human placeholder annotation
func (s *Sanitizer) IsPlaceholder(v string) bool {
	return s.isPlaceholder(collapse(v))
}

func (s *Sanitizer) isPlaceholder(v string) bool {
	_, ok := s.placeholders[strings.ToLower(v)]
	return ok
}

func collapse(v string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(v, " "))
}
