package pdf

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/a3tai/mcp-expediente-fusion/internal/fusion"
	"github.com/a3tai/mcp-expediente-fusion/internal/pipeline"
	"github.com/a3tai/mcp-expediente-fusion/internal/reliability"
	"github.com/a3tai/mcp-expediente-fusion/internal/similarity"
	"github.com/a3tai/mcp-expediente-fusion/internal/validation"
)

// ErrNoDocument is returned when the case attaches no document for a source
var ErrNoDocument = fmt.Errorf("%w: no document attached", pipeline.ErrSourceAbsent)

// quality of a digital text layer; mixed documents carry scanned pages
var contentQuality = map[ContentType]float64{
	ContentText:  1.0,
	ContentMixed: 0.85,
}

// TextExtractor reads a source from the text layer of its PDF
type TextExtractor struct {
	source fusion.SourceType
	reader *Reader
	coef   fusion.Coefficients
}

// NewTextExtractor creates a text extractor for source
func NewTextExtractor(source fusion.SourceType, reader *Reader, coef fusion.Coefficients) *TextExtractor {
	return &TextExtractor{source: source, reader: reader, coef: coef}
}

// Source implements pipeline.Extractor
func (e *TextExtractor) Source() fusion.SourceType {
	return e.source
}

// Extract implements pipeline.Extractor. Documents without a text layer
// fail; recognizing scanned pages is left to upstream OCR.
func (e *TextExtractor) Extract(ctx context.Context, c pipeline.Case) (*pipeline.Extraction, error) {
	path, err := documentPath(ctx, c, e.source)
	if err != nil {
		return nil, err
	}

	doc, err := e.reader.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !doc.ContentType.HasTextLayer() {
		return nil, fmt.Errorf("%s has no text layer (%s)", path, doc.ContentType)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scan := ScanText(e.coef, doc.Text)
	quality := contentQuality[doc.ContentType]

	return &pipeline.Extraction{
		Source:         e.source,
		Fields:         scan.Fields,
		PatternMatched: scan.PatternMatched,
		CatalogMatched: scan.CatalogMatched,
		Metadata: &reliability.RecognitionMetadata{
			QualityIndex:         &quality,
			ExtractedFields:      scan.Extracted(),
			PatternMatchedFields: scan.Matched(),
			CatalogMatchedFields: scan.CatalogHits(),
			PatternViolations:    scan.Violations,
		},
		Text: doc.Text,
	}, nil
}

// FieldAlias maps form field names containing Alias to a case field
type FieldAlias struct {
	Alias string `json:"alias" yaml:"alias"`
	Field string `json:"field" yaml:"field"`
}

// DefaultAliases returns the form field names recognized out of the box.
// Order matters: the first alias contained in a name wins.
func DefaultAliases() []FieldAlias {
	return []FieldAlias{
		{"fecha", fusion.FieldRequestDate},
		{"date", fusion.FieldRequestDate},
		{"expediente", fusion.FieldCaseNumber},
		{"case_number", fusion.FieldCaseNumber},
		{"oficio", fusion.FieldLetterNumber},
		{"letter_number", fusion.FieldLetterNumber},
		{"autoridad", fusion.FieldAuthorityName},
		{"authority", fusion.FieldAuthorityName},
		{"rfc", fusion.FieldTaxID},
		{"tax_id", fusion.FieldTaxID},
		{"curp", fusion.FieldNationalID},
		{"national_id", fusion.FieldNationalID},
		{"clabe", fusion.FieldAccountCode},
		{"cuenta", fusion.FieldAccountCode},
		{"account", fusion.FieldAccountCode},
		{"monto", fusion.FieldAmount},
		{"importe", fusion.FieldAmount},
		{"amount", fusion.FieldAmount},
		{"titular", fusion.FieldHolderName},
		{"nombre", fusion.FieldHolderName},
		{"holder", fusion.FieldHolderName},
		{"descripcion", fusion.FieldDescription},
		{"observaciones", fusion.FieldDescription},
		{"description", fusion.FieldDescription},
	}
}

// FormExtractor reads the hand-filled source from AcroForm fields
type FormExtractor struct {
	forms   *FormReader
	coef    fusion.Coefficients
	aliases []FieldAlias
}

// NewFormExtractor creates a form extractor; nil aliases use DefaultAliases
func NewFormExtractor(forms *FormReader, coef fusion.Coefficients, aliases []FieldAlias) *FormExtractor {
	if aliases == nil {
		aliases = DefaultAliases()
	}
	return &FormExtractor{forms: forms, coef: coef, aliases: aliases}
}

// Source implements pipeline.Extractor
func (e *FormExtractor) Source() fusion.SourceType {
	return fusion.SourceHandFilled
}

// Extract implements pipeline.Extractor
func (e *FormExtractor) Extract(ctx context.Context, c pipeline.Case) (*pipeline.Extraction, error) {
	path, err := documentPath(ctx, c, fusion.SourceHandFilled)
	if err != nil {
		return nil, err
	}
	fields, err := e.forms.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%s has no form fields", path)
	}
	return MapFormFields(e.coef, fields, e.aliases), ctx.Err()
}

// MapFormFields turns raw form fields into a hand-filled extraction. Blank
// fields are reported as null values; unmapped fields are ignored.
func MapFormFields(coef fusion.Coefficients, fields []FormField, aliases []FieldAlias) *pipeline.Extraction {
	ext := &pipeline.Extraction{
		Source:         fusion.SourceHandFilled,
		Fields:         make(map[string]*string),
		PatternMatched: make(map[string]bool),
		CatalogMatched: make(map[string]bool),
	}
	md := &reliability.RecognitionMetadata{}

	for _, f := range fields {
		target := matchAlias(f.Name, aliases)
		if target == "" {
			continue
		}
		if _, seen := ext.Fields[target]; seen {
			continue
		}

		value := strings.TrimSpace(f.Value)
		if value == "" {
			ext.Fields[target] = nil
			continue
		}
		value = normalizeFormValue(target, value)
		ext.Fields[target] = &value
		md.ExtractedFields++

		spec := coef.FieldSpecFor(target)
		matched := validation.Check(spec.Kind, &value, spec.MaxLength)
		ext.PatternMatched[target] = matched
		if matched {
			md.PatternMatchedFields++
		} else {
			md.PatternViolations++
		}

		if target == fusion.FieldAccountCode && validation.RoutingCodeKnown(value) {
			ext.CatalogMatched[target] = true
			md.CatalogMatchedFields++
		}
	}
	ext.Metadata = md
	return ext
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// compactName lowers, folds and strips separators from a field name
func compactName(s string) string {
	return nonAlnum.ReplaceAllString(similarity.Fold(s), "")
}

func matchAlias(name string, aliases []FieldAlias) string {
	n := compactName(name)
	if n == "" {
		return ""
	}
	for _, a := range aliases {
		if compactName(a.Alias) == n {
			return a.Field
		}
	}
	for _, a := range aliases {
		if alias := compactName(a.Alias); alias != "" && strings.Contains(n, alias) {
			return a.Field
		}
	}
	return ""
}

// normalizeFormValue applies the formatting people add by hand
func normalizeFormValue(field, value string) string {
	switch field {
	case fusion.FieldTaxID, fusion.FieldNationalID, fusion.FieldCaseNumber:
		return strings.ToUpper(strings.Join(strings.Fields(value), ""))
	case fusion.FieldAccountCode:
		return strings.NewReplacer(" ", "", "-", "").Replace(value)
	case fusion.FieldAmount:
		v := strings.NewReplacer("$", "", ",", "", " ", "").Replace(value)
		if i := strings.IndexByte(v, '.'); i >= 0 {
			v = v[:i]
		}
		return v
	case fusion.FieldRequestDate:
		if d := firstDate(value); d != "" {
			return d
		}
	}
	return value
}

func documentPath(ctx context.Context, c pipeline.Case, source fusion.SourceType) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := strings.TrimSpace(c.Documents[source])
	if path == "" {
		return "", fmt.Errorf("%w for %s", ErrNoDocument, source)
	}
	return path, nil
}
