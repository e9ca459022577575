package pdf

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/a3tai/mcp-expediente-fusion/internal/fusion"
	"github.com/a3tai/mcp-expediente-fusion/internal/similarity"
	"github.com/a3tai/mcp-expediente-fusion/internal/validation"
)

var (
	taxIDTextRe      = regexp.MustCompile(`\b[A-ZÑ&]{3,4}\d{6}[A-Z0-9]{3}\b`)
	nationalIDTextRe = regexp.MustCompile(`\b[A-Z]{4}\d{6}[HMX][A-Z]{5}[A-Z0-9]\d\b`)
	letterNumberRe   = regexp.MustCompile(`(?i)\boficio\s+(?:n[uú]mero|n[uú]m\.?|no\.?)?\s*([0-9A-Z][0-9A-Z/\-]*)`)
	amountTextRe     = regexp.MustCompile(`(?i)(?:monto|importe|cantidad|suma|amount)[^$\d]{0,30}\$?\s*(\d{1,3}(?:,\d{3})+|\d+)(?:\.\d{1,2})?`)
	numericDateRe    = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	writtenDateRe    = regexp.MustCompile(`\b(\d{1,2})\s+de\s+([a-z]+)\s+de(?:l)?\s+(\d{4})\b`)
)

var months = map[string]time.Month{
	"enero": time.January, "febrero": time.February, "marzo": time.March,
	"abril": time.April, "mayo": time.May, "junio": time.June,
	"julio": time.July, "agosto": time.August, "septiembre": time.September,
	"setiembre": time.September, "octubre": time.October,
	"noviembre": time.November, "diciembre": time.December,
}

// Scan is what ScanText found in one document body
type Scan struct {
	Fields         map[string]*string
	PatternMatched map[string]bool
	CatalogMatched map[string]bool

	// Violations counts values shaped like a field that failed its check
	Violations int
}

// Extracted returns the number of fields found
func (s Scan) Extracted() int {
	return len(s.Fields)
}

// Matched returns the number of fields that passed their checks
func (s Scan) Matched() int {
	n := 0
	for _, ok := range s.PatternMatched {
		if ok {
			n++
		}
	}
	return n
}

// CatalogHits returns the number of fields confirmed against reference data
func (s Scan) CatalogHits() int {
	n := 0
	for _, ok := range s.CatalogMatched {
		if ok {
			n++
		}
	}
	return n
}

// ScanText pulls the pattern-detectable fields out of a document body.
// The first occurrence of each field wins.
func ScanText(coef fusion.Coefficients, text string) Scan {
	s := Scan{
		Fields:         make(map[string]*string),
		PatternMatched: make(map[string]bool),
		CatalogMatched: make(map[string]bool),
	}
	upper := strings.ToUpper(text)

	set := func(field, value string) {
		spec := coef.FieldSpecFor(field)
		ok := validation.Check(spec.Kind, &value, spec.MaxLength)
		s.Fields[field] = &value
		s.PatternMatched[field] = ok
		if !ok {
			s.Violations++
		}
	}

	if v := validation.CaseNumberPattern.FindString(upper); v != "" {
		set(fusion.FieldCaseNumber, v)
	}
	if v := firstLetterNumber(text); v != "" {
		set(fusion.FieldLetterNumber, v)
	}
	if v := taxIDTextRe.FindString(upper); v != "" {
		set(fusion.FieldTaxID, v)
	}
	if v := nationalIDTextRe.FindString(upper); v != "" {
		set(fusion.FieldNationalID, v)
	}
	if m := validation.RoutingCodePattern.FindStringSubmatch(text); m != nil {
		set(fusion.FieldAccountCode, m[1])
		known := validation.RoutingCodeKnown(m[1])
		s.CatalogMatched[fusion.FieldAccountCode] = known
		if !validation.RoutingCodeChecksum(m[1]) {
			s.Violations++
		}
	}
	if m := amountTextRe.FindStringSubmatch(text); m != nil {
		set(fusion.FieldAmount, strings.ReplaceAll(m[1], ",", ""))
	}
	if v := firstDate(text); v != "" {
		set(fusion.FieldRequestDate, v)
	}
	return s
}

func firstLetterNumber(text string) string {
	for _, m := range letterNumberRe.FindAllStringSubmatch(text, -1) {
		if strings.ContainsAny(m[1], "0123456789") {
			return strings.ToUpper(strings.TrimRight(m[1], "-/"))
		}
	}
	return ""
}

// firstDate returns the first date in the text as YYYYMMDD
func firstDate(text string) string {
	if m := numericDateRe.FindStringSubmatch(text); m != nil {
		month, _ := strconv.Atoi(m[2])
		if d, ok := buildDate(m[3], time.Month(month), m[1]); ok {
			return d
		}
	}
	for _, m := range writtenDateRe.FindAllStringSubmatch(similarity.Fold(text), -1) {
		month, ok := months[m[2]]
		if !ok {
			continue
		}
		if d, ok := buildDate(m[3], month, m[1]); ok {
			return d
		}
	}
	return ""
}

func buildDate(year string, month time.Month, day string) (string, bool) {
	d, _ := strconv.Atoi(day)
	t, err := time.Parse("2006-01-02", fmt.Sprintf("%s-%02d-%02d", year, int(month), d))
	if err != nil {
		return "", false
	}
	return t.Format("20060102"), true
}
