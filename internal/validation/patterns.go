// Package validation holds the format predicates used to decide whether a
// cleaned field value is plausible for its domain type. Every predicate is
// total: blank or malformed input is reported as invalid, never as an error.
package validation

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Kind identifies the expected format of a case field
type Kind string

const (
	KindTaxID       Kind = "tax_id"
	KindNationalID  Kind = "national_id"
	KindCaseNumber  Kind = "case_number"
	KindRoutingCode Kind = "routing_code"
	KindDate        Kind = "date"
	KindAmount      Kind = "amount"
	KindText        Kind = "text"
)

// DefaultTextMaxLength bounds free text fields without an explicit limit
const DefaultTextMaxLength = 500

// maxAmountDigits keeps amounts within what a float64 represents exactly
const maxAmountDigits = 15

var (
	// RFC: 4 letters for individuals, 3 for companies (optionally padded by a
	// leading placeholder), a YYMMDD date and a 3 character homoclave.
	taxIDRe = regexp.MustCompile(`^(?:[A-ZÑ&]{4}|[-_*]?[A-ZÑ&]{3})(\d{6})[A-Z0-9]{3}$`)

	// CURP: 4 letters, YYMMDD, sex marker, state code, 3 consonants, homonymy
	// character and check digit.
	nationalIDRe = regexp.MustCompile(`^[A-Z][AEIOUX][A-Z]{2}(\d{6})([HMX])` +
		`(AS|BC|BS|CC|CL|CM|CS|CH|DF|DG|GT|GR|HG|JC|MC|MN|MS|NT|NL|OC|PL|QT|QR|SP|SL|SR|TC|TS|TL|VZ|YN|ZS|NE)` +
		`[B-DF-HJ-NP-TV-Z]{3}[A-Z0-9]\d$`)

	// Case numbers look like A/AS1-2505-088637-PHM.
	caseNumberRe = regexp.MustCompile(`^[A-Z]{1,4}/[A-Z]{1,5}\d{0,2}-\d{2,6}-\d{4,8}-[A-Z]{2,5}$`)

	routingCodeRe = regexp.MustCompile(`^\d{18}$`)
	dateRe        = regexp.MustCompile(`^\d{8}$`)
	amountRe      = regexp.MustCompile(`^\d+$`)

	// CaseNumberPattern finds case-number shaped tokens inside free text.
	CaseNumberPattern = regexp.MustCompile(`\b[A-Z]{1,4}/[A-Z]{1,5}\d{0,2}-\d{2,6}-\d{4,8}-[A-Z]{2,5}\b`)

	// RoutingCodePattern finds 18 digit routing codes inside free text.
	RoutingCodePattern = regexp.MustCompile(`(?:^|\D)(\d{18})(?:\D|$)`)
)

// TaxID reports whether s is a well-formed RFC with a real embedded date
func TaxID(s string) bool {
	m := taxIDRe.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	return validShortDate(m[1])
}

// NationalID reports whether s is a well-formed CURP with a real embedded date
func NationalID(s string) bool {
	m := nationalIDRe.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	return validShortDate(m[1])
}

// CaseNumber reports whether s has the structured case number shape
func CaseNumber(s string) bool {
	return caseNumberRe.MatchString(s)
}

// RoutingCode reports whether s is an 18 digit bank routing code (CLABE)
func RoutingCode(s string) bool {
	return routingCodeRe.MatchString(s)
}

// RoutingCodeChecksum reports whether s is an 18 digit CLABE whose control
// digit matches the 3-7-1 weighted sum of the first 17 digits.
func RoutingCodeChecksum(s string) bool {
	if !RoutingCode(s) {
		return false
	}
	weights := [3]int{3, 7, 1}
	sum := 0
	for i := 0; i < 17; i++ {
		sum += (int(s[i]-'0') * weights[i%3]) % 10
	}
	control := (10 - sum%10) % 10
	return int(s[17]-'0') == control
}

// Date reports whether s is an 8 digit YYYYMMDD value naming a real day
func Date(s string) bool {
	if !dateRe.MatchString(s) {
		return false
	}
	_, err := time.Parse("20060102", s)
	return err == nil
}

// Amount reports whether s is a non-negative whole amount written without
// thousands separators or a decimal fraction.
func Amount(s string) bool {
	if !amountRe.MatchString(s) || len(s) > maxAmountDigits {
		return false
	}
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}

// Text reports whether s is non-empty after trimming and at most maxLen runes
func Text(s string, maxLen int) bool {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return false
	}
	if maxLen <= 0 {
		maxLen = DefaultTextMaxLength
	}
	return utf8.RuneCountInString(trimmed) <= maxLen
}

// Check validates a possibly-nil value against the predicate for kind.
// Unknown kinds fall back to bounded free text.
func Check(kind Kind, value *string, maxLen int) bool {
	if value == nil || strings.TrimSpace(*value) == "" {
		return false
	}
	v := *value
	switch kind {
	case KindTaxID:
		return TaxID(v)
	case KindNationalID:
		return NationalID(v)
	case KindCaseNumber:
		return CaseNumber(v)
	case KindRoutingCode:
		return RoutingCode(v)
	case KindDate:
		return Date(v)
	case KindAmount:
		return Amount(v)
	default:
		return Text(v, maxLen)
	}
}

// validShortDate checks a YYMMDD string, accepting any century
func validShortDate(s string) bool {
	if len(s) != 6 {
		return false
	}
	_, err := time.Parse("060102", s)
	return err == nil
}

// bankCodes maps the leading 3 digits of a CLABE to the issuing bank
var bankCodes = map[string]string{
	"002": "BANAMEX",
	"006": "BANCOMEXT",
	"009": "BANOBRAS",
	"012": "BBVA MEXICO",
	"014": "SANTANDER",
	"019": "BANJERCITO",
	"021": "HSBC",
	"030": "BAJIO",
	"036": "INBURSA",
	"042": "MIFEL",
	"044": "SCOTIABANK",
	"058": "BANREGIO",
	"059": "INVEX",
	"062": "AFIRME",
	"072": "BANORTE",
	"127": "AZTECA",
	"137": "BANCOPPEL",
	"166": "BANCO DEL BIENESTAR",
	"646": "STP",
}

// BankName returns the bank a routing code belongs to
func BankName(routingCode string) (string, bool) {
	if !RoutingCode(routingCode) {
		return "", false
	}
	name, ok := bankCodes[routingCode[:3]]
	return name, ok
}

// RoutingCodeKnown reports whether s passes the checksum and names a known bank
func RoutingCodeKnown(s string) bool {
	_, ok := BankName(s)
	return ok && RoutingCodeChecksum(s)
}
