package classification

import (
	"regexp"
	"strings"

	"github.com/a3tai/mcp-expediente-fusion/internal/catalog"
	"github.com/a3tai/mcp-expediente-fusion/internal/fusion"
	"github.com/a3tai/mcp-expediente-fusion/internal/validation"
)

var (
	// a reference cue followed by an identifier, e.g.
	// "en relación con el oficio número 214-1-8312/2025"
	priorReferenceRe = regexp.MustCompile(`(?i)\b(?:referencia|oficio\s+(?:anterior|previo|original)|` +
		`en\s+relaci[oó]n\s+(?:con|al|a)\s+(?:el\s+|su\s+)?(?:oficio|expediente)|` +
		`expediente\s+(?:anterior|previo|original)|prior\s+case|original\s+(?:order|case)|reference)\b` +
		`[^A-Za-z0-9]{0,12}(?:(?:no|n[uú]m|n[uú]mero|number)\.?\s*)?[:#]?\s*([A-Za-z0-9][A-Za-z0-9/\-]{3,})`)

	freezeOrderRe = regexp.MustCompile(`(?i)(?:(?:oficio|orden|order)\s+(?:de\s+)?(?:aseguramiento|bloqueo|inmovilizaci[oó]n|embargo|freeze)|freeze\s+order)[^.\n]{0,40}?\d`)

	accountRe = regexp.MustCompile(`(?i)\b(?:cuenta|cta|account)\.?\s*(?:(?:no|n[uú]m|n[uú]mero|number)\.?\s*)?[:#]?\s*\d{6,20}\b`)

	amountTextRe = regexp.MustCompile(`(?i)\$\s?\d[\d,]*(?:\.\d{2})?|\b(?:monto|importe|cantidad|suma|amount)\s+(?:de\s+|of\s+)?:?\s*\$?\s*\d[\d,]*`)
)

// priorReference returns the identifier of the case a document points
// back at, or "" when it names none. Without a cue, a case number other
// than the document's own counts, and only when the record carries one.
func priorReference(text string, record map[string]string) string {
	own := record[fusion.FieldCaseNumber]
	for _, m := range priorReferenceRe.FindAllStringSubmatch(text, -1) {
		id := strings.TrimRight(m[1], "-/")
		if strings.ContainsAny(id, "0123456789") && id != record[fusion.FieldLetterNumber] && id != own {
			return id
		}
	}
	if own == "" {
		return ""
	}
	for _, cn := range validation.CaseNumberPattern.FindAllString(text, -1) {
		if cn != own {
			return cn
		}
	}
	return ""
}

func hasRoutingCode(text string, record map[string]string) bool {
	return validation.RoutingCodePattern.MatchString(text) || validation.RoutingCode(record[fusion.FieldAccountCode])
}

func hasAccountReference(text string, record map[string]string) bool {
	return hasRoutingCode(text, record) || accountRe.MatchString(text) || record[fusion.FieldAccountCode] != ""
}

func hasAmountReference(text string, record map[string]string) bool {
	return amountTextRe.MatchString(text) || record[fusion.FieldAmount] != ""
}

// evidenceCheck is one piece of type-specific evidence a case must carry
type evidenceCheck struct {
	warning string
	present func(text string, record map[string]string, prior string) bool
}

var requiredEvidence = map[string][]evidenceCheck{
	catalog.CodeTransfer: {{
		warning: "transfer requested but no 18-digit routing code (CLABE) was found",
		present: func(text string, record map[string]string, _ string) bool {
			return hasRoutingCode(text, record)
		},
	}},
	catalog.CodeUnfreeze: {{
		warning: "release requested without a reference to the original freeze order",
		present: func(text string, _ map[string]string, prior string) bool {
			return prior != "" || freezeOrderRe.MatchString(text)
		},
	}},
	catalog.CodeFreeze: {{
		warning: "freeze requested without any account or amount reference",
		present: func(text string, record map[string]string, _ string) bool {
			return hasAccountReference(text, record) || hasAmountReference(text, record)
		},
	}},
	catalog.CodeFundsPlacement: {{
		warning: "funds placement requested without an amount",
		present: func(text string, record map[string]string, _ string) bool {
			return hasAmountReference(text, record)
		},
	}},
}

// missingEvidence lists the warnings for evidence typeCode lacks
func missingEvidence(typeCode, text string, record map[string]string, prior string) []string {
	var warnings []string
	for _, check := range requiredEvidence[typeCode] {
		if !check.present(text, record, prior) {
			warnings = append(warnings, check.warning)
		}
	}
	return warnings
}
