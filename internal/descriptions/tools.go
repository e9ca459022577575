package descriptions

import "sort"

// Tool descriptions with practical examples, as shown to MCP clients

const (
	FuseCaseDescription = `Fuse every source of a case into one record, classify the requirement and decide its routing.

**When to use:** A case has been captured by two or three passes (official scan, authority letter, hand-filled form) and needs one trusted record plus a routing decision.

**Input:** a case object with "case_id", optional "operation_type", "documents" mapping a source to a PDF path, and "sources" with inline extraction results. Inline data for a source wins over its document.

**Examples:**
• Route a freeze order: "Fuse case EXP-2025-0142 using the authority letter at /cases/0142/oficio.pdf"
• Re-check a capture: "Fuse this case with the OCR fields from the official scan and the hand-filled form"

**Common workflows:**
1. Intake: fuse_case → auto_process cases go straight through → others go to a review queue
2. Review: fuse_case with format=json → inspect conflicting_fields and missing_required_fields

**Notes:** A source that fails to extract is reported under source_errors and left out of the fusion. Output is a text report or, with format=json, the full report.`

	FuseFieldDescription = `Reconcile the values several sources proposed for a single field.

**When to use:** Checking how one field would be resolved, or fusing a field outside a full case.

**Input:** "field" (e.g. tax_id, holder_name), "candidates" with value, source, reliability and optional field_confidence, pattern_matched and catalog_matched, plus "required".

**Examples:**
• Tax ID disagreement: "Fuse tax_id from GALJ850101AB1 (official_scan, 0.85) and GALJ850101AB2 (hand_filled, 0.6)"
• Name spelling: "Fuse holder_name candidates 'GARCIA LOPEZ JUAN' and 'GARCÍA LÓPEZ JUAN'"

**Notes:** Invalid or empty values are dropped before voting. Critical fields that cannot be settled come back as a conflict with every competing value.`

	ScoreReliabilityDescription = `Score how trustworthy one extraction pass is.

**When to use:** Inspecting why a source weighs more or less than another, or scoring a pass before fusing.

**Input:** "source" (official_scan, authority_scan or hand_filled) and an optional "metadata" object: mean_confidence, min_confidence, total_tokens, low_confidence_tokens, quality_index, blur, contrast, noise, edge_density, extracted_fields, pattern_matched_fields, catalog_matched_fields, pattern_violations.

**Examples:**
• "Score an official_scan pass with mean_confidence 0.93 and quality_index 0.8"
• "How reliable is a hand_filled form with 7 extracted and 5 pattern matched fields?"

**Notes:** Missing metadata falls back to neutral values; the score is always between 0 and 1.`

	ClassifyDocumentDescription = `Classify a document into a requirement type and detect follow-up relations.

**When to use:** Deciding what an authority letter asks for (information request, freeze, unfreeze, transfer, funds placement) and whether it follows up an earlier one.

**Input:** "text" or "path" to a PDF with a text layer, an optional "record" with fused field values, and an optional "confidence" ceiling.

**Examples:**
• "Classify /cases/0142/oficio.pdf"
• "Classify this text: Se ordena el aseguramiento de la cuenta 002010077777777771"

**Notes:** Reminders, extensions and clarifications return the relation and the prior letter or case number when present, and always require manual review. A freeze or transfer without the references it needs comes back with a warning.`

	ListRequirementTypesDescription = `List the requirement types classification can resolve.

**When to use:** Before registering a new type, or to check which codes rules may produce.

**Notes:** Built-in types are always present; registered types persist when the server runs with a catalog database.`

	RegisterRequirementTypeDescription = `Register a new requirement type.

**When to use:** A classification rule file introduces a code that is not built in, e.g. asset_seizure.

**Input:** "code" in lowercase snake_case, "label", and an optional "description".

**Notes:** Built-in codes and codes already registered are rejected.`

	ServerInfoDescription = `Get server information, the active routing thresholds and the available tools.

**When to use:** Starting a session, or checking which coefficient file the server loaded.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"fuse_case":                 FuseCaseDescription,
	"fuse_field":                FuseFieldDescription,
	"score_reliability":         ScoreReliabilityDescription,
	"classify_document":         ClassifyDocumentDescription,
	"list_requirement_types":    ListRequirementTypesDescription,
	"register_requirement_type": RegisterRequirementTypeDescription,
	"server_info":               ServerInfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetToolSummary returns the first line of a tool's description
func GetToolSummary(toolName string) string {
	desc := GetToolDescription(toolName)
	for i, r := range desc {
		if r == '\n' {
			return desc[:i]
		}
	}
	return desc
}

// GetAllToolNames returns the tool names in alphabetical order
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
