// Package report renders case reports for people and for machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/a3tai/mcp-expediente-fusion/internal/fusion"
	"github.com/a3tai/mcp-expediente-fusion/internal/pipeline"
	"github.com/a3tai/mcp-expediente-fusion/internal/reliability"
)

// Format selects an output rendering
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat accepts "text" or "json"; empty means text
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown format %q (must be text or json)", s)
	}
}

// Write renders r in the given format
func Write(w io.Writer, r *pipeline.Report, f Format) error {
	if f == FormatJSON {
		return JSON(w, r)
	}
	return Text(w, r)
}

// JSON writes the report as indented JSON
func JSON(w io.Writer, r *pipeline.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// Text writes a human readable summary followed by the field table
func Text(w io.Writer, r *pipeline.Report) error {
	var b strings.Builder
	f := r.Fusion
	c := r.Classification

	fmt.Fprintf(&b, "Case %s (analysis %s)\n", r.CaseID, r.AnalysisID)
	fmt.Fprintf(&b, "Operation: %s\n", r.OperationType)
	fmt.Fprintf(&b, "Routing: %s (confidence %.3f; required %.3f, optional %.3f)\n",
		f.Routing, f.OverallConfidence, f.RequiredScore, f.OptionalScore)
	fmt.Fprintf(&b, "Requirement type: %s %q", c.Type.Code, c.Type.Label)
	if c.MatchedRule != "" {
		fmt.Fprintf(&b, " via %s", c.MatchedRule)
	}
	fmt.Fprintf(&b, " (confidence %.2f)\n", c.Confidence)
	fmt.Fprintf(&b, "Relation: %s", c.Relation)
	if c.PriorReference != "" {
		fmt.Fprintf(&b, " of %s", c.PriorReference)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Manual review: %s\n", yesNo(r.RequiresManualReview))

	b.WriteString("\nSource reliability:\n")
	for _, src := range reliability.Sources {
		if score, ok := r.Reliability[src]; ok {
			fmt.Fprintf(&b, "  %-15s %.3f\n", src, score)
		} else if msg, failed := r.SourceErrors[src]; failed {
			fmt.Fprintf(&b, "  %-15s failed: %s\n", src, msg)
		}
	}

	writeList(&b, "Missing required fields", f.MissingRequiredFields)
	writeList(&b, "Conflicting fields", f.ConflictingFields)
	writeList(&b, "Fields needing review", f.FieldsNeedingReview)
	writeList(&b, "Warnings", c.Warnings)
	b.WriteString("\n")

	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}
	return FieldTable(w, f.Fields)
}

// FieldTable writes one row per fused field, sorted by name
func FieldTable(w io.Writer, fields map[string]fusion.FieldFusionResult) error {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Field", "Value", "Confidence", "Decision", "Sources"})
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, name := range names {
		res := fields[name]
		table.Append([]string{
			name,
			valueCell(res),
			fmt.Sprintf("%.3f", res.Confidence),
			string(res.Decision),
			sourcesCell(res.Sources),
		})
	}
	table.Render()
	return nil
}

func valueCell(res fusion.FieldFusionResult) string {
	if res.Decision == fusion.DecisionConflict {
		parts := make([]string, 0, len(res.Conflicts))
		for _, c := range res.Conflicts {
			parts = append(parts, fmt.Sprintf("%s=%s", c.Source, c.Value))
		}
		return strings.Join(parts, " | ")
	}
	if res.Value == nil {
		return "-"
	}
	return *res.Value
}

func sourcesCell(sources []fusion.SourceType) string {
	parts := make([]string, len(sources))
	for i, s := range sources {
		parts[i] = string(s)
	}
	return strings.Join(parts, ",")
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "  - %s\n", item)
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
