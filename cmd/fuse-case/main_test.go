package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-expediente-fusion/internal/catalog"
	"github.com/a3tai/mcp-expediente-fusion/internal/fusion"
	"github.com/a3tai/mcp-expediente-fusion/internal/pipeline"
)

const freezeCase = `{
  "operation_type": "freeze",
  "sources": {
    "official_scan": {
      "fields": {
        "case_number": "A/AS1-2505-088637-PHM",
        "holder_name": "GARCIA LOPEZ JUAN",
        "tax_id": "GALJ850101AB1",
        "account_code": "002010077777777771",
        "amount": "150000"
      },
      "text": "Se ordena el aseguramiento de la cuenta 002010077777777771 por un monto de $150,000.00"
    },
    "hand_filled": {
      "fields": {"tax_id": "GALJ850101AB2", "holder_name": null}
    }
  }
}`

func writeCase(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRunJSON(t *testing.T) {
	path := writeCase(t, "case-7.json", freezeCase)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--format", "json", path}, nil, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	var r pipeline.Report
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &r))
	assert.Equal(t, "case-7", r.CaseID, "file name stands in for the case id")
	assert.Equal(t, catalog.CodeFreeze, r.Classification.Type.Code)
	assert.Contains(t, r.Reliability, fusion.SourceHandFilled)
	assert.NotEmpty(t, r.AnalysisID)
}

func TestRunTextFromStdin(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-"}, strings.NewReader(freezeCase), &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "Operation: freeze")
	assert.Contains(t, out, "GARCIA LOPEZ JUAN")
	assert.Contains(t, out, "Routing:")
}

func TestRunFailOnReview(t *testing.T) {
	path := writeCase(t, "case.json", `{"case_id": "thin", "operation_type": "transfer",
		"sources": {"official_scan": {"fields": {"case_number": "A/AS1-2505-088637-PHM"}}}}`)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--fail-on-review", "--format=json", path}, nil, &stdout, &stderr)
	assert.Equal(t, exitReview, code)
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	bad := writeCase(t, "bad.json", "{not json")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no files", nil, exitUsage},
		{"unknown format", []string{"--format", "xml", bad}, exitUsage},
		{"unknown flag", []string{"--nope", bad}, exitUsage},
		{"missing coefficients", []string{"--coefficients", filepath.Join(dir, "none.yaml"), bad}, exitUsage},
		{"missing case file", []string{filepath.Join(dir, "none.json")}, exitError},
		{"malformed case", []string{bad}, exitError},
		{"case without sources", []string{writeCase(t, "empty.json", `{"case_id": "empty"}`)}, exitError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(context.Background(), tt.args, nil, &stdout, &stderr)
			assert.Equal(t, tt.want, code)
			assert.NotEmpty(t, stderr.String())
		})
	}
}

func TestReadCaseResolvesDocuments(t *testing.T) {
	path := writeCase(t, "case.json", `{"case_id": "docs", "documents": {"authority_scan": "letter.pdf", "hand_filled": "/abs/form.pdf"}}`)

	c, err := readCase(path, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "letter.pdf"), c.Documents[fusion.SourceAuthorityScan])
	assert.Equal(t, "/abs/form.pdf", c.Documents[fusion.SourceHandFilled])
}
