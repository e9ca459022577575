package pdf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestValidatorCheckPath(t *testing.T) {
	v := NewValidator(16)
	dir := t.TempDir()

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{"empty path", "", "path cannot be empty"},
		{"missing", filepath.Join(dir, "missing.pdf"), "does not exist"},
		{"directory", dir, "is a directory"},
		{"wrong extension", writeFile(t, "letter.txt", []byte("x")), "not a PDF"},
		{"empty file", writeFile(t, "empty.pdf", nil), "file is empty"},
		{"too large", writeFile(t, "large.pdf", make([]byte, 17)), "file too large"},
		{"ok", writeFile(t, "ok.PDF", []byte("%PDF-1.4")), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.CheckPath(tt.path)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateFileRejectsGarbage(t *testing.T) {
	v := NewValidator(0)
	if v.MaxFileSize() != DefaultMaxFileSize {
		t.Errorf("expected default size limit, got %d", v.MaxFileSize())
	}

	path := writeFile(t, "broken.pdf", []byte("this is not a pdf document at all"))
	if err := v.ValidateFile(path); err == nil {
		t.Error("expected garbage to be rejected")
	}
}

func TestValidatorDocumentRoot(t *testing.T) {
	root := t.TempDir()
	inside := filepath.Join(root, "case", "letter.pdf")
	if err := os.MkdirAll(filepath.Dir(inside), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(inside, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}
	outside := writeFile(t, "outside.pdf", []byte("%PDF-1.4"))

	v := NewValidator(0).WithRoot(root)
	if v.Root() == "" {
		t.Fatal("expected a document root")
	}

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{"inside root", inside, ""},
		{"outside root", outside, "outside the document root"},
		{"dot-dot escape", filepath.Join(root, "case", "..", "..", filepath.Base(filepath.Dir(outside)), "outside.pdf"), "outside the document root"},
		{"missing inside root", filepath.Join(root, "missing.pdf"), "does not exist"},
		{"missing outside root", filepath.Join(filepath.Dir(outside), "missing.pdf"), "outside the document root"},
	}

	link := filepath.Join(root, "link.pdf")
	if err := os.Symlink(outside, link); err == nil {
		tests = append(tests, struct {
			name    string
			path    string
			wantErr string
		}{"symlink leaving root", link, "outside the document root"})
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.CheckPath(tt.path)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}

	if err := v.WithRoot("").CheckPath(outside); err != nil {
		t.Errorf("expected no restriction after clearing the root, got %v", err)
	}
}
