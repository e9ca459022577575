package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DefaultMaxFileSize caps the documents a case may attach
const DefaultMaxFileSize int64 = 100 * 1024 * 1024

// Validator checks that a path names a readable PDF
type Validator struct {
	maxFileSize int64
	root        string
}

// NewValidator creates a validator; a non-positive limit uses DefaultMaxFileSize
func NewValidator(maxFileSize int64) *Validator {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &Validator{maxFileSize: maxFileSize}
}

// MaxFileSize returns the size limit in bytes
func (v *Validator) MaxFileSize() int64 {
	return v.maxFileSize
}

// WithRoot confines CheckPath to files under root; "" lifts the restriction
func (v *Validator) WithRoot(root string) *Validator {
	v.root = ""
	if root == "" {
		return v
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	v.root = filepath.Clean(root)
	return v
}

// Root returns the document root, or "" when paths are unrestricted
func (v *Validator) Root() string {
	return v.root
}

// CheckPath validates the file without parsing it
func (v *Validator) CheckPath(filePath string) error {
	if filePath == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if err := v.checkRoot(filePath); err != nil {
		return err
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", filePath)
	}
	if err != nil {
		return fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", filePath)
	}
	if !strings.HasSuffix(strings.ToLower(filePath), ".pdf") {
		return fmt.Errorf("file is not a PDF: %s", filePath)
	}
	if info.Size() == 0 {
		return fmt.Errorf("file is empty: %s", filePath)
	}
	if info.Size() > v.maxFileSize {
		return fmt.Errorf("file too large: %d bytes (max: %d bytes)", info.Size(), v.maxFileSize)
	}
	return nil
}

// checkRoot resolves symlinks before comparing, so a link inside the root
// cannot point a read outside it
func (v *Validator) checkRoot(filePath string) error {
	if v.root == "" {
		return nil
	}
	abs, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("cannot resolve path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	} else if dir, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		abs = filepath.Join(dir, filepath.Base(abs))
	}
	rel, err := filepath.Rel(v.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path is outside the document root: %s", filePath)
	}
	return nil
}

// ValidateFile checks the path and that the file opens as a PDF
func (v *Validator) ValidateFile(filePath string) error {
	if err := v.CheckPath(filePath); err != nil {
		return err
	}

	f, r, err := pdf.Open(filePath)
	if err != nil {
		return fmt.Errorf("invalid PDF file: %w", err)
	}
	defer f.Close()

	if r.NumPage() == 0 {
		return fmt.Errorf("PDF has no pages: %s", filePath)
	}
	return nil
}
