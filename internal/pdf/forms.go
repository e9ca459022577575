package pdf

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// maxFieldDepth stops runaway Kids chains in malformed forms
const maxFieldDepth = 32

// FieldKind is the AcroForm field type
type FieldKind string

const (
	FieldKindText      FieldKind = "text"
	FieldKindButton    FieldKind = "button"
	FieldKindChoice    FieldKind = "choice"
	FieldKindSignature FieldKind = "signature"
	FieldKindUnknown   FieldKind = "unknown"
)

// FormField is one terminal AcroForm field. Name is the fully qualified
// name, parent names joined with dots.
type FormField struct {
	Name  string    `json:"name"`
	Kind  FieldKind `json:"kind"`
	Value string    `json:"value"`
}

// FormReader reads the AcroForm fields of a hand-filled document
type FormReader struct {
	validator *Validator
}

// NewFormReader creates a form reader
func NewFormReader(maxFileSize int64) *FormReader {
	return &FormReader{validator: NewValidator(maxFileSize)}
}

// WithRoot confines reads to files under root
func (fr *FormReader) WithRoot(root string) *FormReader {
	fr.validator.WithRoot(root)
	return fr
}

// ReadFile returns the form fields of the document at path
func (fr *FormReader) ReadFile(path string) ([]FormField, error) {
	if err := fr.validator.CheckPath(path); err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF file: %w", err)
	}
	defer file.Close()

	return fr.Read(file)
}

// Read returns the form fields of the document in rs. A document without
// an AcroForm has no fields.
func (fr *FormReader) Read(rs io.ReadSeeker) ([]FormField, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(rs, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("failed to ensure page count: %w", err)
	}

	root, err := ctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog: %w", err)
	}
	acroObj, found := root.Find("AcroForm")
	if !found {
		return nil, nil
	}
	acroForm, err := ctx.DereferenceDict(acroObj)
	if err != nil {
		return nil, fmt.Errorf("failed to dereference AcroForm: %w", err)
	}
	if acroForm == nil {
		return nil, nil
	}
	fieldsObj, found := acroForm.Find("Fields")
	if !found {
		return nil, nil
	}
	fields, err := ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return nil, fmt.Errorf("failed to dereference Fields array: %w", err)
	}

	var out []FormField
	for _, obj := range fields {
		walkField(ctx, obj, "", "", 0, &out)
	}
	return out, nil
}

// walkField collects terminal fields below obj. Kids without a T entry are
// widget annotations of obj itself, not child fields.
func walkField(ctx *model.Context, obj types.Object, prefix, inheritedFT string, depth int, out *[]FormField) {
	if depth > maxFieldDepth {
		return
	}
	dict, err := ctx.DereferenceDict(obj)
	if err != nil || dict == nil {
		return
	}

	name := prefix
	if partial := dictString(ctx, dict, "T"); partial != "" {
		name = joinFieldName(prefix, partial)
	}
	ft := inheritedFT
	if v := dictName(ctx, dict, "FT"); v != "" {
		ft = v
	}

	var children []types.Object
	if kidsObj, found := dict.Find("Kids"); found {
		if kids, err := ctx.DereferenceArray(kidsObj); err == nil {
			for _, kid := range kids {
				kd, err := ctx.DereferenceDict(kid)
				if err != nil || kd == nil {
					continue
				}
				if _, ok := kd.Find("T"); ok {
					children = append(children, kid)
				}
			}
		}
	}
	if len(children) > 0 {
		for _, kid := range children {
			walkField(ctx, kid, name, ft, depth+1, out)
		}
		return
	}
	if name == "" {
		return
	}

	kind := fieldKind(ft)
	*out = append(*out, FormField{
		Name:  name,
		Kind:  kind,
		Value: fieldValue(ctx, dict, kind),
	})
}

func joinFieldName(prefix, partial string) string {
	if prefix == "" {
		return partial
	}
	return prefix + "." + partial
}

func fieldKind(ft string) FieldKind {
	switch ft {
	case "Tx":
		return FieldKindText
	case "Btn":
		return FieldKindButton
	case "Ch":
		return FieldKindChoice
	case "Sig":
		return FieldKindSignature
	default:
		return FieldKindUnknown
	}
}

// fieldValue renders V as text. Unchecked buttons and signatures are empty.
func fieldValue(ctx *model.Context, dict types.Dict, kind FieldKind) string {
	obj, found := dict.Find("V")
	if !found {
		return ""
	}
	switch kind {
	case FieldKindButton:
		name, err := ctx.DereferenceName(obj, model.V10, nil)
		if err != nil || name == "Off" {
			return ""
		}
		return string(name)
	case FieldKindSignature:
		return ""
	}

	if s, err := ctx.DereferenceStringOrHexLiteral(obj, model.V10, nil); err == nil {
		return strings.TrimSpace(s)
	}
	// multi-select choice fields hold an array
	if arr, err := ctx.DereferenceArray(obj); err == nil {
		values := make([]string, 0, len(arr))
		for _, item := range arr {
			if s, err := ctx.DereferenceStringOrHexLiteral(item, model.V10, nil); err == nil {
				values = append(values, strings.TrimSpace(s))
			}
		}
		return strings.Join(values, ", ")
	}
	return ""
}

func dictString(ctx *model.Context, dict types.Dict, key string) string {
	obj, found := dict.Find(key)
	if !found {
		return ""
	}
	s, err := ctx.DereferenceStringOrHexLiteral(obj, model.V10, nil)
	if err != nil {
		return ""
	}
	return s
}

func dictName(ctx *model.Context, dict types.Dict, key string) string {
	obj, found := dict.Find(key)
	if !found {
		return ""
	}
	n, err := ctx.DereferenceName(obj, model.V10, nil)
	if err != nil {
		return ""
	}
	return string(n)
}
