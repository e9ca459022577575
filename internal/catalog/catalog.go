// Package catalog holds the requirement types a case can be classified
// into. The compiled-in types cover the operations the fusion layer knows
// about; further types can be registered at runtime and are carried as
// opaque codes.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
)

// Built-in requirement type codes
const (
	CodeInformationRequest = "information_request"
	CodeFreeze             = "freeze"
	CodeUnfreeze           = "unfreeze"
	CodeTransfer           = "transfer"
	CodeFundsPlacement     = "funds_placement"
	CodeUnknown            = "unknown"
)

var (
	ErrNotFound  = errors.New("requirement type not found")
	ErrDuplicate = errors.New("requirement type already registered")
	ErrInvalid   = errors.New("invalid requirement type")
)

var codeRe = regexp.MustCompile(`^[a-z][a-z0-9_]{1,63}$`)

// RequirementType is either one of the compiled-in types (Known) or a type
// registered at runtime, identified only by its code and label.
type RequirementType struct {
	Code        string `json:"code" db:"code" yaml:"code"`
	Label       string `json:"label" db:"label" yaml:"label"`
	Description string `json:"description,omitempty" db:"description" yaml:"description"`
	Known       bool   `json:"known" db:"-" yaml:"-"`
}

func (t RequirementType) String() string {
	return t.Code
}

// IsUnknown reports whether t is the catch-all type
func (t RequirementType) IsUnknown() bool {
	return t.Code == CodeUnknown
}

// Unknown builds a runtime type carrying an opaque code
func Unknown(code, label string) RequirementType {
	if label == "" {
		label = code
	}
	return RequirementType{Code: code, Label: label}
}

var builtins = []RequirementType{
	{Code: CodeInformationRequest, Label: "Information request", Description: "Request for account information or statements", Known: true},
	{Code: CodeFreeze, Label: "Freeze", Description: "Order to freeze accounts or funds", Known: true},
	{Code: CodeUnfreeze, Label: "Unfreeze", Description: "Order to release previously frozen accounts or funds", Known: true},
	{Code: CodeTransfer, Label: "Transfer", Description: "Order to transfer funds to a designated account", Known: true},
	{Code: CodeFundsPlacement, Label: "Funds placement", Description: "Order to place funds at the disposal of the authority", Known: true},
	{Code: CodeUnknown, Label: "Unclassified", Description: "No classification rule matched", Known: true},
}

// Builtins returns the compiled-in types in code order
func Builtins() []RequirementType {
	out := append([]RequirementType{}, builtins...)
	sortTypes(out)
	return out
}

// Builtin returns the compiled-in type for code
func Builtin(code string) (RequirementType, bool) {
	for _, t := range builtins {
		if t.Code == code {
			return t, true
		}
	}
	return RequirementType{}, false
}

// Registry is the mutable lookup of requirement types
type Registry interface {
	Lookup(ctx context.Context, code string) (RequirementType, error)
	List(ctx context.Context) ([]RequirementType, error)
	Register(ctx context.Context, t RequirementType) (RequirementType, error)
}

// Resolve looks code up in reg and falls back to an opaque type when the
// code is not registered or the registry cannot be read.
func Resolve(ctx context.Context, reg Registry, code string) (RequirementType, error) {
	if reg == nil {
		if t, ok := Builtin(code); ok {
			return t, nil
		}
		return Unknown(code, ""), ErrNotFound
	}
	t, err := reg.Lookup(ctx, code)
	if err != nil {
		return Unknown(code, ""), err
	}
	return t, nil
}

// normalize checks a type about to be registered
func normalize(t RequirementType) (RequirementType, error) {
	if !codeRe.MatchString(t.Code) {
		return RequirementType{}, fmt.Errorf("%w: code %q must be lowercase snake_case", ErrInvalid, t.Code)
	}
	if _, ok := Builtin(t.Code); ok {
		return RequirementType{}, fmt.Errorf("%w: %s", ErrDuplicate, t.Code)
	}
	out := Unknown(t.Code, t.Label)
	out.Description = t.Description
	return out, nil
}

func sortTypes(ts []RequirementType) {
	sort.Slice(ts, func(i, j int) bool { return ts[i].Code < ts[j].Code })
}
