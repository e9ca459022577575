package classification

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// LoadRuleSet reads a YAML (or JSON) rule file
func LoadRuleSet(path string) (RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("failed to read rules file: %w", err)
	}
	return ParseRuleSet(data)
}

// ParseRuleSet decodes rule file content
func ParseRuleSet(data []byte) (RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return RuleSet{}, fmt.Errorf("failed to parse rules: %w", err)
	}
	return rs, nil
}

// Merge overlays custom rules on base. A custom rule replaces the base rule
// with the same name; the rest are appended.
func Merge(base, custom RuleSet) RuleSet {
	out := RuleSet{
		Version:     base.Version,
		Description: base.Description,
		Relations:   append([]RelationRule{}, base.Relations...),
		Types:       append([]Rule{}, base.Types...),
	}
	if custom.Version != "" {
		out.Version = custom.Version
	}

	relIndex := make(map[string]int, len(out.Relations))
	for i, r := range out.Relations {
		relIndex[r.Name] = i
	}
	for _, r := range custom.Relations {
		if i, ok := relIndex[r.Name]; ok {
			out.Relations[i] = r
			continue
		}
		relIndex[r.Name] = len(out.Relations)
		out.Relations = append(out.Relations, r)
	}

	typeIndex := make(map[string]int, len(out.Types))
	for i, r := range out.Types {
		typeIndex[r.Name] = i
	}
	for _, r := range custom.Types {
		if i, ok := typeIndex[r.Name]; ok {
			out.Types[i] = r
			continue
		}
		typeIndex[r.Name] = len(out.Types)
		out.Types = append(out.Types, r)
	}
	return out
}
