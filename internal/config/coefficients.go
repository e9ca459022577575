package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"

	"github.com/a3tai/mcp-expediente-fusion/internal/fusion"
)

//go:embed coefficients.schema.json
var coefficientsSchema []byte

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("coefficients.schema.json", bytes.NewReader(coefficientsSchema)); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile("coefficients.schema.json")
	})
	return schema, schemaErr
}

// LoadCoefficients reads a YAML or JSON coefficient file. Keys the file
// leaves out keep their default; lists and leaf values are replaced as a
// whole. An empty path returns the defaults.
func LoadCoefficients(path string) (fusion.Coefficients, error) {
	defaults := fusion.DefaultCoefficients()
	if path == "" {
		return defaults, defaults.Validate()
	}

	v := viper.New()
	layer, err := toSettings(defaults)
	if err != nil {
		return fusion.Coefficients{}, err
	}
	for key, value := range layer {
		v.SetDefault(key, value)
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fusion.Coefficients{}, fmt.Errorf("read coefficients %s: %w", path, err)
	}
	if err := ValidateSettings(v.AllSettings()); err != nil {
		return fusion.Coefficients{}, fmt.Errorf("coefficients %s: %w", path, err)
	}

	var coef fusion.Coefficients
	if err := v.Unmarshal(&coef); err != nil {
		return fusion.Coefficients{}, fmt.Errorf("decode coefficients %s: %w", path, err)
	}
	if err := coef.Validate(); err != nil {
		return fusion.Coefficients{}, fmt.Errorf("invalid coefficients %s: %w", path, err)
	}
	return coef, nil
}

// ValidateSettings checks decoded coefficient settings against the schema
func ValidateSettings(settings map[string]any) error {
	sch, err := compiledSchema()
	if err != nil {
		return err
	}
	// normalize to the value types encoding/json produces
	b, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("unmarshal settings: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("settings do not match schema: %w", err)
	}
	return nil
}

func toSettings(c fusion.Coefficients) (map[string]any, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal default coefficients: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("unmarshal default coefficients: %w", err)
	}
	return out, nil
}
