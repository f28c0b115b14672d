// Package rulefile loads declarative rule sets from YAML or JSON files.
package rulefile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/oncall/core/model"
)

// File is the on-disk document: a top-level "rules" list.
type File struct {
	Rules []model.RuleSpec `json:"rules" yaml:"rules"`
}

// Load reads a rule file. The extension selects JSON; anything else is
// parsed as YAML.
func Load(path string) ([]model.RuleSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return DecodeJSON(f)
	}
	return Decode(f)
}

// Decode parses a YAML rule document. Unknown top-level keys are rejected.
func Decode(r io.Reader) ([]model.RuleSpec, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc File
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	return normalize(doc.Rules)
}

// DecodeJSON parses a JSON rule document.
func DecodeJSON(r io.Reader) ([]model.RuleSpec, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var doc File
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	return normalize(doc.Rules)
}

// Encode writes rules as YAML.
func Encode(w io.Writer, rules []model.RuleSpec) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(File{Rules: rules}); err != nil {
		return err
	}
	return enc.Close()
}

// Parse is a convenience wrapper around Decode.
func Parse(data []byte) ([]model.RuleSpec, error) {
	return Decode(bytes.NewReader(data))
}

// normalize trims identifiers and converts YAML-specific maps inside params
// so rule decoders only see map[string]any.
func normalize(in []model.RuleSpec) ([]model.RuleSpec, error) {
	for i := range in {
		r := &in[i]
		r.ID = strings.TrimSpace(r.ID)
		r.Kind = strings.TrimSpace(r.Kind)
		if r.Kind == "" {
			name := r.ID
			if name == "" {
				name = fmt.Sprintf("#%d", i+1)
			}
			return nil, &model.InvalidRuleError{Rule: name, Reason: "missing kind"}
		}
		for k, v := range r.Params {
			r.Params[k] = plain(v)
		}
	}
	return in, nil
}

func plain(v any) any {
	switch t := v.(type) {
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = plain(val)
		}
		return m
	case map[string]any:
		for k, val := range t {
			t[k] = plain(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = plain(val)
		}
		return t
	default:
		return v
	}
}
