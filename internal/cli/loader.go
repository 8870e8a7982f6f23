package cli

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/santhosh-tekuri/jsonschema/v5"
	yaml "gopkg.in/yaml.v3"

	"github.com/roach88/smartmake/internal/model"
)

//go:embed schemas/smartmake.schema.json
var specSchemaFS embed.FS

const specSchemaPath = "schemas/smartmake.schema.json"

// LoadSpec reads a spec document (.yaml/.yml or .cue, chosen by extension),
// validates it against the embedded JSON schema, and converts it into the
// typed specification model. Model-level invariants (single producer,
// known references, capacities) are checked too; all violations are
// collected into one error so a document can be fixed in a single pass.
func LoadSpec(path string) (*model.Spec, error) {
	raw, err := decodeSpecDocument(path)
	if err != nil {
		return nil, err
	}
	if err := validateAgainstSchema(raw); err != nil {
		return nil, fmt.Errorf("spec document %s failed to validate: %w", path, err)
	}
	spec := buildSpec(raw)
	if errs := spec.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid spec document %s: %w", path, errors.Join(errs...))
	}
	return spec, nil
}

// decodeSpecDocument parses the document into its loose map form. Both
// formats funnel through the same shape so schema validation and typed
// conversion are format-independent.
func decodeSpecDocument(path string) (map[string]any, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spec document: %w", err)
	}

	var raw map[string]any
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(source, &raw); err != nil {
			return nil, fmt.Errorf("parse YAML spec document %s: %w", path, err)
		}
	case ".cue":
		ctx := cuecontext.New()
		value := ctx.CompileBytes(source, cue.Filename(path))
		if err := value.Err(); err != nil {
			return nil, fmt.Errorf("compile CUE spec document %s: %w", path, err)
		}
		if err := value.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode CUE spec document %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported spec document extension %q (want .yaml, .yml, or .cue)", ext)
	}
	return raw, nil
}

// validateAgainstSchema checks the loose document against the embedded
// JSON schema before any typed conversion happens.
func validateAgainstSchema(raw map[string]any) error {
	schemaSource, err := fs.ReadFile(specSchemaFS, specSchemaPath)
	if err != nil {
		return fmt.Errorf("read embedded schema: %w", err)
	}
	validator := jsonschema.MustCompileString(specSchemaPath, string(schemaSource))
	return validator.Validate(raw)
}

// buildSpec converts the schema-validated loose document into the typed
// model. Map sections are sorted by key so the model is deterministic for
// a given document.
func buildSpec(raw map[string]any) *model.Spec {
	spec := &model.Spec{}

	if params, ok := raw["parameters"].(map[string]any); ok {
		for _, name := range sortedKeys(params) {
			spec.Parameters = append(spec.Parameters, buildParameter(name, params[name]))
		}
	}
	if files, ok := raw["files"].(map[string]any); ok {
		for _, name := range sortedKeys(files) {
			spec.Files = append(spec.Files, model.FileAlias{
				Name:         name,
				PathTemplate: toString(files[name]),
			})
		}
	}
	if resources, ok := raw["resources"].(map[string]any); ok {
		for _, name := range sortedKeys(resources) {
			spec.Resources = append(spec.Resources, model.Resource{
				Name:     name,
				Capacity: toInt(resources[name]),
			})
		}
	}
	if tasks, ok := raw["tasks"].([]any); ok {
		for _, entry := range tasks {
			task, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			spec.Tasks = append(spec.Tasks, model.TaskDefinition{
				Name:         toString(task["name"]),
				Command:      toString(task["command"]),
				Uses:         toStrings(task["uses"]),
				Dependencies: toStrings(task["dependencies"]),
				Generates:    toStrings(task["generates"]),
			})
		}
	}
	return spec
}

// buildParameter accepts both document forms: a bare help string, or a map
// with optional type and help. The kind defaults to string.
func buildParameter(name string, value any) model.Parameter {
	p := model.Parameter{Name: name, Kind: model.ParamString}
	switch v := value.(type) {
	case string:
		p.Help = v
	case map[string]any:
		if kind, ok := v["type"].(string); ok && kind == string(model.ParamNumber) {
			p.Kind = model.ParamNumber
		}
		if help, ok := v["help"].(string); ok {
			p.Help = help
		}
	}
	return p
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func toString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func toStrings(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		out = append(out, toString(item))
	}
	return out
}

// toInt handles the integer representations the two decoders produce.
func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}
