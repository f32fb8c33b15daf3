package spec

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// Load reads the OpenAPI document at path (YAML or JSON, detected by
// content sniffing) and unmarshals it into a RawDocument.
func Load(path string) (*RawDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading openapi document %s", path)
	}

	jsonData := data
	if !looksLikeJSON(data) {
		jsonData, err = yamlToJSON(data)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing %s as YAML", path)
		}
	}

	var doc RawDocument
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return nil, errors.Wrapf(err, "decoding openapi document %s", path)
	}
	return &doc, nil
}

// looksLikeJSON sniffs the first non-whitespace byte of the document;
// a leading '{' is treated as JSON, anything else as YAML (a superset
// of JSON's grammar, so this also accepts JSON with non-object roots
// gracefully falling through to the YAML path).
func looksLikeJSON(data []byte) bool {
	trimmed := strings.TrimSpace(string(data))
	return strings.HasPrefix(trimmed, "{")
}

// yamlToJSON decodes YAML into a generic value and re-encodes it as
// JSON, so a single json-tagged struct tree (RawDocument) can consume
// either source format.
func yamlToJSON(data []byte) ([]byte, error) {
	var generic interface{}
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, err
	}
	generic = normalizeYAML(generic)
	return json.Marshal(generic)
}

// normalizeYAML converts the map[interface{}]interface{} nodes
// gopkg.in/yaml.v2 produces into map[string]interface{}, which
// encoding/json can marshal; yaml.v2 does not do this itself.
func normalizeYAML(v interface{}) interface{} {
	switch value := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(value))
		for k, v2 := range value {
			out[keyToString(k)] = normalizeYAML(v2)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(value))
		for i, v2 := range value {
			out[i] = normalizeYAML(v2)
		}
		return out
	default:
		return v
	}
}

func keyToString(k interface{}) string {
	if s, ok := k.(string); ok {
		return s
	}
	return fmt.Sprint(k)
}
