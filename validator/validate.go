package validator

import (
	"fmt"
	"sort"

	"github.com/ovp-io/openapi-validator-proxy/report"
)

// Failure is the result of a failed Validate call: the classified
// FailureKind plus a JSON-pointer-ish path to the offending value and
// a human-readable message.
type Failure struct {
	Kind    report.FailureKind
	Path    string
	Message string
}

// Validate checks value against schema and returns the first failure
// encountered in (deterministic) document order, or nil if value
// conforms. Schema.Properties is a Go map, which does not preserve
// OpenAPI source ordering once unmarshaled — properties are therefore
// walked in sorted-key order so that "first failure in document order"
// is at least reproducible across runs of an identical document.
func Validate(schema *Schema, value interface{}) *Failure {
	return validateAt(schema, value, "$")
}

func validateAt(schema *Schema, value interface{}, path string) *Failure {
	if schema == nil {
		return nil
	}
	if schema.Pending {
		return &Failure{
			Kind:    report.MissingSchemaDefinition,
			Path:    path,
			Message: fmt.Sprintf("schema at %s references an unresolved $ref", path),
		}
	}

	switch schema.Kind {
	case KindNull:
		if value != nil {
			return mismatch(value, path)
		}
		return nil

	case KindBoolean:
		if _, ok := value.(bool); !ok {
			return mismatch(value, path)
		}
		return nil

	case KindInteger, KindNumber:
		if _, ok := value.(float64); !ok {
			return mismatch(value, path)
		}
		return nil

	case KindString:
		if _, ok := value.(string); !ok {
			return mismatch(value, path)
		}
		return nil

	case KindArray:
		return validateArray(schema, value, path)

	case KindObject:
		return validateObject(schema, value, path)

	case KindAllOf:
		for _, branch := range schema.Branches {
			if f := validateAt(branch, value, path); f != nil {
				return f
			}
		}
		return nil

	case KindAnyOf:
		return validateAnyOf(schema, value, path)

	case KindUnsupported:
		return &Failure{
			Kind:    report.FailedValidationUnsupportedSchemaKind,
			Path:    path,
			Message: fmt.Sprintf("schema at %s is unsupported: %s", path, schema.Reason),
		}
	}

	return nil
}

func validateArray(schema *Schema, value interface{}, path string) *Failure {
	arr, ok := value.([]interface{})
	if !ok {
		return mismatch(value, path)
	}

	if schema.MaxItems != nil && len(arr) > *schema.MaxItems {
		return &Failure{
			Kind:    report.FailedValidationUnexpectedProperty,
			Path:    path + ".length",
			Message: fmt.Sprintf("array length %d exceeds maxItems %d", len(arr), *schema.MaxItems),
		}
	}

	for i, elem := range arr {
		if f := validateAt(schema.Items, elem, fmt.Sprintf("%s[%d]", path, i)); f != nil {
			return f
		}
	}
	return nil
}

func validateObject(schema *Schema, value interface{}, path string) *Failure {
	obj, ok := value.(map[string]interface{})
	if !ok {
		return mismatch(value, path)
	}

	for _, name := range schema.Required {
		if _, present := obj[name]; !present {
			return &Failure{
				Kind:    report.FailedValidationUnexpectedNull,
				Path:    path + "." + name,
				Message: fmt.Sprintf("required property %q is missing", name),
			}
		}
	}

	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v, present := obj[name]
		if !present {
			continue
		}
		if f := validateAt(schema.Properties[name], v, path+"."+name); f != nil {
			return f
		}
	}
	return nil
}

// validateAnyOf returns nil as soon as one branch validates. If every
// branch fails, the failure of the last attempted branch is returned —
// a deterministic tie-break fixed by spec, documented here rather than
// left to chance.
func validateAnyOf(schema *Schema, value interface{}, path string) *Failure {
	var last *Failure
	for _, branch := range schema.Branches {
		f := validateAt(branch, value, path)
		if f == nil {
			return nil
		}
		last = f
	}
	return last
}

// mismatch classifies a type mismatch by the actual JSON value's
// runtime type. The enumerated FailureKind set has no dedicated kind
// for an unexpected object or array, so both fall back to the generic
// FailedValidationUnexpectedProperty bucket.
func mismatch(value interface{}, path string) *Failure {
	kind := report.FailedValidationUnexpectedProperty
	actual := "object or array"

	switch value.(type) {
	case nil:
		kind = report.FailedValidationUnexpectedNull
		actual = "null"
	case bool:
		kind = report.FailedValidationUnexpectedBoolean
		actual = "boolean"
	case float64:
		kind = report.FailedValidationUnexpectedNumber
		actual = "number"
	case string:
		kind = report.FailedValidationUnexpectedString
		actual = "string"
	}

	return &Failure{
		Kind:    kind,
		Path:    path,
		Message: fmt.Sprintf("unexpected %s at %s", actual, path),
	}
}
