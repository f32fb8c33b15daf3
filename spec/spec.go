// Package spec models an OpenAPI 3.0.x document as parsed from YAML or
// JSON, prior to $ref resolution or compilation into the validator's
// tagged Schema variant. See package index for the compilation step.
package spec

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/imdario/mergo"
)

// A set of constants for the named types available in JSON Schema.
const (
	TypeArray   = "array"
	TypeBoolean = "boolean"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeObject  = "object"
	TypeString  = "string"
	TypeNull    = "null"
)

// HTTPVerb is a type for an HTTP verb like GET, POST, etc., as it
// appears as a key in an OpenAPI path item.
type HTTPVerb string

// Path is a type for an HTTP path template in an OpenAPI specification,
// e.g. "/pets/{petId}".
type Path string

// StatusCode is a type for a response status code key in an OpenAPI
// specification, including the literal string "default".
type StatusCode string

// DefaultStatusCode is the sentinel OpenAPI uses for a response entry
// that applies to any status code not otherwise listed.
const DefaultStatusCode StatusCode = "default"

// RawDocument is the top-level parsed OpenAPI document, prior to
// compilation by package index.
type RawDocument struct {
	Components Components                      `json:"components"`
	Paths      map[Path]map[HTTPVerb]*Operation `json:"paths"`
}

// Components is the OpenAPI document's components section, holding
// the named definitions that $refs point into.
type Components struct {
	Schemas   map[string]*RawSchema `json:"schemas"`
	Responses map[string]*Response  `json:"responses"`
}

// Operation is a single (path, verb) entry in the OpenAPI document.
type Operation struct {
	OperationID string                   `json:"operationId"`
	RequestBody *RequestBody             `json:"requestBody"`
	Responses   map[StatusCode]*Response `json:"responses"`
}

// RequestBody models the requestBody object of an OpenAPI operation.
// Request-body schema validation is out of scope; RequestBody is
// retained only so the Spec Index can record the operation's request
// content type.
type RequestBody struct {
	Content  map[string]MediaType `json:"content"`
	Required bool                 `json:"required"`
}

// MediaType buckets a request or response body by media type.
type MediaType struct {
	Schema *RawSchema `json:"schema"`
}

// Response models the response object of an OpenAPI operation, or a
// $ref to one declared under components.responses.
type Response struct {
	Description string               `json:"description"`
	Content     map[string]MediaType `json:"content"`
	Ref         string               `json:"$ref,omitempty"`
}

// ResolveRef returns the ultimate *Response: itself if Ref is empty,
// or the response looked up from responses by name.
func (r *Response) ResolveRef(responses map[string]*Response) (*Response, error) {
	if r.Ref == "" {
		return r, nil
	}

	name := refName(r.Ref, "#/components/responses/")
	resolved, ok := responses[name]
	if !ok {
		return nil, fmt.Errorf("could not find response %q in #/components/responses/", name)
	}
	return resolved, nil
}

// supportedSchemaFields is the strict-unmarshal allowlist: any field
// we don't recognize produces a loud error instead of being silently
// dropped, so an unsupported OpenAPI construct is caught immediately
// rather than misread.
var supportedSchemaFields = []string{
	"$ref", "additionalProperties", "allOf", "anyOf", "oneOf",
	"description", "enum", "example", "format", "items",
	"maxItems", "minItems", "maxLength", "minLength", "maximum", "minimum",
	"default", "nullable", "pattern", "properties", "required", "title", "type",
}

// RawSchema is the as-parsed OpenAPI Schema Object: the wire shape,
// before $ref resolution or compilation into the validator's tagged
// Schema. Keeping the wire shape and the compiled shape as distinct
// types lets $ref resolution, allOf flattening, and kind
// classification stay separate, individually testable steps.
type RawSchema struct {
	Ref                  string                `json:"$ref,omitempty"`
	Type                 string                `json:"type,omitempty"`
	Format               string                `json:"format,omitempty"`
	Nullable             bool                  `json:"nullable,omitempty"`
	Items                *RawSchema            `json:"items,omitempty"`
	MaxItems             *int                  `json:"maxItems,omitempty"`
	Properties           map[string]*RawSchema `json:"properties,omitempty"`
	Required             []string              `json:"required,omitempty"`
	AllOf                []*RawSchema          `json:"allOf,omitempty"`
	AnyOf                []*RawSchema          `json:"anyOf,omitempty"`
	OneOf                []*RawSchema          `json:"oneOf,omitempty"`
	AdditionalProperties interface{}           `json:"additionalProperties,omitempty"`
	Description          string                `json:"description,omitempty"`
	Enum                 []interface{}         `json:"enum,omitempty"`
	Example              json.RawMessage       `json:"example,omitempty"`
	Default              json.RawMessage       `json:"default,omitempty"`
	Pattern              string                `json:"pattern,omitempty"`
	Title                string                `json:"title,omitempty"`
}

// UnmarshalJSON rejects unrecognized schema fields instead of silently
// ignoring them, so an OpenAPI construct this proxy doesn't support
// surfaces as a loud compile-time error rather than a quiet gap.
func (s *RawSchema) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	for _, field := range supportedSchemaFields {
		delete(raw, field)
	}
	for field := range raw {
		return fmt.Errorf("unsupported field in JSON schema: %q", field)
	}

	type schemaAlias RawSchema
	var inner schemaAlias
	if err := json.Unmarshal(data, &inner); err != nil {
		return err
	}
	*s = RawSchema(inner)
	return nil
}

// ResolveRef returns the ultimate *RawSchema: itself if Ref is empty,
// or the schema looked up from schemas by name. A miss is reported as
// an error so the caller (package index) can record a pending/
// unresolved sentinel instead of aborting compilation.
func (s *RawSchema) ResolveRef(schemas map[string]*RawSchema) (*RawSchema, error) {
	if s.Ref == "" {
		return s, nil
	}

	name := refName(s.Ref, "#/components/schemas/")
	resolved, ok := schemas[name]
	if !ok {
		return nil, fmt.Errorf("could not find schema %q in #/components/schemas/", name)
	}
	return resolved, nil
}

// FlattenAllOf merges an allOf chain's required names and property
// maps into a single *RawSchema, leftmost-branch-wins on conflicting
// property schemas. It uses mergo.Merge over a nilled-out AllOf field
// so mergo doesn't try to recurse into the slice itself.
func (s *RawSchema) FlattenAllOf() *RawSchema {
	var flatten func(output *RawSchema, input *RawSchema)

	flatten = func(output *RawSchema, input *RawSchema) {
		allOf := input.AllOf
		required := input.Required
		properties := input.Properties
		input.AllOf, input.Required, input.Properties = nil, nil, nil

		mergo.Merge(output, input)

		input.AllOf, input.Required, input.Properties = allOf, required, properties
		mergeRequired(output, required)
		mergeProperties(output, properties)

		for _, branch := range allOf {
			flatten(output, branch)
		}
	}

	var output RawSchema
	flatten(&output, s)
	return &output
}

func mergeRequired(output *RawSchema, required []string) {
	if len(required) == 0 {
		return
	}
	seen := make(map[string]bool, len(output.Required))
	for _, name := range output.Required {
		seen[name] = true
	}
	for _, name := range required {
		if !seen[name] {
			output.Required = append(output.Required, name)
			seen[name] = true
		}
	}
}

// mergeProperties copies property entries into output's own map,
// never aliasing a branch's original Properties map, so flattening
// never mutates a schema that might be shared (e.g. reused via $ref
// from more than one operation).
func mergeProperties(output *RawSchema, properties map[string]*RawSchema) {
	if len(properties) == 0 {
		return
	}
	if output.Properties == nil {
		output.Properties = make(map[string]*RawSchema, len(properties))
	}
	for name, schema := range properties {
		// Leftmost branch wins: the first merge into output claims the
		// property name; later (subsequent AllOf branches) don't
		// overwrite it.
		if _, exists := output.Properties[name]; !exists {
			output.Properties[name] = schema
		}
	}
}

func refName(ref string, prefix string) string {
	return strings.TrimPrefix(ref, prefix)
}
