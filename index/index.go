// Package index implements the Spec Index: it walks a parsed OpenAPI
// RawDocument once at startup, resolves $refs, and compiles each
// operation into a routable OperationDescriptor with a ResponseTable
// of dereferenced, tagged schemas.
package index

import (
	"fmt"
	"strings"

	"github.com/ovp-io/openapi-validator-proxy/spec"
	"github.com/ovp-io/openapi-validator-proxy/validator"
	"github.com/pkg/errors"
)

// OperationDescriptor is the compiled, immutable description of one
// (path-template, method) operation.
type OperationDescriptor struct {
	OperationID            string
	Method                 spec.HTTPVerb
	PathTemplate           spec.Path
	RequestBodyContentType *string
	Responses              ResponseTable
}

// ResponseEntry is a compiled (status-key, media-type, schema) triple.
// An empty Content means an empty body is required. Unresolved is set
// when the response's own $ref (under components.responses) could not
// be found — this is surfaced as MissingResponseDefinition at
// validation time rather than aborting compilation, the same deferred
// policy used for an unresolvable schema $ref.
type ResponseEntry struct {
	Description string
	Content     map[string]*validator.Schema
	Unresolved  bool
}

// ResponseTable maps a StatusKey (an exact 3-digit code, or the
// "default" sentinel) to its ResponseEntry.
type ResponseTable map[spec.StatusCode]*ResponseEntry

// Lookup tries an exact status-code match first, then the "default"
// sentinel, then reports a miss.
func (t ResponseTable) Lookup(statusCode int) (*ResponseEntry, bool) {
	key := spec.StatusCode(fmt.Sprintf("%d", statusCode))
	if entry, ok := t[key]; ok {
		return entry, true
	}
	if entry, ok := t[spec.DefaultStatusCode]; ok {
		return entry, true
	}
	return nil, false
}

// Compile walks doc once and compiles every operation. Compilation is
// pure: identical input documents yield identical descriptors. The
// fatal compile-time errors are a detected $ref cycle and an operation
// that declares no responses; an unresolvable (missing) $ref is
// deferred to a per-transaction validation failure instead.
func Compile(doc *spec.RawDocument) ([]*OperationDescriptor, error) {
	var descriptors []*OperationDescriptor

	for path, verbs := range doc.Paths {
		for verb, op := range verbs {
			descriptor, err := compileOperation(path, verb, op, doc)
			if err != nil {
				return nil, errors.Wrapf(err, "compiling %s %s", verb, path)
			}
			descriptors = append(descriptors, descriptor)
		}
	}

	return descriptors, nil
}

func compileOperation(path spec.Path, verb spec.HTTPVerb, op *spec.Operation, doc *spec.RawDocument) (*OperationDescriptor, error) {
	operationID := op.OperationID
	if operationID == "" {
		operationID = fmt.Sprintf("%s_%s", strings.ToLower(string(verb)), path)
	}

	var requestContentType *string
	if op.RequestBody != nil {
		for mediaType := range op.RequestBody.Content {
			if requestContentType == nil || mediaType < *requestContentType {
				ct := mediaType
				requestContentType = &ct
			}
		}
	}

	table := make(ResponseTable, len(op.Responses))
	for status, resp := range op.Responses {
		entry, err := compileResponse(resp, doc)
		if err != nil {
			return nil, err
		}
		table[status] = entry
	}

	if len(table) == 0 {
		return nil, errors.Errorf("operation %s declares no responses", operationID)
	}

	return &OperationDescriptor{
		OperationID:            operationID,
		Method:                 spec.HTTPVerb(strings.ToUpper(string(verb))),
		PathTemplate:           path,
		RequestBodyContentType: requestContentType,
		Responses:              table,
	}, nil
}

func compileResponse(resp *spec.Response, doc *spec.RawDocument) (*ResponseEntry, error) {
	resolved, err := resp.ResolveRef(doc.Components.Responses)
	if err != nil {
		return &ResponseEntry{Unresolved: true}, nil
	}

	content := make(map[string]*validator.Schema, len(resolved.Content))
	for mediaType, mt := range resolved.Content {
		compiled, err := compileSchema(mt.Schema, doc.Components.Schemas, map[*spec.RawSchema]bool{})
		if err != nil {
			return nil, err
		}
		content[mediaType] = compiled
	}

	return &ResponseEntry{Description: resolved.Description, Content: content}, nil
}

// compileSchema resolves raw's $ref chain (if any), flattens allOf,
// and classifies the result into the validator's tagged Schema kind.
// visiting tracks resolved-schema pointer identity along the current
// resolution path so a genuine $ref cycle is rejected with a fatal
// error instead of recursing forever.
func compileSchema(raw *spec.RawSchema, schemas map[string]*spec.RawSchema, visiting map[*spec.RawSchema]bool) (*validator.Schema, error) {
	if raw == nil {
		return nil, nil
	}

	if raw.Ref != "" {
		resolved, err := raw.ResolveRef(schemas)
		if err != nil {
			return &validator.Schema{Pending: true}, nil
		}
		if visiting[resolved] {
			return nil, errors.Errorf("cycle detected resolving $ref %s", raw.Ref)
		}
		visiting[resolved] = true
		defer delete(visiting, resolved)
		return compileSchema(resolved, schemas, visiting)
	}

	if len(raw.AllOf) > 0 {
		resolved, pending, err := resolveAllOfRefs(raw, schemas, visiting)
		if err != nil {
			return nil, err
		}
		if pending {
			return &validator.Schema{Pending: true}, nil
		}
		return compileSchema(resolved.FlattenAllOf(), schemas, visiting)
	}

	if len(raw.AnyOf) > 0 {
		branches, err := compileBranches(raw.AnyOf, schemas, visiting)
		if err != nil {
			return nil, err
		}
		return &validator.Schema{Kind: validator.KindAnyOf, Branches: branches}, nil
	}

	if len(raw.OneOf) > 0 {
		return &validator.Schema{Kind: validator.KindUnsupported, Reason: "oneOf"}, nil
	}

	return compileTyped(raw, schemas, visiting)
}

// resolveAllOfRefs returns a shallow copy of raw whose allOf branches
// have had their own $ref chain followed down to a concrete schema.
// FlattenAllOf merges a branch's fields directly via mergo; a branch
// that is itself a bare $ref would otherwise leak its unresolved Ref
// field into the flattened output, and compileSchema would then follow
// that ref and discard every other branch's merged required names and
// properties. pending is true when a branch's ref could not be found,
// deferring the whole allOf schema to the same Pending sentinel used
// for any other unresolved $ref.
func resolveAllOfRefs(raw *spec.RawSchema, schemas map[string]*spec.RawSchema, visiting map[*spec.RawSchema]bool) (resolved *spec.RawSchema, pending bool, err error) {
	branches := make([]*spec.RawSchema, len(raw.AllOf))
	for i, branch := range raw.AllOf {
		deref, branchPending, derefErr := dereferenceSchema(branch, schemas, visiting)
		if derefErr != nil {
			return nil, false, derefErr
		}
		if branchPending {
			return nil, true, nil
		}
		branches[i] = deref
	}

	copyRaw := *raw
	copyRaw.AllOf = branches
	return &copyRaw, false, nil
}

// dereferenceSchema follows raw's $ref chain (if any) down to the
// first concrete (non-$ref) schema, without compiling it into a tagged
// validator.Schema kind.
func dereferenceSchema(raw *spec.RawSchema, schemas map[string]*spec.RawSchema, visiting map[*spec.RawSchema]bool) (resolved *spec.RawSchema, pending bool, err error) {
	if raw.Ref == "" {
		return raw, false, nil
	}

	next, err := raw.ResolveRef(schemas)
	if err != nil {
		return nil, true, nil
	}
	if visiting[next] {
		return nil, false, errors.Errorf("cycle detected resolving $ref %s", raw.Ref)
	}

	visiting[next] = true
	resolved, pending, err = dereferenceSchema(next, schemas, visiting)
	delete(visiting, next)
	return resolved, pending, err
}

func compileBranches(raws []*spec.RawSchema, schemas map[string]*spec.RawSchema, visiting map[*spec.RawSchema]bool) ([]*validator.Schema, error) {
	branches := make([]*validator.Schema, 0, len(raws))
	for _, raw := range raws {
		compiled, err := compileSchema(raw, schemas, visiting)
		if err != nil {
			return nil, err
		}
		branches = append(branches, compiled)
	}
	return branches, nil
}

func compileTyped(raw *spec.RawSchema, schemas map[string]*spec.RawSchema, visiting map[*spec.RawSchema]bool) (*validator.Schema, error) {
	switch raw.Type {
	case spec.TypeObject:
		return compileObject(raw, schemas, visiting)
	case spec.TypeArray:
		items, err := compileSchema(raw.Items, schemas, visiting)
		if err != nil {
			return nil, err
		}
		return &validator.Schema{Kind: validator.KindArray, Items: items, MaxItems: raw.MaxItems}, nil
	case spec.TypeString:
		return &validator.Schema{Kind: validator.KindString}, nil
	case spec.TypeInteger:
		return &validator.Schema{Kind: validator.KindInteger}, nil
	case spec.TypeNumber:
		return &validator.Schema{Kind: validator.KindNumber}, nil
	case spec.TypeBoolean:
		return &validator.Schema{Kind: validator.KindBoolean}, nil
	case spec.TypeNull:
		return &validator.Schema{Kind: validator.KindNull}, nil
	case "":
		if len(raw.Properties) > 0 {
			return compileObject(raw, schemas, visiting)
		}
		return &validator.Schema{Kind: validator.KindUnsupported, Reason: "schema has no type"}, nil
	default:
		return &validator.Schema{Kind: validator.KindUnsupported, Reason: fmt.Sprintf("unsupported schema type %q", raw.Type)}, nil
	}
}

func compileObject(raw *spec.RawSchema, schemas map[string]*spec.RawSchema, visiting map[*spec.RawSchema]bool) (*validator.Schema, error) {
	properties := make(map[string]*validator.Schema, len(raw.Properties))
	for name, propRaw := range raw.Properties {
		compiled, err := compileSchema(propRaw, schemas, visiting)
		if err != nil {
			return nil, err
		}
		properties[name] = compiled
	}

	return &validator.Schema{
		Kind:       validator.KindObject,
		Required:   append([]string(nil), raw.Required...),
		Properties: properties,
	}, nil
}
