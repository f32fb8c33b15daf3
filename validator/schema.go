// Package validator implements the Schema Validator: given a compiled,
// dereferenced Schema and a decoded JSON value, it classifies whether
// the value conforms, returning the first failure encountered in
// document order.
package validator

// Kind tags the variant a compiled Schema node holds.
type Kind int

const (
	KindObject Kind = iota
	KindArray
	KindString
	KindInteger
	KindNumber
	KindBoolean
	KindNull
	KindAllOf
	KindAnyOf
	KindUnsupported
)

// Schema is the compiled, dereferenced schema tree the Schema
// Validator operates on. Every `$ref` has already been followed by the
// Spec Index; Schema never carries a `$ref` field itself.
//
// Unsupported is a first-class reachable node: a schema kind outside
// {object, array, string, integer, number, boolean, null, allOf,
// anyOf} compiles to Kind: KindUnsupported rather than being rejected
// at compile time, so discovering it during validation can still
// produce a typed per-transaction failure instead of a panic.
type Schema struct {
	Kind Kind

	// Object
	Required   []string
	Properties map[string]*Schema

	// Array
	Items    *Schema
	MaxItems *int

	// AllOf / AnyOf
	Branches []*Schema

	// Unsupported
	Reason string

	// Pending marks a schema node whose originating $ref could not be
	// resolved at compile time. Validating against a Pending node
	// always fails with MissingSchemaDefinition, deferring the broken
	// reference to the one transaction that actually exercises it
	// rather than aborting compilation for every operation.
	Pending bool
}
