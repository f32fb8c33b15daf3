package validator

import (
	"testing"

	"github.com/ovp-io/openapi-validator-proxy/report"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func TestValidatePrimitives(t *testing.T) {
	require.Nil(t, Validate(&Schema{Kind: KindString}, "hello"))
	require.Nil(t, Validate(&Schema{Kind: KindBoolean}, true))
	require.Nil(t, Validate(&Schema{Kind: KindInteger}, float64(42)))
	require.Nil(t, Validate(&Schema{Kind: KindNumber}, float64(4.2)))
	require.Nil(t, Validate(&Schema{Kind: KindNull}, nil))
}

func TestValidateNullMismatchReflectsActualType(t *testing.T) {
	f := Validate(&Schema{Kind: KindNull}, true)
	require.NotNil(t, f)
	require.Equal(t, report.FailedValidationUnexpectedBoolean, f.Kind)
}

func TestValidateStringMismatch(t *testing.T) {
	f := Validate(&Schema{Kind: KindInteger}, "oops")
	require.NotNil(t, f)
	require.Equal(t, report.FailedValidationUnexpectedString, f.Kind)
}

func TestValidateObjectRequiredMissing(t *testing.T) {
	schema := &Schema{
		Kind:     KindObject,
		Required: []string{"id"},
		Properties: map[string]*Schema{
			"id": {Kind: KindInteger},
		},
	}
	f := Validate(schema, map[string]interface{}{})
	require.NotNil(t, f)
	require.Equal(t, report.FailedValidationUnexpectedNull, f.Kind)
	require.Equal(t, "$.id", f.Path)
}

func TestValidateObjectIgnoresAdditionalProperties(t *testing.T) {
	schema := &Schema{
		Kind: KindObject,
		Properties: map[string]*Schema{
			"id": {Kind: KindInteger},
		},
	}
	f := Validate(schema, map[string]interface{}{
		"id":    float64(1),
		"extra": "ignored",
	})
	require.Nil(t, f)
}

func TestValidateArrayMaxItems(t *testing.T) {
	schema := &Schema{
		Kind:     KindArray,
		Items:    &Schema{Kind: KindString},
		MaxItems: intPtr(2),
	}
	f := Validate(schema, []interface{}{"a", "b", "c"})
	require.NotNil(t, f)
	require.Equal(t, report.FailedValidationUnexpectedProperty, f.Kind)
	require.Equal(t, "$.length", f.Path)
}

func TestValidateArrayElementFailure(t *testing.T) {
	schema := &Schema{
		Kind:  KindArray,
		Items: &Schema{Kind: KindInteger},
	}
	f := Validate(schema, []interface{}{float64(1), "bad"})
	require.NotNil(t, f)
	require.Equal(t, report.FailedValidationUnexpectedString, f.Kind)
	require.Equal(t, "$[1]", f.Path)
}

func TestValidateAllOfAllBranchesMustPass(t *testing.T) {
	schema := &Schema{
		Kind: KindAllOf,
		Branches: []*Schema{
			{Kind: KindObject, Required: []string{"a"}, Properties: map[string]*Schema{"a": {Kind: KindString}}},
			{Kind: KindObject, Required: []string{"b"}, Properties: map[string]*Schema{"b": {Kind: KindString}}},
		},
	}
	require.Nil(t, Validate(schema, map[string]interface{}{"a": "x", "b": "y"}))

	f := Validate(schema, map[string]interface{}{"a": "x"})
	require.NotNil(t, f)
	require.Equal(t, report.FailedValidationUnexpectedNull, f.Kind)
}

func TestValidateAnyOfReturnsLastBranchFailure(t *testing.T) {
	schema := &Schema{
		Kind: KindAnyOf,
		Branches: []*Schema{
			{Kind: KindString},
			{Kind: KindBoolean},
		},
	}
	require.Nil(t, Validate(schema, "ok"))
	require.Nil(t, Validate(schema, true))

	f := Validate(schema, float64(1))
	require.NotNil(t, f)
	// the kind reflects the actual value's type, so both branches report a number here
	require.Equal(t, report.FailedValidationUnexpectedNumber, f.Kind)

	// branches that fail differently: the object branch reports the missing
	// required field at $.id, the last (string) branch an unexpected object at $
	distinct := &Schema{
		Kind: KindAnyOf,
		Branches: []*Schema{
			{Kind: KindObject, Required: []string{"id"}},
			{Kind: KindString},
		},
	}
	f = Validate(distinct, map[string]interface{}{})
	require.NotNil(t, f)
	require.Equal(t, report.FailedValidationUnexpectedProperty, f.Kind)
	require.Equal(t, "$", f.Path)
}

func TestValidateUnsupportedKindAlwaysFails(t *testing.T) {
	f := Validate(&Schema{Kind: KindUnsupported, Reason: "oneOf"}, map[string]interface{}{})
	require.NotNil(t, f)
	require.Equal(t, report.FailedValidationUnsupportedSchemaKind, f.Kind)
}

func TestValidatePendingRefFails(t *testing.T) {
	f := Validate(&Schema{Pending: true}, map[string]interface{}{})
	require.NotNil(t, f)
	require.Equal(t, report.MissingSchemaDefinition, f.Kind)
}
