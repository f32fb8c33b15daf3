package index

import (
	"testing"

	"github.com/ovp-io/openapi-validator-proxy/spec"
	"github.com/ovp-io/openapi-validator-proxy/validator"
	"github.com/stretchr/testify/require"
)

func docWithPets() *spec.RawDocument {
	return &spec.RawDocument{
		Components: spec.Components{
			Schemas: map[string]*spec.RawSchema{
				"Pet": {
					Type:     spec.TypeObject,
					Required: []string{"id"},
					Properties: map[string]*spec.RawSchema{
						"id":   {Type: spec.TypeInteger},
						"name": {Type: spec.TypeString},
					},
				},
			},
		},
		Paths: map[spec.Path]map[spec.HTTPVerb]*spec.Operation{
			"/pets": {
				"get": {
					OperationID: "listPets",
					Responses: map[spec.StatusCode]*spec.Response{
						"200": {
							Description: "ok",
							Content: map[string]spec.MediaType{
								"application/json": {
									Schema: &spec.RawSchema{
										Type:  spec.TypeArray,
										Items: &spec.RawSchema{Ref: "#/components/schemas/Pet"},
									},
								},
							},
						},
					},
				},
			},
		},
	}
}

func TestCompileBasicOperation(t *testing.T) {
	descriptors, err := Compile(docWithPets())
	require.NoError(t, err)
	require.Len(t, descriptors, 1)

	d := descriptors[0]
	require.Equal(t, "listPets", d.OperationID)
	require.Equal(t, spec.HTTPVerb("GET"), d.Method)

	entry, ok := d.Responses.Lookup(200)
	require.True(t, ok)
	schema := entry.Content["application/json"]
	require.Equal(t, validator.KindArray, schema.Kind)
	require.Equal(t, validator.KindObject, schema.Items.Kind)
	require.ElementsMatch(t, []string{"id"}, schema.Items.Required)
}

func TestCompileGeneratesOperationIDWhenMissing(t *testing.T) {
	doc := &spec.RawDocument{
		Paths: map[spec.Path]map[spec.HTTPVerb]*spec.Operation{
			"/widgets": {
				"post": {
					Responses: map[spec.StatusCode]*spec.Response{
						"201": {Description: "created"},
					},
				},
			},
		},
	}

	descriptors, err := Compile(doc)
	require.NoError(t, err)
	require.Equal(t, "post_/widgets", descriptors[0].OperationID)
}

func TestCompileOperationWithNoResponsesFails(t *testing.T) {
	doc := &spec.RawDocument{
		Paths: map[spec.Path]map[spec.HTTPVerb]*spec.Operation{
			"/empty": {
				"get": {OperationID: "empty", Responses: map[spec.StatusCode]*spec.Response{}},
			},
		},
	}
	_, err := Compile(doc)
	require.Error(t, err)
}

func TestCompileUnresolvableSchemaRefDefersToPending(t *testing.T) {
	doc := &spec.RawDocument{
		Components: spec.Components{Schemas: map[string]*spec.RawSchema{}},
		Paths: map[spec.Path]map[spec.HTTPVerb]*spec.Operation{
			"/missing": {
				"get": {
					OperationID: "getMissing",
					Responses: map[spec.StatusCode]*spec.Response{
						"200": {
							Content: map[string]spec.MediaType{
								"application/json": {Schema: &spec.RawSchema{Ref: "#/components/schemas/Ghost"}},
							},
						},
					},
				},
			},
		},
	}

	descriptors, err := Compile(doc)
	require.NoError(t, err)

	entry, ok := descriptors[0].Responses.Lookup(200)
	require.True(t, ok)
	require.True(t, entry.Content["application/json"].Pending)
}

func TestCompileCycleIsFatal(t *testing.T) {
	schemas := map[string]*spec.RawSchema{}
	a := &spec.RawSchema{Type: spec.TypeObject, Properties: map[string]*spec.RawSchema{
		"b": {Ref: "#/components/schemas/B"},
	}}
	b := &spec.RawSchema{Type: spec.TypeObject, Properties: map[string]*spec.RawSchema{
		"a": {Ref: "#/components/schemas/A"},
	}}
	schemas["A"] = a
	schemas["B"] = b

	doc := &spec.RawDocument{
		Components: spec.Components{Schemas: schemas},
		Paths: map[spec.Path]map[spec.HTTPVerb]*spec.Operation{
			"/cyclic": {
				"get": {
					OperationID: "getCyclic",
					Responses: map[spec.StatusCode]*spec.Response{
						"200": {
							Content: map[string]spec.MediaType{
								"application/json": {Schema: &spec.RawSchema{Ref: "#/components/schemas/A"}},
							},
						},
					},
				},
			},
		},
	}

	_, err := Compile(doc)
	require.Error(t, err)
}

func TestCompileAllOfWithRefBranchKeepsSiblingProperties(t *testing.T) {
	doc := &spec.RawDocument{
		Components: spec.Components{
			Schemas: map[string]*spec.RawSchema{
				"Base": {
					Type:     spec.TypeObject,
					Required: []string{"id"},
					Properties: map[string]*spec.RawSchema{
						"id": {Type: spec.TypeInteger},
					},
				},
			},
		},
		Paths: map[spec.Path]map[spec.HTTPVerb]*spec.Operation{
			"/widgets": {
				"get": {
					OperationID: "getWidget",
					Responses: map[spec.StatusCode]*spec.Response{
						"200": {
							Content: map[string]spec.MediaType{
								"application/json": {
									Schema: &spec.RawSchema{
										AllOf: []*spec.RawSchema{
											{Ref: "#/components/schemas/Base"},
											{
												Type:     spec.TypeObject,
												Required: []string{"name"},
												Properties: map[string]*spec.RawSchema{
													"name": {Type: spec.TypeString},
												},
											},
										},
									},
								},
							},
						},
					},
				},
			},
		},
	}

	descriptors, err := Compile(doc)
	require.NoError(t, err)

	entry, ok := descriptors[0].Responses.Lookup(200)
	require.True(t, ok)
	schema := entry.Content["application/json"]
	require.Equal(t, validator.KindObject, schema.Kind)
	require.ElementsMatch(t, []string{"id", "name"}, schema.Required)
	require.Contains(t, schema.Properties, "id")
	require.Contains(t, schema.Properties, "name")
}

func TestCompileAllOfWithUnresolvableRefBranchDefersToPending(t *testing.T) {
	doc := &spec.RawDocument{
		Components: spec.Components{Schemas: map[string]*spec.RawSchema{}},
		Paths: map[spec.Path]map[spec.HTTPVerb]*spec.Operation{
			"/widgets": {
				"get": {
					OperationID: "getWidget",
					Responses: map[spec.StatusCode]*spec.Response{
						"200": {
							Content: map[string]spec.MediaType{
								"application/json": {
									Schema: &spec.RawSchema{
										AllOf: []*spec.RawSchema{
											{Ref: "#/components/schemas/Ghost"},
										},
									},
								},
							},
						},
					},
				},
			},
		},
	}

	descriptors, err := Compile(doc)
	require.NoError(t, err)

	entry, ok := descriptors[0].Responses.Lookup(200)
	require.True(t, ok)
	require.True(t, entry.Content["application/json"].Pending)
}

func TestResponseTableLookupFallsBackToDefault(t *testing.T) {
	table := ResponseTable{
		spec.DefaultStatusCode: {Description: "fallback"},
	}
	entry, ok := table.Lookup(503)
	require.True(t, ok)
	require.Equal(t, "fallback", entry.Description)
}

func TestResponseTableLookupMiss(t *testing.T) {
	table := ResponseTable{"200": {Description: "ok"}}
	_, ok := table.Lookup(500)
	require.False(t, ok)
}
