package yaml_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/hermitlink/pkg/yaml"
)

type testWatch struct {
	Manifests []string `json:"manifests,omitempty" jsonschema:"title=Manifests"`
}

type testConfig struct {
	Watch *testWatch `json:"watch,omitempty"`
	Kind  string     `json:"kind" jsonschema:"required"`
}

func TestSchemaGenerator_Generate(t *testing.T) {
	t.Parallel()

	b, err := yaml.NewSchemaGenerator(&testConfig{}, "github.com/macropower/hermitlink", ".").Generate()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(b, &schema))

	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []any{"kind"}, schema["required"])
	assert.Equal(t, false, schema["additionalProperties"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "watch")
	assert.Contains(t, props, "kind")

	v, err := yaml.NewValidator("/generated.json", b)
	require.NoError(t, err)
	require.NoError(t, v.Validate(map[string]any{"kind": "x", "watch": map[string]any{"manifests": []any{"a"}}}))
	require.Error(t, v.Validate(map[string]any{"watch": map[string]any{}}))
}
