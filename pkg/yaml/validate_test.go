package yaml_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/hermitlink/pkg/yaml"
)

const testSchema = `{
	"type": "object",
	"properties": {
		"kind": {"type": "string"},
		"kernel": {
			"type": "object",
			"properties": {
				"path": {"type": "string"},
				"package": {"type": "string", "minLength": 1}
			},
			"additionalProperties": false
		},
		"watch": {
			"type": "object",
			"properties": {
				"manifests": {"type": "array", "items": {"type": "string"}}
			}
		},
		"preflight": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"name": {"type": "string"},
					"expr": {"type": "string"}
				},
				"required": ["name", "expr"]
			}
		},
		"retries": {"type": "integer", "minimum": 0}
	},
	"required": ["kind"]
}`

func TestNewValidator(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		errMsg     string
		schemaData string
	}{
		"valid schema": {
			schemaData: testSchema,
		},
		"empty schema": {
			schemaData: `{}`,
		},
		"invalid json": {
			schemaData: `{"invalid": json}`,
			errMsg:     "unmarshal schema",
		},
		"invalid schema": {
			schemaData: `{"type": "invalid_type"}`,
			errMsg:     "compile schema",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			validator, err := yaml.NewValidator("/test.json", []byte(tc.schemaData))
			if tc.errMsg != "" {
				require.ErrorContains(t, err, tc.errMsg)
				assert.Nil(t, validator)

				return
			}

			require.NoError(t, err)
			assert.NotNil(t, validator)
		})
	}
}

func TestValidator_Validate(t *testing.T) {
	t.Parallel()

	validator := yaml.MustNewValidator("/test.json", []byte(testSchema))

	tcs := map[string]struct {
		input    string
		wantPath string
	}{
		"valid": {
			input: `kind: KernelConfig
kernel:
  path: ../kernel
  package: xtask
watch:
  manifests: [Cargo.toml]
preflight:
  - name: arch
    expr: arch == "x86_64"
retries: 2
`,
		},
		"missing required field": {
			input:    "kernel: {}\n",
			wantPath: "$",
		},
		"wrong type": {
			input:    "kind: 5\n",
			wantPath: "$.kind",
		},
		"unknown nested field": {
			input:    "kind: KernelConfig\nkernel:\n  dir: x\n",
			wantPath: "$.kernel",
		},
		"empty string": {
			input:    "kind: KernelConfig\nkernel:\n  package: \"\"\n",
			wantPath: "$.kernel.package",
		},
		"invalid array item": {
			input:    "kind: KernelConfig\nwatch:\n  manifests: [a, 1, b]\n",
			wantPath: "$.watch.manifests[1]",
		},
		"missing field in array item": {
			input:    "kind: KernelConfig\npreflight:\n  - name: a\n    expr: \"true\"\n  - name: b\n",
			wantPath: "$.preflight[1]",
		},
		"negative integer": {
			input:    "kind: KernelConfig\nretries: -1\n",
			wantPath: "$.retries",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var data any
			require.NoError(t, yaml.NewDecoder(bytes.NewBufferString(tc.input)).Decode(&data))

			err := validator.Validate(data)
			if tc.wantPath == "" {
				require.NoError(t, err)

				return
			}

			var yamlErr *yaml.Error
			require.ErrorAs(t, err, &yamlErr)
			require.NotNil(t, yamlErr.Path)
			assert.Equal(t, tc.wantPath, yamlErr.Path.String())
		})
	}
}
