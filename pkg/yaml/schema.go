package yaml

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// SchemaGenerator reflects a JSON schema from Go types.
type SchemaGenerator struct {
	r *jsonschema.Reflector
	v any
}

// NewSchemaGenerator creates a [SchemaGenerator] for v. Doc comments are read
// from the Go sources below dir, which belong to the module base.
func NewSchemaGenerator(v any, base, dir string) *SchemaGenerator {
	r := &jsonschema.Reflector{
		ExpandedStruct:             true,
		RequiredFromJSONSchemaTags: true,
	}

	//nolint:errcheck // Comments are optional.
	_ = r.AddGoComments(base, dir)

	return &SchemaGenerator{r: r, v: v}
}

// Generate returns the indented JSON schema.
func (g *SchemaGenerator) Generate() ([]byte, error) {
	jss := g.r.Reflect(g.v)

	b, err := json.MarshalIndent(jss, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	return append(b, '\n'), nil
}
