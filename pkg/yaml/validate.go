package yaml

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/goccy/go-yaml"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Validator validates decoded YAML against a JSON schema.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles schemaData, registered under url.
func NewValidator(url string, schemaData []byte) (*Validator, error) {
	var schema any

	err := json.Unmarshal(schemaData, &schema)
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()

	err = compiler.AddResource(url, schema)
	if err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}

	jss, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	return &Validator{schema: jss}, nil
}

func MustNewValidator(url string, schemaData []byte) *Validator {
	v, err := NewValidator(url, schemaData)
	if err != nil {
		panic(err)
	}

	return v
}

// Validate validates data, which must be the generic form produced by
// decoding into an any. Schema violations are returned as an [*Error] whose
// path points at the most specific failing location.
func (s *Validator) Validate(data any) error {
	err := s.schema.Validate(normalize(data))
	if err == nil {
		return nil
	}

	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return fmt.Errorf("schema validation: %w", err)
	}

	return &Error{
		Err:  validationErr,
		Path: pathFromLocation(mostSpecificLocation(validationErr)),
	}
}

// mostSpecificLocation returns the longest instance location among err and
// its causes.
func mostSpecificLocation(err *jsonschema.ValidationError) []string {
	longest := err.InstanceLocation

	for _, cause := range err.Causes {
		candidate := mostSpecificLocation(cause)
		if len(candidate) > len(longest) {
			longest = candidate
		}
	}

	return longest
}

func pathFromLocation(location []string) *yaml.Path {
	current := NewPathBuilder().Root()

	for _, part := range location {
		index, err := strconv.ParseUint(part, 10, 0)
		if err == nil {
			current = current.Index(uint(index))
		} else {
			current = current.Child(part)
		}
	}

	return current.Build()
}

// normalize converts the integer and map types goccy/go-yaml produces into
// the ones the schema validator understands.
func normalize(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = normalize(val)
		}

		return out

	case map[any]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[fmt.Sprint(k)] = normalize(val)
		}

		return out

	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = normalize(val)
		}

		return out

	case uint64:
		return json.Number(strconv.FormatUint(x, 10))

	case int64:
		return json.Number(strconv.FormatInt(x, 10))

	case int:
		return json.Number(strconv.Itoa(x))

	case float64:
		return json.Number(strconv.FormatFloat(x, 'g', -1, 64))
	}

	return v
}
