// Package v1beta1 contains the v1beta1 API types for hermitlink configuration.
package v1beta1

import (
	"errors"
	"fmt"
	"slices"

	"github.com/invopop/jsonschema"
)

// APIVersion is the current API version for all hermitlink configuration
// kinds.
const APIVersion = "hermitlink.macropower.dev/v1beta1"

// ValidAPIVersions contains all valid API versions.
var ValidAPIVersions = []string{APIVersion}

// ErrTypeMeta is returned for an unknown apiVersion or kind.
var ErrTypeMeta = errors.New("invalid type metadata")

// TypeMeta contains the API version and kind metadata common to all config
// types.
type TypeMeta struct {
	// APIVersion specifies the API version for this configuration.
	APIVersion string `json:"apiVersion" jsonschema:"title=API Version,required"`
	// Kind defines the type of configuration.
	Kind string `json:"kind" jsonschema:"title=Kind,required"`
}

// GetAPIVersion returns the API version.
func (tm TypeMeta) GetAPIVersion() string {
	return tm.APIVersion
}

// GetKind returns the kind.
func (tm TypeMeta) GetKind() string {
	return tm.Kind
}

// Check reports whether the metadata names one of apiVersions and kinds.
func (tm TypeMeta) Check(apiVersions, kinds []string) error {
	if !slices.Contains(apiVersions, tm.APIVersion) {
		return fmt.Errorf("%w: apiVersion %q, want one of %v", ErrTypeMeta, tm.APIVersion, apiVersions)
	}

	if !slices.Contains(kinds, tm.Kind) {
		return fmt.Errorf("%w: kind %q, want one of %v", ErrTypeMeta, tm.Kind, kinds)
	}

	return nil
}

// Object is the interface that all config types implement.
type Object interface {
	GetAPIVersion() string
	GetKind() string
	EnsureDefaults()
}

// ExtendSchemaWithEnums adds apiVersion and kind enum constraints to a JSON
// schema.
func ExtendSchemaWithEnums(jss *jsonschema.Schema, apiVersions, kinds []string) {
	extendEnum(jss, "apiVersion", "API Version", apiVersions)
	extendEnum(jss, "kind", "Kind", kinds)
}

func extendEnum(jss *jsonschema.Schema, property, title string, values []string) {
	prop, ok := jss.Properties.Get(property)
	if !ok {
		panic(property + " property not found in schema")
	}

	for _, v := range values {
		prop.OneOf = append(prop.OneOf, &jsonschema.Schema{
			Type:  "string",
			Const: v,
			Title: title,
		})
	}

	_, _ = jss.Properties.Set(property, prop)
}
