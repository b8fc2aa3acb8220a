// Package yaml wraps [github.com/goccy/go-yaml] for reading and writing
// configuration files, and validates decoded documents against JSON schemas.
//
// Errors carry the YAML path or token they refer to, so they can be rendered
// with the offending source lines.
package yaml
