// Package config loads, validates, and resolves hermitlink configuration
// files.
package config
