// Package buildenv reads the host build's environment into a typed
// [Config]. The environment is read exactly once, at the process boundary.
package buildenv

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/macropower/hermitlink/pkg/features"
)

// Host environment variables.
const (
	EnvTargetOS    = "CARGO_CFG_TARGET_OS"
	EnvTargetArch  = "CARGO_CFG_TARGET_ARCH"
	EnvProfile     = "PROFILE"
	EnvOutDir      = "OUT_DIR"
	EnvManifestDir = "CARGO_MANIFEST_DIR"
	EnvCargoHome   = "CARGO_HOME"
)

// KernelDirName is the subdirectory of OUT_DIR the inner build writes to.
const KernelDirName = "hermit_kernel"

// ErrMissingVariable is returned when a required host variable is unset.
var ErrMissingVariable = errors.New("missing environment variable")

// Profile is a host build profile name.
type Profile string

const (
	ProfileDebug Profile = "debug"
	ProfileDev   Profile = "dev"
)

// InnerName translates the host profile into the inner build's profile name.
// The host's "debug" is "dev" for the inner tool; every other profile keeps
// its name.
func (p Profile) InnerName() string {
	if p == ProfileDebug {
		return string(ProfileDev)
	}

	return string(p)
}

// Config is the typed build configuration.
type Config struct {
	Features        features.Set
	TargetOS        string
	TargetArch      string
	Profile         Profile
	OutDir          string
	ManifestDir     string
	CargoHome       string
	Instrument      bool
	RandomizeLayout bool
}

// FromEnviron builds a [Config] from environ, which usually is [os.Environ].
// It does not validate; see [Config.Validate].
func FromEnviron(environ []string) *Config {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		if key, value, ok := strings.Cut(kv, "="); ok {
			env[key] = value
		}
	}

	return &Config{
		TargetOS:        env[EnvTargetOS],
		TargetArch:      env[EnvTargetArch],
		Profile:         Profile(env[EnvProfile]),
		OutDir:          env[EnvOutDir],
		ManifestDir:     env[EnvManifestDir],
		CargoHome:       env[EnvCargoHome],
		Features:        features.FromEnviron(environ),
		Instrument:      features.Lookup(environ, features.Instrument),
		RandomizeLayout: features.Lookup(environ, features.RandomizeLayout),
	}
}

// Validate reports all missing required variables at once.
func (c *Config) Validate() error {
	var errs []error

	required := []struct {
		name  string
		value string
	}{
		{EnvTargetArch, c.TargetArch},
		{EnvProfile, string(c.Profile)},
		{EnvOutDir, c.OutDir},
		{EnvManifestDir, c.ManifestDir},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingVariable, r.name))
		}
	}

	return errors.Join(errs...)
}

// OutputDir is the inner build's target directory.
func (c *Config) OutputDir() string {
	return filepath.Join(c.OutDir, KernelDirName)
}

// LibraryDir is where the inner build places its artifacts for the configured
// architecture and host profile.
func (c *Config) LibraryDir() string {
	return filepath.Join(c.OutputDir(), c.TargetArch, string(c.Profile))
}

// Vars returns the configuration as CEL/template variables.
func (c *Config) Vars() map[string]any {
	return map[string]any{
		"os":              c.TargetOS,
		"arch":            c.TargetArch,
		"profile":         string(c.Profile),
		"features":        c.Features.Strings(),
		"instrument":      c.Instrument,
		"randomizeLayout": c.RandomizeLayout,
	}
}
