package config

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/macropower/hermitlink/api/v1beta1/kernelconfigs"
)

// ErrKernelConfig is returned when a kernel config file cannot be loaded.
var ErrKernelConfig = errors.New("kernel config")

// LoadKernelConfig loads the kernel config. An explicit path must exist.
// Otherwise the file is searched for upwards from searchFrom; when none is
// found the defaults are returned.
func LoadKernelConfig(explicit, searchFrom string) (*kernelconfigs.KernelConfig, error) {
	path := explicit
	if path == "" && searchFrom != "" {
		found, err := kernelconfigs.Find(searchFrom)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrKernelConfig, err)
		}

		path = found
	}

	if path == "" {
		slog.Debug("no kernel config found, using defaults", slog.String("search", searchFrom))

		return kernelconfigs.New(), nil
	}

	l, err := NewLoaderFromFile(path, kernelconfigs.New, kernelconfigs.DefaultValidator)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKernelConfig, err)
	}

	err = l.Validate()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrKernelConfig, path, err)
	}

	cfg, err := l.Load()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrKernelConfig, path, err)
	}

	cfg.SetPath(path)

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrKernelConfig, path, err)
	}

	slog.Debug("loaded kernel config", slog.String("path", path))

	return cfg, nil
}
