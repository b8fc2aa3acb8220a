// Package api contains helpers shared by the configuration kinds.
package api

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/macropower/hermitlink/pkg/yaml"
)

// ErrNotRegular is returned when a configuration path exists but is not a
// regular file.
var ErrNotRegular = errors.New("not a regular file")

// ReadFile reads a regular file.
func ReadFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: %w", path, ErrNotRegular)
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: Potential file inclusion via variable.
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

// MarshalYAML serializes an object to YAML bytes.
func MarshalYAML(obj any) ([]byte, error) {
	b := &bytes.Buffer{}

	enc := yaml.NewEncoder(b)

	err := enc.Encode(obj)
	if err != nil {
		return nil, fmt.Errorf("marshal yaml: %w", err)
	}

	err = enc.Close()
	if err != nil {
		return nil, fmt.Errorf("marshal yaml: %w", err)
	}

	return b.Bytes(), nil
}

// FindConfigFile searches for one of fileNames starting from targetPath and
// walking up the directory tree until the filesystem root. Names are tried in
// order within each directory. It returns an empty string if nothing is
// found.
func FindConfigFile(targetPath string, fileNames []string) (string, error) {
	absPath, err := filepath.Abs(targetPath)
	if err != nil {
		return "", fmt.Errorf("get absolute path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("stat path: %w", err)
	}

	searchDir := absPath
	if !info.IsDir() {
		searchDir = filepath.Dir(absPath)
	}

	for {
		for _, fileName := range fileNames {
			configPath := filepath.Join(searchDir, fileName)

			fi, statErr := os.Stat(configPath)
			if statErr == nil && fi.Mode().IsRegular() {
				return configPath, nil
			}
		}

		parent := filepath.Dir(searchDir)
		if parent == searchDir {
			break
		}

		searchDir = parent
	}

	return "", nil
}

// WriteDefaultFile writes defaultData to path. Existing files are left alone
// unless force is set, in which case they are renamed to a timestamped
// backup first.
func WriteDefaultFile(path string, defaultData []byte, force bool, kind string) error {
	fileExists := false

	info, err := os.Stat(path)
	switch {
	case err == nil && info.Mode().IsRegular():
		fileExists = true
	case err == nil && info.IsDir():
		return fmt.Errorf("%s: path is a directory", path)
	case err == nil:
		return fmt.Errorf("%s: %w", path, ErrNotRegular)
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("stat %s: %w", path, err)
	}

	if fileExists && !force {
		slog.Debug("file already exists, skipping write",
			slog.String("type", kind),
			slog.String("path", path),
		)

		return nil
	}

	err = os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return fmt.Errorf("create directories: %w", err)
	}

	if fileExists {
		backupPath := fmt.Sprintf("%s.%d.old", path, time.Now().UnixNano())
		slog.Info("backing up existing file",
			slog.String("type", kind),
			slog.String("path", backupPath),
		)

		err = os.Rename(path, backupPath)
		if err != nil {
			return fmt.Errorf("rename existing %s file to backup: %w", kind, err)
		}
	}

	slog.Info("write default file",
		slog.String("type", kind),
		slog.String("path", path),
	)

	err = os.WriteFile(path, defaultData, 0o644)
	if err != nil {
		return fmt.Errorf("write %s file: %w", kind, err)
	}

	return nil
}
