package kernel

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ManifestFile is the manifest expected at the kernel source root.
const ManifestFile = "Cargo.toml"

// ErrKernelNotFound is returned when no kernel source tree exists at the
// configured root.
var ErrKernelNotFound = errors.New("kernel source not found")

// Source is a located kernel source tree. It is read-only once found.
type Source struct {
	root string
}

// Find validates root as a kernel source tree. The only check is that a
// manifest exists at the root.
func Find(root string) (*Source, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: no kernel directory configured", ErrKernelNotFound)
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrKernelNotFound, root, err)
	}

	info, err := os.Stat(filepath.Join(abs, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrKernelNotFound, abs, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s: %s is a directory", ErrKernelNotFound, abs, ManifestFile)
	}

	return &Source{root: abs}, nil
}

// Root returns the absolute kernel source root.
func (s *Source) Root() string {
	return s.root
}

// Manifest returns the path of the top-level manifest.
func (s *Source) Manifest() string {
	return filepath.Join(s.root, ManifestFile)
}

// Path joins rel onto the kernel root.
func (s *Source) Path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}

	return filepath.Join(s.root, rel)
}
