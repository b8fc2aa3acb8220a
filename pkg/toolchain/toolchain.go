// Package toolchain locates the inner build tool and prepares a clean
// environment for it.
package toolchain

import (
	"os"
	"path/filepath"

	"github.com/macropower/hermitlink/pkg/execs"
)

// Tool is the inner build tool.
const Tool = "cargo"

// Filters strip the outer toolchain's state from the inner build's
// environment: every CARGO* and RUST* variable, plus the dynamic linker path
// the outer toolchain sets for its own libraries.
var Filters = []execs.EnvFilter{
	{Prefix: "CARGO"},
	{Prefix: "RUST"},
	{Name: "LD_LIBRARY_PATH"},
}

// Resolve returns <installRoot>/bin/<tool> if it exists, and the bare tool
// name otherwise, leaving resolution to PATH. It never fails; a missing tool
// is reported when the command is started.
func Resolve(installRoot, tool string) string {
	if installRoot == "" {
		return tool
	}

	local := filepath.Join(installRoot, "bin", tool)
	if info, err := os.Stat(local); err == nil && !info.IsDir() {
		return local
	}

	return tool
}

// NewCommand returns a command for the inner build tool that inherits environ
// minus [Filters].
func NewCommand(installRoot string, environ []string) *execs.Command {
	cmd := execs.NewCommand(Resolve(installRoot, Tool), environ)
	cmd.RemoveEnv(Filters...)

	return cmd
}
