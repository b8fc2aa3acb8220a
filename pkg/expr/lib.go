package expr

import (
	"os"
	"path/filepath"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/ext"
)

type lib struct{}

func (lib) CompileOptions() []cel.EnvOption {
	return []cel.EnvOption{
		ext.Strings(),
		ext.Lists(),
		ext.Sets(),

		// `pathBase` returns the last element of the path.
		// Example: pathBase(kernel) == "kernel".
		cel.Function("pathBase",
			cel.Overload("path_base", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(stringFunc("pathBase", filepath.Base)),
			),
		),

		// `pathDir` returns all but the last element of the path.
		cel.Function("pathDir",
			cel.Overload("path_dir", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(stringFunc("pathDir", filepath.Dir)),
			),
		),

		// `pathExt` returns the file extension of the path.
		cel.Function("pathExt",
			cel.Overload("path_ext", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(stringFunc("pathExt", filepath.Ext)),
			),
		),

		// `pathExists` reports whether the path exists.
		// Example: pathExists(kernel + "/rust-toolchain.toml").
		cel.Function("pathExists",
			cel.Overload("path_exists", []*cel.Type{cel.StringType}, cel.BoolType,
				cel.UnaryBinding(func(path ref.Val) ref.Val {
					s, ok := path.(types.String)
					if !ok {
						return types.NewErr("pathExists: invalid string value")
					}

					_, err := os.Stat(string(s))

					return types.Bool(err == nil)
				}),
			),
		),
	}
}

func (lib) ProgramOptions() []cel.ProgramOption {
	return []cel.ProgramOption{}
}

func stringFunc(name string, fn func(string) string) func(ref.Val) ref.Val {
	return func(v ref.Val) ref.Val {
		s, ok := v.(types.String)
		if !ok {
			return types.NewErr("%s: invalid string value", name)
		}

		return types.String(fn(string(s)))
	}
}
