// Package execs runs the external tools hermitlink depends on: the kernel's
// build tool, the dependency-tree introspection, and symlink creation.
//
// Every invocation is synchronous. The caller's environment is inherited
// except for variables removed by [EnvFilter]s, which keeps the outer
// toolchain's settings out of the inner build.
package execs
