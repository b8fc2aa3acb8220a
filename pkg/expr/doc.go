// Package expr provides CEL (Common Expression Language) functionality
// for evaluating preflight conditions against the build configuration.
//
// CEL expressions have access to variables:
//   - `os` (string): The target operating system
//   - `arch` (string): The target architecture
//   - `profile` (string): The host build profile
//   - `features` (list<string>): Enabled kernel features in allowlist order
//   - `instrument` (bool): Whether mcount instrumentation is enabled
//   - `randomizeLayout` (bool): Whether layout randomization is enabled
//   - `kernel` (string): The kernel source root
//
// And to the functions pathBase, pathDir, pathExt and pathExists.
package expr
