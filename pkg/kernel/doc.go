// Package kernel locates the Hermit kernel source tree and drives its build
// tool.
//
// The build tool is invoked as
//
//	cargo run --package=xtask --target-dir <out> -- build --arch <arch> \
//	    --profile <profile> --target-dir <out> [--instrument-mcount] \
//	    [--randomize-layout] --no-default-features [--features "<list>"]
//
// with the kernel root as working directory. The target directory is passed
// twice: once to cargo for building the tool itself, and once to the tool for
// the kernel.
package kernel
