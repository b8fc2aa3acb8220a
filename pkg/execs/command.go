package execs

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
)

var (
	// ErrCommandStart is returned when a command could not be started, e.g.
	// because the executable does not exist.
	ErrCommandStart = errors.New("start")

	// ErrCommandExecution is returned when a command exits unsuccessfully or is
	// terminated by a signal.
	ErrCommandExecution = errors.New("run")

	// ErrEmptyCommand is returned when a command is empty.
	ErrEmptyCommand = errors.New("empty command")
)

// Result represents the result of a command execution.
// Streams that were redirected via [Command.Stdout] or [Command.Stderr] are
// left empty.
type Result struct {
	Stdout string
	Stderr string
}

// EnvVar represents a static environment variable definition.
type EnvVar struct {
	// Name is the environment variable name.
	Name string `json:"name" jsonschema:"title=Name"`
	// Value is the environment variable value.
	Value string `json:"value,omitempty" jsonschema:"title=Value"`
}

// EnvFilter removes inherited environment variables by exact name or by name
// prefix.
type EnvFilter struct {
	// Prefix matches every variable whose name starts with it.
	Prefix string `json:"prefix,omitempty" jsonschema:"title=Prefix"`
	// Name matches one variable exactly.
	Name string `json:"name,omitempty" jsonschema:"title=Name"`
}

// Matches reports whether the variable named key is removed by the filter.
func (f EnvFilter) Matches(key string) bool {
	if f.Name != "" && key == f.Name {
		return true
	}

	return f.Prefix != "" && strings.HasPrefix(key, f.Prefix)
}

// Command describes a single subprocess invocation.
type Command struct {
	baseEnv map[string]string

	// Stdout receives the command's standard output when set.
	// Otherwise it is captured into [Result.Stdout].
	Stdout io.Writer `json:"-"`
	// Stderr receives the command's standard error when set.
	// Otherwise it is captured into [Result.Stderr].
	Stderr io.Writer `json:"-"`

	// Command is the command to execute.
	Command string `json:"command"`
	// Dir is the working directory. Empty means the caller's directory.
	Dir string `json:"dir,omitempty"`
	// Args contains the command line arguments.
	Args []string `json:"args,omitempty"`
	// Env contains variables set on top of the inherited environment.
	Env []EnvVar `json:"env,omitempty"`
	// Remove contains filters for inherited variables that must not reach the
	// subprocess.
	Remove []EnvFilter `json:"remove,omitempty"`
}

// NewCommand creates a new [Command] for the named executable.
// It accepts a base environment, which usually will be from [os.Environ].
func NewCommand(name string, baseEnv []string) *Command {
	c := &Command{Command: name}
	c.SetBaseEnv(baseEnv)

	return c
}

// SetBaseEnv replaces the inherited environment.
func (c *Command) SetBaseEnv(baseEnv []string) {
	c.baseEnv = make(map[string]string, len(baseEnv))
	for _, envVar := range baseEnv {
		if key, value, ok := strings.Cut(envVar, "="); ok && key != "" {
			c.baseEnv[key] = value
		}
	}
}

// AddArgs appends arguments.
func (c *Command) AddArgs(args ...string) {
	c.Args = append(c.Args, args...)
}

// AddEnvVar adds a single environment variable.
func (c *Command) AddEnvVar(envVar EnvVar) {
	c.Env = append(c.Env, envVar)
}

// RemoveEnv adds filters for inherited variables.
func (c *Command) RemoveEnv(filters ...EnvFilter) {
	c.Remove = append(c.Remove, filters...)
}

// GetEnv constructs the environment for command execution, sorted by name.
// Inherited variables matching any [EnvFilter] are dropped. Variables from
// [Command.Env] are applied last and are never filtered.
func (c *Command) GetEnv() []string {
	envMap := make(map[string]string, len(c.baseEnv))

	for key, value := range c.baseEnv {
		if c.removed(key) {
			continue
		}

		envMap[key] = value
	}

	for _, envVar := range c.Env {
		if envVar.Name == "" {
			continue
		}

		envMap[envVar.Name] = envVar.Value
	}

	env := make([]string, 0, len(envMap))
	for _, key := range slices.Sorted(maps.Keys(envMap)) {
		env = append(env, key+"="+envMap[key])
	}

	return env
}

// Clone returns a deep copy of the command.
func (c *Command) Clone() *Command {
	clone := *c
	clone.baseEnv = maps.Clone(c.baseEnv)
	clone.Args = slices.Clone(c.Args)
	clone.Env = slices.Clone(c.Env)
	clone.Remove = slices.Clone(c.Remove)

	return &clone
}

// String renders the command line, quoting arguments that a shell would split.
func (c *Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, quoteArg(c.Command))

	for _, arg := range c.Args {
		parts = append(parts, quoteArg(arg))
	}

	return strings.Join(parts, " ")
}

func (c *Command) removed(key string) bool {
	for _, f := range c.Remove {
		if f.Matches(key) {
			return true
		}
	}

	return false
}

func quoteArg(arg string) string {
	if arg == "" {
		return `""`
	}
	if strings.ContainsAny(arg, " \t\n\"'\\$`") {
		return strconv.Quote(arg)
	}

	return arg
}

// Key returns the executable base name followed by the first argument, e.g.
// "cargo tree". It is used to identify commands in logs and fakes.
func (c *Command) Key() string {
	name := c.Command
	if idx := strings.LastIndexAny(name, `/\`); idx != -1 {
		name = name[idx+1:]
	}
	if len(c.Args) == 0 {
		return name
	}

	return fmt.Sprintf("%s %s", name, c.Args[0])
}
