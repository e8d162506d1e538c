package manifest

import (
	"fmt"
	goruntime "runtime"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// Describes a project: the service it produces, the toolchain that compiles
// it, and its direct dependencies.
type Manifest struct {
	Service      Service      `hcl:"service,block"`
	Toolchain    Toolchain    `hcl:"toolchain,block"`
	Dependencies []Dependency `hcl:"dependency,block"`
}

// Identity of the packaged service.
type Service struct {
	Name       string   `hcl:"name"`
	Entrypoint []string `hcl:"entrypoint"`
	Port       int      `hcl:"port,optional"`
}

// Commands used to compile and post-process the service binary.
//
// Compile and Strip are shell command lines. Output is the path of the
// compiled binary relative to the source tree. The per-mode flags are
// exported to the compile command's environment depending on the selected
// linking mode.
type Toolchain struct {
	Compile      string `hcl:"compile"`
	Output       string `hcl:"output"`
	Strip        string `hcl:"strip"`
	StaticFlags  string `hcl:"static_flags,optional"`
	DynamicFlags string `hcl:"dynamic_flags,optional"`
}

// A direct dependency pinned to an exact version.
type Dependency struct {
	Name    string `hcl:"name,label"`
	Version string `hcl:"version"`
}

// Parses the manifest file at the given path.
//
// Expressions in the manifest may reference the `os` and `arch` variables,
// which resolve to the build host's operating system and architecture
// (e.g., a toolchain output of "target/${arch}/release/app").
func Load(path string) (*Manifest, error) {
	parser := hclparse.NewParser()

	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: %s", ErrParse, diags.Error())
	}

	var m Manifest
	diags = gohcl.DecodeBody(file.Body, evalContext(), &m)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: %s", ErrParse, diags.Error())
	}

	if err := m.validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Returns the evaluation context available to manifest expressions.
func evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"os":   cty.StringVal(goruntime.GOOS),
			"arch": cty.StringVal(goruntime.GOARCH),
		},
	}
}

// Checks structural constraints not expressible through decoding.
func (m *Manifest) validate() error {
	if m.Service.Name == "" {
		return fmt.Errorf("%w: service name is required", ErrParse)
	}
	if len(m.Service.Entrypoint) == 0 {
		return fmt.Errorf("%w: service entrypoint is required", ErrParse)
	}
	if m.Toolchain.Compile == "" {
		return fmt.Errorf("%w: toolchain compile command is required", ErrParse)
	}
	if m.Toolchain.Output == "" {
		return fmt.Errorf("%w: toolchain output path is required", ErrParse)
	}
	if m.Toolchain.Strip == "" {
		return fmt.Errorf("%w: toolchain strip command is required", ErrParse)
	}

	seen := make(map[string]bool, len(m.Dependencies))
	for _, dep := range m.Dependencies {
		if dep.Version == "" {
			return fmt.Errorf("%w: dependency %q has no version", ErrParse, dep.Name)
		}
		if seen[dep.Name] {
			return fmt.Errorf("%w: duplicate dependency %q", ErrParse, dep.Name)
		}
		seen[dep.Name] = true
	}

	return nil
}
