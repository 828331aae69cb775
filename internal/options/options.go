// Package options turns process_wrapper's raw flag values into an
// invocation plan: the executable, its arguments and environment, and what
// to do once it exits.
package options

import (
	"context"
	"os"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sayrer/rules-rust/internal/debug"
	"github.com/sayrer/rules-rust/internal/environ"
	"github.com/sayrer/rules-rust/internal/paramfile"
	"github.com/sayrer/rules-rust/internal/sources"
	"github.com/sayrer/rules-rust/internal/stamp"
	"github.com/sayrer/rules-rust/internal/subst"
	"github.com/sayrer/rules-rust/internal/telemetry"
)

// OutputFormat selects how rustc diagnostics are presented.
type OutputFormat string

const (
	OutputFormatUnset    OutputFormat = ""
	OutputFormatJSON     OutputFormat = "json"
	OutputFormatRendered OutputFormat = "rendered"
)

// ParseOutputFormat accepts "json" or "rendered". An explicitly empty value
// is rejected; leave the format out entirely to keep it unset.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputFormatJSON, OutputFormatRendered:
		return OutputFormat(s), nil
	}
	return "", configErrorf("", "invalid --rustc-output-format '%s'", s)
}

// Inputs holds flag values as given on the command line. Nothing here has
// been validated or substituted yet.
type Inputs struct {
	Subst              []string
	StableStatusFile   string
	VolatileStatusFile string
	EnvFiles           []string
	ArgFiles           []string
	TouchFile          string
	CopyOutput         []string
	StdoutFile         string
	StderrFile         string
	OutputFile         string

	// Boolean flags are enabled only by the exact value "true".
	RustcQuitOnRmeta                string
	RequireExplicitUnstableFeatures string

	// RustcOutputFormat is nil when the format was neither given nor
	// configured.
	RustcOutputFormat *string

	// ChildArgs is everything after "--": the executable and its arguments.
	ChildArgs []string
}

// CopyOutput names a file to copy after the child succeeds.
type CopyOutput struct {
	Source string `json:"source" yaml:"source" toml:"source"`
	Dest   string `json:"dest" yaml:"dest" toml:"dest"`
}

// Plan is a fully resolved invocation.
type Plan struct {
	Executable        string            `json:"executable" yaml:"executable" toml:"executable"`
	Args              []string          `json:"args" yaml:"args" toml:"args"`
	TouchFile         string            `json:"touch_file,omitempty" yaml:"touch_file,omitempty" toml:"touch_file,omitempty"`
	StdoutFile        string            `json:"stdout_file,omitempty" yaml:"stdout_file,omitempty" toml:"stdout_file,omitempty"`
	StderrFile        string            `json:"stderr_file,omitempty" yaml:"stderr_file,omitempty" toml:"stderr_file,omitempty"`
	OutputFile        string            `json:"output_file,omitempty" yaml:"output_file,omitempty" toml:"output_file,omitempty"`
	RustcQuitOnRmeta  bool              `json:"rustc_quit_on_rmeta" yaml:"rustc_quit_on_rmeta" toml:"rustc_quit_on_rmeta"`
	RustcOutputFormat OutputFormat      `json:"rustc_output_format,omitempty" yaml:"rustc_output_format,omitempty" toml:"rustc_output_format,omitempty"`
	ExpandedFiles     []string          `json:"expanded_files,omitempty" yaml:"expanded_files,omitempty" toml:"expanded_files,omitempty"`
	CopyOutput        *CopyOutput       `json:"copy_output,omitempty" yaml:"copy_output,omitempty" toml:"copy_output,omitempty"`
	Env               map[string]string `json:"env" yaml:"env" toml:"env"`
}

// Builder assembles plans. The zero value is not usable; see Default.
type Builder struct {
	FS      afero.Fs
	Getwd   func() (string, error)
	Environ func() []string
	// MaxParamDepth bounds nested @file references. Zero or negative means
	// unbounded.
	MaxParamDepth int
}

// Default returns a Builder backed by the real filesystem and process state.
func Default() *Builder {
	return &Builder{
		FS:            afero.NewOsFs(),
		Getwd:         os.Getwd,
		Environ:       os.Environ,
		MaxParamDepth: paramfile.DefaultMaxDepth,
	}
}

// Build resolves in into a Plan. Parameter files referenced by the child
// arguments are expanded on disk as a side effect. Any failure aborts the
// whole build and returns an *Error.
func (b *Builder) Build(ctx context.Context, in Inputs) (_ *Plan, retErr error) {
	ctx, span := telemetry.Tracer("github.com/sayrer/rules-rust/process_wrapper/options").
		Start(ctx, "options.build", trace.WithAttributes(
			attribute.Int("process_wrapper.child_args", len(in.ChildArgs)),
			attribute.Int("process_wrapper.arg_files", len(in.ArgFiles)),
		))
	defer func() {
		if retErr != nil {
			span.RecordError(retErr)
			span.SetStatus(codes.Error, retErr.Error())
		}
		span.End()
	}()

	mapping, err := subst.Parse(in.Subst, b.Getwd)
	if err != nil {
		return nil, wrap("--subst", err)
	}
	stable, err := stamp.Read(b.FS, in.StableStatusFile)
	if err != nil {
		return nil, wrap("reading --stable-status-file", err)
	}
	volatile, err := stamp.Read(b.FS, in.VolatileStatusFile)
	if err != nil {
		return nil, wrap("reading --volatile-status-file", err)
	}
	debug.Logf("%d substitutions, %d stable and %d volatile stamp entries\n",
		mapping.Len(), len(stable), len(volatile))

	fileEnv, err := sources.Env(b.FS, in.EnvFiles)
	if err != nil {
		return nil, wrap("reading --env-file", err)
	}
	fileArgs, err := sources.Args(b.FS, in.ArgFiles)
	if err != nil {
		return nil, wrap("reading --arg-file", err)
	}

	copyOutput, err := parseCopyOutput(in.CopyOutput)
	if err != nil {
		return nil, err
	}
	format := OutputFormatUnset
	if in.RustcOutputFormat != nil {
		if format, err = ParseOutputFormat(*in.RustcOutputFormat); err != nil {
			return nil, err
		}
	}

	var inherited []string
	if b.Environ != nil {
		inherited = b.Environ()
	}
	env := environ.Compose(inherited, fileEnv, stable, volatile, mapping)

	args := make([]string, 0, len(in.ChildArgs)+len(fileArgs)+1)
	args = append(args, in.ChildArgs...)
	args = append(args, fileArgs...)

	res, err := paramfile.New(b.FS, mapping, paramfile.WithMaxDepth(b.MaxParamDepth)).Expand(ctx, args)
	if err != nil {
		return nil, wrap("expanding parameter files", err)
	}
	// The injected allowlist flag must never become the executable.
	if len(res.Args) == 0 {
		return nil, configErrorf("", "at least one argument after -- is required (the child process path)")
	}
	args = paramfile.RequireExplicitUnstableFeatures(res.Args, res.AllowFeatures, isTrue(in.RequireExplicitUnstableFeatures))
	span.SetAttributes(attribute.Int("process_wrapper.expanded_files", len(res.Expanded)))
	debug.Logf("plan: %s with %d args, %d env vars\n", args[0], len(args)-1, len(env))

	return &Plan{
		Executable:        args[0],
		Args:              args[1:],
		Env:               env,
		TouchFile:         in.TouchFile,
		CopyOutput:        copyOutput,
		StdoutFile:        in.StdoutFile,
		StderrFile:        in.StderrFile,
		OutputFile:        in.OutputFile,
		RustcQuitOnRmeta:  isTrue(in.RustcQuitOnRmeta),
		RustcOutputFormat: format,
		ExpandedFiles:     res.Expanded,
	}, nil
}

func parseCopyOutput(tokens []string) (*CopyOutput, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	if len(tokens) != 2 {
		return nil, configErrorf("", "\"--copy-output\" needs exactly 2 parameters, %d provided", len(tokens))
	}
	if tokens[0] == tokens[1] {
		return nil, configErrorf("", "\"--copy-output\" source (%s) and dest (%s) need to be different.", tokens[0], tokens[1])
	}
	return &CopyOutput{Source: tokens[0], Dest: tokens[1]}, nil
}

func isTrue(s string) bool {
	return s == "true"
}
