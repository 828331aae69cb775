// Command process_wrapper prepares and runs a compiler invocation for a
// build action. It resolves substitutions, stamps, environment and argument
// files, rewrites @file parameter files, then runs the child and performs
// its post-run actions.
//
//	process_wrapper [flags] -- /path/to/rustc args...
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sayrer/rules-rust/internal/config"
	"github.com/sayrer/rules-rust/internal/debug"
	"github.com/sayrer/rules-rust/internal/driver"
	"github.com/sayrer/rules-rust/internal/options"
	"github.com/sayrer/rules-rust/internal/telemetry"
	"github.com/sayrer/rules-rust/internal/ui"
)

// wrapperFlags holds raw flag values. Values stay strings until the plan
// builder validates them.
type wrapperFlags struct {
	subst                           []string
	stableStatusFile                string
	volatileStatusFile              string
	envFiles                        []string
	argFiles                        []string
	touchFile                       string
	copyOutput                      []string
	stdoutFile                      string
	stderrFile                      string
	outputFile                      string
	rustcQuitOnRmeta                string
	rustcOutputFormat               optionalString
	requireExplicitUnstableFeatures string

	maxParamDepth int
	configPath    string
	verbose       bool
}

// register defines the wrapper's flags on fs. Repeatable flags use
// StringArray so values containing commas are kept whole.
func (f *wrapperFlags) register(fs *pflag.FlagSet) {
	fs.StringArrayVar(&f.subst, "subst", nil, "Substitute ${key} with value in arguments and environment (key=value, repeatable; value ${pwd} is the working directory)")
	fs.StringVar(&f.stableStatusFile, "stable-status-file", "", "Workspace status file whose KEY VALUE lines replace {KEY} in the environment")
	fs.StringVar(&f.volatileStatusFile, "volatile-status-file", "", "Volatile workspace status file, applied after --stable-status-file")
	fs.StringArrayVar(&f.envFiles, "env-file", nil, "File(s) containing environment variables to pass to the child process")
	fs.StringArrayVar(&f.argFiles, "arg-file", nil, "File(s) containing command line arguments to pass to the child process")
	fs.StringVar(&f.touchFile, "touch-file", "", "Create this file after the child process runs successfully")
	fs.StringArrayVar(&f.copyOutput, "copy-output", nil, "Copy a file after the child process runs successfully (given twice: source, then destination)")
	fs.StringVar(&f.stdoutFile, "stdout-file", "", "Redirect subprocess stdout in this file")
	fs.StringVar(&f.stderrFile, "stderr-file", "", "Redirect subprocess stderr in this file")
	fs.StringVar(&f.outputFile, "output-file", "", "Log all unprocessed subprocess stderr in this file")
	fs.StringVar(&f.rustcQuitOnRmeta, "rustc-quit-on-rmeta", "", "If true, rustc is to be stopped once rmeta has been emitted (true|false)")
	fs.Var(&f.rustcOutputFormat, "rustc-output-format", "rustc diagnostics format when --rustc-quit-on-rmeta is set (json|rendered)")
	fs.StringVar(&f.requireExplicitUnstableFeatures, "require-explicit-unstable-features", "", "If true, add an empty -Zallow-features= when no allowlist is given (true|false)")
	fs.IntVar(&f.maxParamDepth, "max-param-depth", config.DefaultMaxParamDepth, "Maximum nesting of @file parameter files (0 for unlimited)")
	fs.StringVar(&f.configPath, "config", "", "Config file (YAML, TOML or JSON; default: $"+config.ConfigEnvVar+")")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "Enable verbose/debug output on stderr")
}

func (f *wrapperFlags) inputs(childArgs []string) options.Inputs {
	return options.Inputs{
		Subst:                           f.subst,
		StableStatusFile:                f.stableStatusFile,
		VolatileStatusFile:              f.volatileStatusFile,
		EnvFiles:                        f.envFiles,
		ArgFiles:                        f.argFiles,
		TouchFile:                       f.touchFile,
		CopyOutput:                      f.copyOutput,
		StdoutFile:                      f.stdoutFile,
		StderrFile:                      f.stderrFile,
		OutputFile:                      f.outputFile,
		RustcQuitOnRmeta:                f.rustcQuitOnRmeta,
		RustcOutputFormat:               f.rustcOutputFormat.ptr(),
		RequireExplicitUnstableFeatures: f.requireExplicitUnstableFeatures,
		ChildArgs:                       childArgs,
	}
}

// optionalString is a string flag that remembers whether it was given, so an
// explicit empty value is told apart from an absent one.
type optionalString struct {
	value string
	set   bool
}

func (o *optionalString) String() string { return o.value }
func (o *optionalString) Type() string   { return "string" }

func (o *optionalString) Set(s string) error {
	o.value, o.set = s, true
	return nil
}

// ptr returns nil when the flag was never set.
func (o *optionalString) ptr() *string {
	if !o.set {
		return nil
	}
	v := o.value
	return &v
}

// app carries everything one invocation needs.
type app struct {
	flags    wrapperFlags
	builder  *options.Builder
	driver   *driver.Driver
	exitCode int
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "process_wrapper [flags] -- executable [args...]",
		Short: "Prepare and run a compiler invocation",
		Long: `process_wrapper resolves ${key} substitutions, {KEY} workspace status stamps,
environment and argument files, and @file parameter files, then runs the
executable given after "--" with the resulting arguments and environment.`,
		Args:              validateChildArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.preRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := a.buildPlan(cmd, args)
			if err != nil {
				return err
			}
			code, err := a.driver.Run(cmd.Context(), plan)
			if err != nil {
				return err
			}
			a.exitCode = code
			return nil
		},
	}

	a.flags.register(rootCmd.PersistentFlags())

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return options.FlagError(err)
	})

	rootCmd.AddCommand(newPlanCmd(a), newVersionCmd())
	return rootCmd
}

// validateChildArgs rejects positional arguments that are not after "--".
func validateChildArgs(cmd *cobra.Command, args []string) error {
	dash := cmd.ArgsLenAtDash()
	if (dash == -1 && len(args) > 0) || dash > 0 {
		return options.FlagError(fmt.Errorf("unexpected argument %q before --", args[0]))
	}
	return nil
}

// childArgs returns everything after "--".
func childArgs(cmd *cobra.Command, args []string) []string {
	if dash := cmd.ArgsLenAtDash(); dash >= 0 {
		return args[dash:]
	}
	return nil
}

func (a *app) preRun(cmd *cobra.Command, _ []string) error {
	if err := config.Initialize(a.flags.configPath); err != nil {
		return err
	}
	a.applyConfigOverrides(cmd)

	if err := telemetry.Init(cmd.Context(), "process_wrapper", Version); err != nil {
		debug.Logf("%s telemetry disabled: %v\n", ui.RenderWarn("warning:"), err)
	}
	return nil
}

// applyConfigOverrides fills flags not given on the command line from the
// config file and PROCESS_WRAPPER_* environment. Flags always win.
func (a *app) applyConfigOverrides(cmd *cobra.Command) {
	flags := cmd.Flags()

	if !flags.Changed(config.KeyVerbose) {
		a.flags.verbose = config.GetBool(config.KeyVerbose)
	}
	debug.SetVerbose(a.flags.verbose)

	if !flags.Changed(config.KeyRequireExplicitUnstableFeatures) {
		a.flags.requireExplicitUnstableFeatures = config.GetString(config.KeyRequireExplicitUnstableFeatures)
	} else {
		config.LogOverride(config.KeyRequireExplicitUnstableFeatures, a.flags.requireExplicitUnstableFeatures)
	}
	if !flags.Changed(config.KeyRustcOutputFormat) {
		if config.IsSet(config.KeyRustcOutputFormat) {
			_ = a.flags.rustcOutputFormat.Set(config.GetString(config.KeyRustcOutputFormat))
		}
	} else {
		config.LogOverride(config.KeyRustcOutputFormat, a.flags.rustcOutputFormat.value)
	}
	if !flags.Changed(config.KeyMaxParamDepth) {
		a.flags.maxParamDepth = config.GetInt(config.KeyMaxParamDepth)
	} else {
		config.LogOverride(config.KeyMaxParamDepth, a.flags.maxParamDepth)
	}
}

func (a *app) buildPlan(cmd *cobra.Command, args []string) (*options.Plan, error) {
	a.builder.MaxParamDepth = a.flags.maxParamDepth
	return a.builder.Build(cmd.Context(), a.flags.inputs(childArgs(cmd, args)))
}

func newApp(stdout, stderr io.Writer) *app {
	d := driver.Default()
	d.Stdout, d.Stderr = stdout, stderr
	return &app{
		builder: options.Default(),
		driver:  d,
	}
}

// run executes one invocation and returns the process exit code: the
// child's exit code on success, 1 on any wrapper error.
func run(ctx context.Context, a *app, args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer telemetry.Shutdown(context.Background())

	if args == nil {
		// cobra falls back to os.Args for nil.
		args = []string{}
	}
	rootCmd := newRootCmd(a)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, ui.FormatError(err))
		return 1
	}
	return a.exitCode
}

func main() {
	os.Exit(run(context.Background(), newApp(os.Stdout, os.Stderr), os.Args[1:], os.Stdout, os.Stderr))
}
