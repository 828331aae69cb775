// Package driver runs the child process described by an invocation plan and
// performs its post-run actions.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sayrer/rules-rust/internal/debug"
	"github.com/sayrer/rules-rust/internal/options"
	"github.com/sayrer/rules-rust/internal/telemetry"
)

// renameRetries bounds retries of the final copy-output rename. Windows can
// refuse a rename while another process (an indexer, antivirus) holds the
// destination open.
const renameRetries = 3

// Driver executes plans. Stdout and Stderr receive the child's streams
// unless the plan redirects them to files.
type Driver struct {
	FS     afero.Fs
	Stdout io.Writer
	Stderr io.Writer
}

// Default returns a Driver using the real filesystem and the wrapper's own
// standard streams.
func Default() *Driver {
	return &Driver{
		FS:     afero.NewOsFs(),
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Run starts the child with exactly the plan's environment and waits for it.
// The returned code is the child's exit code. Post-run actions (touch file,
// copy output) happen only when the child exits 0. A non-nil error means the
// child could not be run or a post-run action failed.
func (d *Driver) Run(ctx context.Context, plan *options.Plan) (exitCode int, retErr error) {
	ctx, span := telemetry.Tracer("github.com/sayrer/rules-rust/process_wrapper/driver").
		Start(ctx, "driver.exec", trace.WithAttributes(
			attribute.String("process_wrapper.executable", plan.Executable),
			attribute.Int("process_wrapper.args", len(plan.Args)),
		))
	defer func() {
		span.SetAttributes(attribute.Int("process_wrapper.exit_code", exitCode))
		if retErr != nil {
			span.RecordError(retErr)
			span.SetStatus(codes.Error, retErr.Error())
		}
		span.End()
	}()

	// #nosec G204 -- the executable is the build action's own command line
	cmd := exec.CommandContext(ctx, plan.Executable, plan.Args...)
	cmd.Env = envList(plan.Env)

	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	stdout := d.Stdout
	if plan.StdoutFile != "" {
		f, err := d.FS.Create(plan.StdoutFile)
		if err != nil {
			return 1, fmt.Errorf("opening --stdout-file: %w", err)
		}
		closers = append(closers, f)
		stdout = f
	}
	stderr := d.Stderr
	if plan.StderrFile != "" {
		f, err := d.FS.Create(plan.StderrFile)
		if err != nil {
			return 1, fmt.Errorf("opening --stderr-file: %w", err)
		}
		closers = append(closers, f)
		stderr = f
	}
	if plan.OutputFile != "" {
		f, err := d.FS.Create(plan.OutputFile)
		if err != nil {
			return 1, fmt.Errorf("opening --output-file: %w", err)
		}
		closers = append(closers, f)
		stderr = io.MultiWriter(stderr, f)
	}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	debug.Logf("running %s with %d args\n", plan.Executable, len(plan.Args))
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return 1, fmt.Errorf("running %s: %w", plan.Executable, err)
		}
		code := exitErr.ExitCode()
		if code < 0 {
			// Killed by a signal.
			code = 1
		}
		debug.Logf("%s exited with code %d\n", plan.Executable, code)
		return code, nil
	}
	debug.Logf("%s exited with code 0\n", plan.Executable)

	if plan.TouchFile != "" {
		if err := d.touch(plan.TouchFile); err != nil {
			return 1, err
		}
	}
	if plan.CopyOutput != nil {
		if err := d.copyFile(ctx, plan.CopyOutput.Source, plan.CopyOutput.Dest); err != nil {
			return 1, err
		}
	}
	return 0, nil
}

func (d *Driver) touch(path string) error {
	f, err := d.FS.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating --touch-file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("creating --touch-file: %w", err)
	}
	return nil
}

// copyFile writes src to a temporary sibling of dst and renames it into
// place, so dst is never observed half-written.
func (d *Driver) copyFile(ctx context.Context, src, dst string) (retErr error) {
	in, err := d.FS.Open(src)
	if err != nil {
		return fmt.Errorf("copying output: %w", err)
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("copying output: %w", err)
	}

	tmp, err := afero.TempFile(d.FS, filepath.Dir(dst), "."+filepath.Base(dst)+".tmp*")
	if err != nil {
		return fmt.Errorf("copying output: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if retErr != nil {
			_ = d.FS.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("copying output to %s: %w", dst, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("copying output to %s: %w", dst, err)
	}
	if err := d.FS.Chmod(tmpName, info.Mode().Perm()); err != nil {
		return fmt.Errorf("copying output to %s: %w", dst, err)
	}

	if err := d.renameWithRetry(ctx, tmpName, dst); err != nil {
		return fmt.Errorf("copying output to %s: %w", dst, err)
	}
	debug.Logf("copied %s to %s\n", src, dst)
	return nil
}

func newRenameBackoff() backoff.BackOff {
	// BackOff implementations are stateful; always return a fresh instance.
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	return backoff.WithMaxRetries(bo, renameRetries)
}

func (d *Driver) renameWithRetry(ctx context.Context, oldPath, newPath string) error {
	return backoff.Retry(func() error {
		err := d.FS.Rename(oldPath, newPath)
		if err != nil && runtime.GOOS != "windows" {
			// Only Windows file locking is transient.
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(newRenameBackoff(), ctx))
}

// envList flattens env into sorted KEY=VALUE entries.
func envList(env map[string]string) []string {
	list := make([]string, 0, len(env))
	for k, v := range env {
		list = append(list, k+"="+v)
	}
	sort.Strings(list)
	return list
}
