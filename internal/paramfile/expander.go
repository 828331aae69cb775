// Package paramfile rewrites @file parameter-file references in a rustc
// command line. Each referenced file is read, substituted line by line with
// nested @file references inlined, and written to a sibling
// "<file>.expanded" that replaces the original reference.
package paramfile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/metric"

	"github.com/sayrer/rules-rust/internal/debug"
	"github.com/sayrer/rules-rust/internal/lines"
	"github.com/sayrer/rules-rust/internal/subst"
	"github.com/sayrer/rules-rust/internal/telemetry"
)

// ExpandedSuffix is appended to a parameter file name to name its output.
const ExpandedSuffix = ".expanded"

// DefaultMaxDepth bounds nested @file references. A cycle between parameter
// files hits this limit instead of exhausting the stack.
const DefaultMaxDepth = 128

// ErrTooDeep is returned when nested @file references exceed the depth limit.
var ErrTooDeep = errors.New("parameter file nesting too deep")

var expandMetrics struct {
	files metric.Int64Counter
}

var expandMetricsOnce sync.Once

func initExpandMetrics() {
	m := telemetry.Meter("github.com/sayrer/rules-rust/process_wrapper/paramfile")
	expandMetrics.files, _ = m.Int64Counter("process_wrapper.paramfile.expanded",
		metric.WithDescription("Parameter files written with substitutions applied"),
		metric.WithUnit("{file}"),
	)
}

// Option configures an Expander.
type Option func(*Expander)

// WithMaxDepth sets the nesting limit for @file references. Zero or a
// negative value removes the limit.
func WithMaxDepth(n int) Option {
	return func(e *Expander) {
		e.maxDepth = n
	}
}

// Expander applies a substitution mapping to arguments and the parameter
// files they reference.
type Expander struct {
	fs       afero.Fs
	mapping  subst.Mapping
	maxDepth int
}

// New returns an Expander reading and writing through fs.
func New(fs afero.Fs, mapping subst.Mapping, opts ...Option) *Expander {
	e := &Expander{
		fs:       fs,
		mapping:  mapping,
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is the outcome of expanding an argument list.
type Result struct {
	// Args is the rewritten argument list.
	Args []string
	// AllowFeatures is true if an allow-features flag appeared anywhere,
	// including inside nested parameter files.
	AllowFeatures bool
	// Expanded lists the written .expanded files in argument order.
	Expanded []string
}

// Expand substitutes every argument and rewrites @file references. The
// substitution runs before the '@' check, so a parameter file path may
// itself contain placeholders.
func (e *Expander) Expand(ctx context.Context, args []string) (Result, error) {
	expandMetricsOnce.Do(initExpandMetrics)

	res := Result{Args: make([]string, 0, len(args))}
	for _, raw := range args {
		arg := e.mapping.Apply(raw)
		file, ok := strings.CutPrefix(arg, "@")
		if !ok {
			if IsAllowFeaturesFlag(arg) {
				res.AllowFeatures = true
			}
			res.Args = append(res.Args, arg)
			continue
		}

		target, found, err := e.expandFile(file)
		if err != nil {
			return Result{}, err
		}
		if found {
			res.AllowFeatures = true
		}
		if expandMetrics.files != nil {
			expandMetrics.files.Add(ctx, 1)
		}
		res.Args = append(res.Args, "@"+target)
		res.Expanded = append(res.Expanded, target)
	}
	return res, nil
}

// expandFile writes file's expansion to file+ExpandedSuffix and reports
// whether an allow-features flag was seen.
func (e *Expander) expandFile(file string) (target string, found bool, err error) {
	target = file + ExpandedSuffix
	w, err := lines.Create(e.fs, target)
	if err != nil {
		return "", false, fmt.Errorf("writing expanded parameter file: %w", err)
	}
	defer func() {
		if closeErr := w.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("writing expanded parameter file: %w", closeErr)
		}
	}()

	found, err = e.process(file, w, 1)
	if err != nil {
		return "", false, err
	}
	debug.Logf("expanded @%s into %s\n", file, target)
	return target, found, nil
}

func (e *Expander) process(file string, w *lines.Writer, depth int) (bool, error) {
	if e.maxDepth > 0 && depth > e.maxDepth {
		return false, fmt.Errorf("%w: %s is nested more than %d levels below %s",
			ErrTooDeep, file, e.maxDepth, w.Path())
	}
	entries, err := lines.Read(e.fs, file)
	if err != nil {
		return false, fmt.Errorf("reading parameter file: %w", err)
	}

	found := false
	for _, entry := range entries {
		arg := e.mapping.Apply(entry)
		if IsAllowFeaturesFlag(arg) {
			found = true
		}
		if nested, ok := strings.CutPrefix(arg, "@"); ok {
			nestedFound, err := e.process(nested, w, depth+1)
			if err != nil {
				return false, err
			}
			found = found || nestedFound
			continue
		}
		if err := w.WriteLine(arg); err != nil {
			return false, err
		}
	}
	return found, nil
}
