// Package sources loads the extra child arguments (--arg-file) and
// environment variables (--env-file) that Bazel passes through files.
package sources

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"github.com/sayrer/rules-rust/internal/lines"
)

// ErrMalformedEnv is returned for an environment file line without '='.
var ErrMalformedEnv = errors.New("environment file invalid")

// Args reads every file in paths, in order, and returns their entries
// concatenated. Each entry is one literal argument.
func Args(fs afero.Fs, paths []string) ([]string, error) {
	var args []string
	for _, path := range paths {
		entries, err := lines.Read(fs, path)
		if err != nil {
			return nil, fmt.Errorf("%w while processing args from file paths: %q", err, paths)
		}
		args = append(args, entries...)
	}
	return args, nil
}

// Env reads KEY=VALUE entries from every file in paths. Later lines and later
// files override earlier ones.
func Env(fs afero.Fs, paths []string) (map[string]string, error) {
	env := make(map[string]string)
	for _, path := range paths {
		entries, err := lines.Read(fs, path)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			key, value, ok := strings.Cut(entry, "=")
			if !ok {
				return nil, fmt.Errorf("%w: %s: line %q has no '='", ErrMalformedEnv, path, entry)
			}
			env[key] = value
		}
	}
	return env, nil
}
