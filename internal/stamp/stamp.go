// Package stamp reads Bazel workspace status files (stable-status.txt and
// volatile-status.txt) and applies their {KEY} substitutions.
package stamp

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"github.com/sayrer/rules-rust/internal/lines"
)

// ErrMalformed is returned for a status line without a value separator.
var ErrMalformed = errors.New("wrong workspace status file format")

// Entry is one KEY VALUE line of a status file.
type Entry struct {
	Key   string
	Value string
}

// Mapping is the ordered content of one or more status files.
type Mapping []Entry

// Read parses the status file at path. An empty path yields an empty mapping.
func Read(fs afero.Fs, path string) (Mapping, error) {
	if path == "" {
		return Mapping{}, nil
	}
	entries, err := lines.Read(fs, path)
	if err != nil {
		return nil, err
	}

	mapping := make(Mapping, 0, len(entries))
	for _, line := range entries {
		idx := strings.IndexAny(line, " \t")
		if idx <= 0 {
			return nil, fmt.Errorf("%w for %q in %s", ErrMalformed, line, path)
		}
		mapping = append(mapping, Entry{
			Key:   line[:idx],
			Value: strings.TrimSpace(line[idx+1:]),
		})
	}
	return mapping, nil
}

// Concat joins status mappings in order; stable status goes first.
func Concat(mappings ...Mapping) Mapping {
	var n int
	for _, m := range mappings {
		n += len(m)
	}
	out := make(Mapping, 0, n)
	for _, m := range mappings {
		out = append(out, m...)
	}
	return out
}

// Apply replaces every {KEY} occurrence in s, one entry at a time.
func (m Mapping) Apply(s string) string {
	for _, e := range m {
		s = strings.ReplaceAll(s, "{"+e.Key+"}", e.Value)
	}
	return s
}
