// Package subst resolves --subst flags into an ordered substitution mapping
// and applies it to argument and environment text.
package subst

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// PwdToken is the reserved value that resolves to the current directory.
const PwdToken = "${pwd}"

// ErrMalformed is returned for a --subst entry that is not key=value.
var ErrMalformed = errors.New("malformed substitution")

// Pair is one placeholder and its replacement.
type Pair struct {
	Key   string
	Value string
}

// Placeholder returns the literal text the pair replaces.
func (p Pair) Placeholder() string {
	return "${" + p.Key + "}"
}

// Mapping is an ordered list of substitutions. Order matters: pairs are
// applied one after another and a replacement is never rescanned by the
// pair that produced it.
type Mapping []Pair

// Parse builds a Mapping from raw key=value entries. Each entry is split on
// its first '='. A value of exactly ${pwd} is replaced with the working
// directory reported by getwd, which is called at most once.
func Parse(raw []string, getwd func() (string, error)) (Mapping, error) {
	mapping := make(Mapping, 0, len(raw))
	var (
		cwd     string
		haveCwd bool
	)
	for _, entry := range raw {
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("%w: missing '=' in '%s'", ErrMalformed, entry)
		}
		if key == "" {
			return nil, fmt.Errorf("%w: empty key for substitution '%s'", ErrMalformed, entry)
		}
		if value == PwdToken {
			if !haveCwd {
				dir, err := resolvePwd(getwd)
				if err != nil {
					return nil, err
				}
				cwd, haveCwd = dir, true
			}
			value = cwd
		}
		mapping = append(mapping, Pair{Key: key, Value: value})
	}
	return mapping, nil
}

func resolvePwd(getwd func() (string, error)) (string, error) {
	dir, err := getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	if !utf8.ValidString(dir) {
		return "", fmt.Errorf("current directory not utf-8: %q", dir)
	}
	return dir, nil
}

// Apply replaces every ${key} occurrence in s, one pair at a time.
func (m Mapping) Apply(s string) string {
	for _, p := range m {
		s = strings.ReplaceAll(s, p.Placeholder(), p.Value)
	}
	return s
}

// Len reports the number of pairs.
func (m Mapping) Len() int {
	return len(m)
}
