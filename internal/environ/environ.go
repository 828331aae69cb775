// Package environ builds the child process environment.
package environ

import (
	"strings"

	"github.com/sayrer/rules-rust/internal/stamp"
	"github.com/sayrer/rules-rust/internal/subst"
)

// Parse converts KEY=VALUE entries, as returned by os.Environ, into a map.
// Entries with an empty name (Windows keeps per-drive "=C:" variables) and
// entries without '=' are dropped. Later duplicates win.
func Parse(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}
	return env
}

// Compose overlays fromFiles on the inherited environment and then rewrites
// every value: first {KEY} stamp substitutions (stable before volatile), then
// ${key} substitutions. Keys are never rewritten. Both passes also apply to
// inherited values.
func Compose(inherited []string, fromFiles map[string]string, stable, volatile stamp.Mapping, mapping subst.Mapping) map[string]string {
	env := Parse(inherited)
	for k, v := range fromFiles {
		env[k] = v
	}

	stamps := stamp.Concat(stable, volatile)
	for k, v := range env {
		env[k] = mapping.Apply(stamps.Apply(v))
	}
	return env
}
