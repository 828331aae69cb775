package paramfile

import "strings"

// AllowFeaturesFlag is the rustc flag restricting which unstable features a
// crate may enable. With an empty value it allows none.
const AllowFeaturesFlag = "-Zallow-features="

// IsAllowFeaturesFlag reports whether arg sets the unstable-feature allowlist.
// Inside parameter files the flag is often split into "-Z" and
// "allow-features=...", so the bare form counts too.
func IsAllowFeaturesFlag(arg string) bool {
	return strings.HasPrefix(arg, AllowFeaturesFlag) || strings.HasPrefix(arg, "allow-features=")
}

// RequireExplicitUnstableFeatures appends an empty allowlist when require is
// set and no allowlist was found anywhere in the expanded command line.
// found must cover nested parameter files, not only top-level arguments.
func RequireExplicitUnstableFeatures(args []string, found, require bool) []string {
	if !require || found {
		return args
	}
	return append(args, AllowFeaturesFlag)
}
