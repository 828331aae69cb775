package paramfile

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// expandAndEnforce mirrors how the plan builder combines the two steps.
func expandAndEnforce(t *testing.T, mem afero.Fs, args []string, enforce bool) []string {
	t.Helper()
	res, err := New(mem, nil).Expand(context.Background(), args)
	require.NoError(t, err)
	return RequireExplicitUnstableFeatures(res.Args, res.AllowFeatures, enforce)
}

func TestEnforceAllowFeaturesFlagUserDidntSay(t *testing.T) {
	got := expandAndEnforce(t, afero.NewMemMapFs(), []string{"rustc"}, true)
	assert.Equal(t, []string{"rustc", "-Zallow-features="}, got)
}

func TestEnforceAllowFeaturesFlagUserRequestedSomething(t *testing.T) {
	args := []string{"rustc", "-Zallow-features=whitespace_instead_of_curly_braces"}
	got := expandAndEnforce(t, afero.NewMemMapFs(), args, true)
	assert.Equal(t, args, got)
}

func TestEnforceAllowFeaturesFlagUserRequestedSomethingInParamFile(t *testing.T) {
	mem := memFS(t, map[string]string{
		"rustc_params": "-Zallow-features=whitespace_instead_of_curly_braces\n",
	})

	got := expandAndEnforce(t, mem, []string{"rustc", "@rustc_params"}, true)
	assert.Equal(t, []string{"rustc", "@rustc_params.expanded"}, got)
	assert.Equal(t,
		"-Zallow-features=whitespace_instead_of_curly_braces\n",
		readFile(t, mem, "rustc_params.expanded"))
}

func TestEnforceNotRequested(t *testing.T) {
	got := expandAndEnforce(t, afero.NewMemMapFs(), []string{"rustc"}, false)
	assert.Equal(t, []string{"rustc"}, got)
}

func TestIsAllowFeaturesFlag(t *testing.T) {
	tests := []struct {
		arg  string
		want bool
	}{
		{"-Zallow-features=", true},
		{"-Zallow-features=a,b", true},
		{"allow-features=a", true},
		{"-Zallow-features", false},
		{"--allow-features=a", false},
		{"-Zunstable-options", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsAllowFeaturesFlag(tt.arg), "IsAllowFeaturesFlag(%q)", tt.arg)
	}
}
