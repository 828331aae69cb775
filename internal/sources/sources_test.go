package sources

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memFS(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	mem := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(mem, name, []byte(content), 0o644))
	}
	return mem
}

func TestArgs(t *testing.T) {
	mem := memFS(t, map[string]string{
		"a.args": "--cfg=feature=\"std\"\n--edition=2021\n",
		"b.args": "-Cdebuginfo=2\n",
	})

	got, err := Args(mem, []string{"a.args", "b.args"})
	require.NoError(t, err)
	assert.Equal(t, []string{`--cfg=feature="std"`, "--edition=2021", "-Cdebuginfo=2"}, got)

	got, err = Args(mem, []string{"b.args", "a.args"})
	require.NoError(t, err)
	assert.Equal(t, "-Cdebuginfo=2", got[0], "file order must be preserved")
}

func TestArgsNoFiles(t *testing.T) {
	got, err := Args(afero.NewMemMapFs(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestArgsMissingFileReportsAllPaths(t *testing.T) {
	mem := memFS(t, map[string]string{"a.args": "x\n"})

	_, err := Args(mem, []string{"a.args", "gone.args"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "while processing args from file paths")
	assert.Contains(t, err.Error(), `"a.args"`)
	assert.Contains(t, err.Error(), `"gone.args"`)

	var pathErr *fs.PathError
	assert.True(t, errors.As(err, &pathErr))
}

func TestEnv(t *testing.T) {
	mem := memFS(t, map[string]string{
		"first.env":  "CARGO_PKG_NAME=foo\nRUSTFLAGS=-Dwarnings\nCARGO_PKG_NAME=bar\n",
		"second.env": "RUSTFLAGS=--cfg=x=y\nEMPTY=\n",
	})

	got, err := Env(mem, []string{"first.env", "second.env"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"CARGO_PKG_NAME": "bar",
		"RUSTFLAGS":      "--cfg=x=y",
		"EMPTY":          "",
	}, got)
}

func TestEnvMultilineValue(t *testing.T) {
	mem := memFS(t, map[string]string{
		"multi.env": "DESC=line one\\\nline two\n",
	})

	got, err := Env(mem, []string{"multi.env"})
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", got["DESC"])
}

func TestEnvMalformed(t *testing.T) {
	mem := memFS(t, map[string]string{"bad.env": "OK=1\nNOT_A_PAIR\n"})

	_, err := Env(mem, []string{"bad.env"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedEnv))
	assert.Contains(t, err.Error(), "bad.env")
}

func TestEnvMissingFile(t *testing.T) {
	_, err := Env(afero.NewMemMapFs(), []string{"nope.env"})
	require.Error(t, err)
	var pathErr *fs.PathError
	assert.True(t, errors.As(err, &pathErr))
}
