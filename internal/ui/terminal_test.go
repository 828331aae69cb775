package ui

import (
	"errors"
	"os"
	"strings"
	"testing"
)

// unsetEnv clears key for the duration of the test.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	os.Unsetenv(key)
}

func clearColorEnv(t *testing.T) {
	t.Helper()
	unsetEnv(t, "NO_COLOR")
	unsetEnv(t, "CLICOLOR")
	unsetEnv(t, "CLICOLOR_FORCE")
}

func TestShouldUseColor(t *testing.T) {
	tests := []struct {
		name            string
		env             map[string]string
		wantColor       bool
		skipTTYDepCheck bool // Some cases depend on whether stderr is a TTY
	}{
		{
			name:      "NO_COLOR disables color",
			env:       map[string]string{"NO_COLOR": "1"},
			wantColor: false,
		},
		{
			name:      "NO_COLOR with empty value still disables",
			env:       map[string]string{"NO_COLOR": ""},
			wantColor: false,
		},
		{
			name:      "CLICOLOR=0 disables color",
			env:       map[string]string{"CLICOLOR": "0"},
			wantColor: false,
		},
		{
			name:      "CLICOLOR_FORCE enables color even in non-TTY",
			env:       map[string]string{"CLICOLOR_FORCE": "1"},
			wantColor: true,
		},
		{
			name:      "NO_COLOR takes precedence over CLICOLOR_FORCE",
			env:       map[string]string{"NO_COLOR": "1", "CLICOLOR_FORCE": "1"},
			wantColor: false,
		},
		{
			name:            "nothing set falls back to the TTY check",
			skipTTYDepCheck: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearColorEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			got := ShouldUseColor()
			if tt.skipTTYDepCheck {
				if got != IsTerminal() {
					t.Errorf("ShouldUseColor() = %v, want IsTerminal() = %v", got, IsTerminal())
				}
				return
			}
			if got != tt.wantColor {
				t.Errorf("ShouldUseColor() = %v, want %v", got, tt.wantColor)
			}
		})
	}
}

func TestIsTerminal(t *testing.T) {
	// Under go test stderr is usually not a TTY; this only checks it doesn't panic.
	got := IsTerminal()
	t.Logf("IsTerminal() = %v", got)
}

func TestFormatErrorPlain(t *testing.T) {
	clearColorEnv(t)
	t.Setenv("NO_COLOR", "1")

	got := FormatError(errors.New("at least one argument after -- is required"))
	if got != "Error: at least one argument after -- is required" {
		t.Errorf("FormatError() = %q", got)
	}
}

func TestFormatErrorForcedColor(t *testing.T) {
	clearColorEnv(t)
	t.Setenv("CLICOLOR_FORCE", "1")

	got := FormatError(errors.New("boom"))
	if !strings.Contains(got, "\x1b[") {
		t.Errorf("FormatError() = %q, want ANSI styling", got)
	}
	if !strings.HasSuffix(got, " boom") {
		t.Errorf("FormatError() = %q, want message after the prefix", got)
	}
}

func TestRenderHelpersPlain(t *testing.T) {
	clearColorEnv(t)
	t.Setenv("NO_COLOR", "1")

	for name, fn := range map[string]func(string) string{
		"RenderFail":  RenderFail,
		"RenderWarn":  RenderWarn,
		"RenderMuted": RenderMuted,
	} {
		if got := fn("text"); got != "text" {
			t.Errorf("%s(\"text\") = %q, want unstyled", name, got)
		}
	}
}
