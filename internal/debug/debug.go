// Package debug provides opt-in diagnostic logging. Output goes to stderr
// only when PROCESS_WRAPPER_DEBUG is set or verbose mode is on, so the
// wrapped compiler's streams stay untouched by default.
package debug

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	enabled     = os.Getenv("PROCESS_WRAPPER_DEBUG") != ""
	verboseMode = false
	logMutex    sync.Mutex
	out         io.Writer = os.Stderr
)

func Enabled() bool {
	return enabled || verboseMode
}

// SetVerbose enables verbose/debug output
func SetVerbose(verbose bool) {
	verboseMode = verbose
}

// SetOutput redirects debug output. Passing nil restores stderr.
func SetOutput(w io.Writer) {
	logMutex.Lock()
	defer logMutex.Unlock()
	if w == nil {
		w = os.Stderr
	}
	out = w
}

func Logf(format string, args ...interface{}) {
	if !Enabled() {
		return
	}
	logMutex.Lock()
	defer logMutex.Unlock()
	fmt.Fprintf(out, "process_wrapper: "+format, args...)
}
