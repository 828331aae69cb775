// Package lines reads and writes the newline-delimited files process_wrapper
// consumes: argument files, environment files, stamp files and parameter files.
//
// All access goes through an injected afero.Fs so callers can swap the real
// filesystem for an in-memory one.
package lines

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/afero"
)

// Read returns the entries of the file at path.
//
// Empty lines are skipped. A line ending in an odd number of backslashes is
// continued on the next line: the last backslash turns into a literal newline
// and every pair of trailing backslashes collapses into one. A continuation
// still open at end of file is dropped.
func Read(fs afero.Fs, path string) ([]string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	var (
		entries []string
		pending strings.Builder
	)
	scanner := bufio.NewScanner(f)
	// Long rustc flag lines (e.g. --remap-path-prefix lists) exceed the default.
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		trailing := len(line) - len(strings.TrimRight(line, `\`))
		pending.WriteString(line[:len(line)-trailing])
		pending.WriteString(strings.Repeat(`\`, trailing/2))
		if trailing%2 == 1 {
			pending.WriteByte('\n')
			continue
		}
		entries = append(entries, pending.String())
		pending.Reset()
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return entries, nil
}

// Writer appends newline-terminated entries to a file.
type Writer struct {
	path string
	file afero.File
	buf  *bufio.Writer
}

// Create truncates or creates path and returns a Writer for it.
func Create(fs afero.Fs, path string) (*Writer, error) {
	f, err := fs.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	return &Writer{path: path, file: f, buf: bufio.NewWriter(f)}, nil
}

// Path returns the file the writer targets.
func (w *Writer) Path() string {
	return w.path
}

// WriteLine writes s followed by a newline.
func (w *Writer) WriteLine(s string) error {
	if _, err := w.buf.WriteString(s); err != nil {
		return fmt.Errorf("failed to write %s: %w", w.path, err)
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write %s: %w", w.path, err)
	}
	return nil
}

// Close flushes buffered entries and closes the file. It is safe to call
// more than once; only the first call does any work.
func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}
	flushErr := w.buf.Flush()
	closeErr := w.file.Close()
	w.file = nil
	if flushErr != nil {
		return fmt.Errorf("failed to write %s: %w", w.path, flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close %s: %w", w.path, closeErr)
	}
	return nil
}
