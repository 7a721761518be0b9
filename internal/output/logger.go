// Package output renders CLI feedback.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Logger provides colored output functions for CLI feedback.
type Logger struct {
	out      io.Writer
	errOut   io.Writer
	noColor  bool
	verbose  bool
	jsonMode bool
}

// NewLogger creates a Logger writing to stdout and stderr. Colors are off
// when stdout is not a terminal.
func NewLogger() *Logger {
	l := &Logger{
		out:    os.Stdout,
		errOut: os.Stderr,
	}
	l.SetNoColor(!term.IsTerminal(int(os.Stdout.Fd())))
	return l
}

// SetOutput redirects both streams.
func (l *Logger) SetOutput(out, errOut io.Writer) {
	l.out = out
	l.errOut = errOut
}

// SetNoColor disables colored output.
func (l *Logger) SetNoColor(noColor bool) {
	l.noColor = noColor
	color.NoColor = noColor
}

// SetVerbose enables verbose logging.
func (l *Logger) SetVerbose(verbose bool) {
	l.verbose = verbose
}

// SetJSONMode enables JSON output mode (suppresses text output).
func (l *Logger) SetJSONMode(jsonMode bool) {
	l.jsonMode = jsonMode
}

// IsVerbose reports whether debug output is enabled.
func (l *Logger) IsVerbose() bool {
	return l.verbose
}

// IsJSON reports whether JSON output mode is enabled.
func (l *Logger) IsJSON() bool {
	return l.jsonMode
}

// Writer returns the standard output writer.
func (l *Logger) Writer() io.Writer {
	return l.out
}

// Slog returns a structured logger for library code. It writes to stderr at
// debug level in verbose mode and only warnings otherwise.
func (l *Logger) Slog() *slog.Logger {
	level := slog.LevelWarn
	if l.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(l.errOut, &slog.HandlerOptions{Level: level}))
}

// Info prints an informational message in default color.
func (l *Logger) Info(format string, args ...interface{}) {
	if l.jsonMode {
		return
	}
	fmt.Fprintf(l.out, format+"\n", args...)
}

// Warn prints a warning message in yellow.
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.jsonMode {
		return
	}
	yellow := color.New(color.FgYellow)
	yellow.Fprintf(l.errOut, "Warning: "+format+"\n", args...)
}

// Error prints an error message in red. It is printed in JSON mode too.
func (l *Logger) Error(format string, args ...interface{}) {
	red := color.New(color.FgRed)
	red.Fprintf(l.errOut, "Error: "+format+"\n", args...)
}

// Success prints a success message in green with checkmark.
func (l *Logger) Success(format string, args ...interface{}) {
	if l.jsonMode {
		return
	}
	green := color.New(color.FgGreen)
	green.Fprintf(l.out, "✓ "+format+"\n", args...)
}

// Debug prints a debug message if verbose mode is enabled.
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.jsonMode || !l.verbose {
		return
	}
	gray := color.New(color.FgHiBlack)
	gray.Fprintf(l.out, "[DEBUG] "+format+"\n", args...)
}

// Field prints an aligned "key: value" line with the key in cyan.
func (l *Logger) Field(key string, value interface{}) {
	if l.jsonMode {
		return
	}
	cyan := color.New(color.FgCyan)
	cyan.Fprintf(l.out, "  %-14s", key+":")
	fmt.Fprintf(l.out, " %v\n", value)
}

// JSON writes v as indented JSON to stdout. It is the only output in JSON
// mode.
func (l *Logger) JSON(v interface{}) error {
	enc := json.NewEncoder(l.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// SandboxErrorInfo describes a sandbox that failed to start.
type SandboxErrorInfo struct {
	Binary   string
	HomeDir  string
	LogLines []string
	Error    error
}

// PrintSandboxError prints the failure and the tail of the sandbox log.
func (l *Logger) PrintSandboxError(info *SandboxErrorInfo) {
	red := color.New(color.FgRed)
	sep := red.Sprint(strings.Repeat("─", 60))

	fmt.Fprintln(l.errOut, sep)
	red.Fprintf(l.errOut, "Sandbox failed: %v\n", info.Error)
	if info.Binary != "" {
		fmt.Fprintf(l.errOut, "  binary:  %s\n", info.Binary)
	}
	if info.HomeDir != "" {
		fmt.Fprintf(l.errOut, "  home:    %s\n", info.HomeDir)
	}
	if len(info.LogLines) > 0 {
		fmt.Fprintf(l.errOut, "  last %d log lines:\n", len(info.LogLines))
		for _, line := range info.LogLines {
			fmt.Fprintf(l.errOut, "    %s\n", line)
		}
	}
	fmt.Fprintln(l.errOut, sep)
}
