package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/abdul-hamid-achik/hitpad/packages/core/env"
	"github.com/abdul-hamid-achik/hitpad/packages/http"
)

// truncate shortens long values for one-line listings.
func truncate(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func statusColor(code uint16) *color.Color {
	switch {
	case code >= 500:
		return color.New(color.FgRed, color.Bold)
	case code >= 400:
		return color.New(color.FgYellow, color.Bold)
	case code >= 300:
		return color.New(color.FgCyan, color.Bold)
	default:
		return color.New(color.FgGreen, color.Bold)
	}
}

// FormatResponse prints the status line followed by the rendered response.
// Outside verbose mode only the body is printed after the status line.
func (f *ConsoleFormatter) FormatResponse(rec *http.Response) {
	cyan := color.New(color.FgCyan).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	meta := Summarize(rec)
	fmt.Fprintf(f.writer, "%s %s %s %s\n",
		statusColor(rec.StatusCode).Sprintf("%d", rec.StatusCode),
		rec.Method,
		rec.URL,
		cyan(fmt.Sprintf("(%dms, %d B)", meta.Duration.Milliseconds(), meta.Size)),
	)

	if f.verbose {
		fmt.Fprintf(f.writer, "%s\n\n", faint(strings.Join(meta.Lines(), "  ")))
		fmt.Fprintln(f.writer, Render(rec))
		return
	}

	fmt.Fprintln(f.writer, Body(rec))
}

// FormatCaptures lists variables captured from a response.
func (f *ConsoleFormatter) FormatCaptures(envName string, captured []string) {
	if len(captured) == 0 {
		return
	}
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s → %s\n", green("✓"), strings.Join(captured, ", "), envName)
}

// FormatEnvironments prints one line per binding.
func (f *ConsoleFormatter) FormatEnvironments(bindings []*env.Binding, active string) {
	bold := color.New(color.Bold).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	if len(bindings) == 0 {
		fmt.Fprintln(f.writer, faint("no environments"))
		return
	}

	for _, b := range bindings {
		marker := " "
		name := b.Name
		if b.Name == active {
			marker = "*"
			name = bold(b.Name)
		}
		line := fmt.Sprintf("%s %3d  %s  %s", marker, b.ID, name, faint(fmt.Sprintf("%d vars", len(b.Variables))))
		if u, ok := b.BaseURL(); ok {
			line += "  " + faint(u)
		}
		fmt.Fprintln(f.writer, line)
	}
}

// FormatEnvironment prints a binding's variables in declaration order.
func (f *ConsoleFormatter) FormatEnvironment(b *env.Binding) {
	bold := color.New(color.Bold).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	fmt.Fprintf(f.writer, "%s %s\n", bold(b.Name), faint(fmt.Sprintf("(id %d)", b.ID)))
	if u, ok := b.BaseURL(); ok {
		fmt.Fprintf(f.writer, "  base url: %s\n", u)
	}
	for _, v := range b.Variables {
		fmt.Fprintf(f.writer, "  %s = %s\n", v.Key, truncate(v.Value, 80))
	}
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatWarning(format string, args ...any) {
	yellow := color.New(color.FgYellow).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", yellow("Warning:"), fmt.Sprintf(format, args...))
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("hitpad"), version)
}
