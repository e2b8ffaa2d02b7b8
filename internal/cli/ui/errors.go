package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// ErrorLevel represents the severity of a message
type ErrorLevel int

const (
	ErrorLevelError ErrorLevel = iota
	ErrorLevelWarning
	ErrorLevelInfo
)

// ErrorOptions configures a formatted message
type ErrorOptions struct {
	Level        ErrorLevel
	Context      string
	Problem      string
	Suggestions  []string
	HelpCommands []string
	NoColor      bool
}

// FormatError renders a message like:
//
//	❌ TYPE NOT FOUND: Cannot find resource type 'Pst'.
//
//	   Did you mean: Post?
//
//	   → See declared types: restorm schema
func FormatError(opts ErrorOptions) string {
	var (
		b      strings.Builder
		head   *color.Color
		symbol string
	)
	switch opts.Level {
	case ErrorLevelWarning:
		head, symbol = color.New(color.FgYellow, color.Bold), "⚠️"
	case ErrorLevelInfo:
		head, symbol = color.New(color.FgCyan, color.Bold), "ℹ️"
	default:
		head, symbol = color.New(color.FgRed, color.Bold), "❌"
	}
	hint := color.New(color.FgYellow)
	cmd := color.New(color.FgCyan)
	if opts.NoColor {
		head.DisableColor()
		hint.DisableColor()
		cmd.DisableColor()
	}

	if opts.Context != "" {
		head.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(opts.Context), opts.Problem)
	} else {
		head.Fprintf(&b, "%s %s\n", symbol, opts.Problem)
	}
	if len(opts.Suggestions) > 0 {
		b.WriteString("\n")
		hint.Fprintf(&b, "   Did you mean: %s?\n", strings.Join(opts.Suggestions, ", "))
	}
	if len(opts.HelpCommands) > 0 {
		b.WriteString("\n")
		for _, c := range opts.HelpCommands {
			cmd.Fprintf(&b, "   → %s\n", c)
		}
	}
	return b.String()
}

// WriteError writes a formatted message to w
func WriteError(w io.Writer, opts ErrorOptions) {
	fmt.Fprint(w, FormatError(opts))
}

// TypeNotFoundError reports an unknown resource type name
func TypeNotFoundError(name string, suggestions []string, noColor bool) string {
	return FormatError(ErrorOptions{
		Context:      "type not found",
		Problem:      fmt.Sprintf("Cannot find resource type '%s'.", name),
		Suggestions:  suggestions,
		HelpCommands: []string{"See declared types: restorm schema"},
		NoColor:      noColor,
	})
}

// ConfigError reports an unusable configuration
func ConfigError(message string, noColor bool) string {
	return FormatError(ErrorOptions{
		Context:      "config",
		Problem:      message,
		HelpCommands: []string{"Create a config: restorm init", "Get help: restorm --help"},
		NoColor:      noColor,
	})
}

// FormatSuccess renders a success line
func FormatSuccess(message string, noColor bool) string {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	return green.Sprintf("✓ %s", message)
}

// WriteSuccess writes a success line to w
func WriteSuccess(w io.Writer, message string, noColor bool) {
	fmt.Fprintln(w, FormatSuccess(message, noColor))
}
