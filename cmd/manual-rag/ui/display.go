package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/fatih/color"
)

var (
	okStyle      = color.New(color.FgGreen)
	failStyle    = color.New(color.FgRed)
	warnStyle    = color.New(color.FgYellow, color.Bold)
	noteStyle    = color.New(color.FgCyan)
	headingStyle = color.New(color.FgMagenta, color.Bold)
	labelStyle   = color.New(color.FgYellow)
)

// status prints one marked line. Failures and warnings go to stderr so that
// stdout stays clean when it is piped.
func status(w io.Writer, c *color.Color, mark, format string, args []interface{}) {
	_, _ = c.Fprintf(w, "%s %s\n", mark, fmt.Sprintf(format, args...))
}

// Message prints an unmarked line on stdout.
func Message(format string, args ...interface{}) {
	fmt.Fprintf(os.Stdout, format+"\n", args...)
}

func Error(format string, args ...interface{}) {
	status(os.Stderr, failStyle, "✗", format, args)
}

func Success(format string, args ...interface{}) {
	status(os.Stdout, okStyle, "✓", format, args)
}

func Warning(format string, args ...interface{}) {
	status(os.Stderr, warnStyle, "⚠", format, args)
}

func Info(format string, args ...interface{}) {
	status(os.Stdout, noteStyle, "ℹ", format, args)
}

func Newline() {
	fmt.Fprintln(os.Stdout)
}

// Section prints title underlined with '=' to its display width in runes.
func Section(title string) {
	_, _ = headingStyle.Fprintf(os.Stdout, "\n%s\n", title)
	fmt.Fprintln(os.Stdout, strings.Repeat("=", utf8.RuneCountInString(title)))
	fmt.Fprintln(os.Stdout)
}

// KeyValue prints an indented "key: value" line.
func KeyValue(key, value string) {
	_, _ = labelStyle.Fprintf(os.Stdout, "  %s: ", key)
	fmt.Fprintln(os.Stdout, value)
}

// Table displays data in a formatted table.
func Table(headers []string, rows [][]string) {
	WriteTable(os.Stdout, headers, rows)
}

// WriteTable renders headers, a dashed rule and rows as aligned columns.
func WriteTable(w io.Writer, headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	line := func(cells []string) { fmt.Fprintln(tw, strings.Join(cells, "\t")) }

	rule := make([]string, len(headers))
	for i, h := range headers {
		rule[i] = strings.Repeat("-", len(h))
	}
	line(headers)
	line(rule)
	for _, row := range rows {
		line(row)
	}
	_ = tw.Flush()
}

// FormatDuration formats a duration in a human-readable way.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	d = d.Round(time.Second)

	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
