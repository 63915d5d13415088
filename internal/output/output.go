// Package output renders CLI messages and tables for itrack.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// UI writes prefixed, colored messages. Warnings and errors go to ErrOut.
type UI struct {
	Verbose bool
	DryRun  bool
	Out     io.Writer
	ErrOut  io.Writer
}

// New returns a UI bound to stdout and stderr.
func New() *UI {
	return &UI{Out: os.Stdout, ErrOut: os.Stderr}
}

var (
	cyan   = color.New(color.FgHiCyan).SprintFunc()
	green  = color.New(color.FgHiGreen).SprintFunc()
	yellow = color.New(color.FgHiYellow).SprintFunc()
	red    = color.New(color.FgHiRed).SprintFunc()
	blue   = color.New(color.FgHiBlue).SprintFunc()
)

// Message prefixes.
var (
	infoMark    = blue("i")
	successMark = green("✓")
	warningMark = yellow("⚠")
	errorMark   = red("✗")
	verboseMark = blue("  →")
)

func Cyan(s string) string  { return cyan(s) }
func Green(s string) string { return green(s) }
func Red(s string) string   { return red(s) }

// Workflow stages share a color across issues and projects: the first stage
// is green, the middle yellow and the last cyan.
var statusPalette = map[string]func(...any) string{
	"open":        green,
	"active":      green,
	"in progress": yellow,
	"on hold":     yellow,
	"done":        cyan,
	"completed":   cyan,
}

var priorityPalette = map[string]func(...any) string{
	"critical": red,
	"high":     yellow,
	"low":      cyan,
}

func paint(palette map[string]func(...any) string, s string) string {
	if fn, ok := palette[strings.ToLower(s)]; ok {
		return fn(s)
	}
	return s
}

// StatusColor colors an issue or project status. Unknown values are
// returned unchanged.
func StatusColor(status string) string { return paint(statusPalette, status) }

// PriorityColor colors an issue priority. Medium is left plain.
func PriorityColor(priority string) string { return paint(priorityPalette, priority) }

func emit(w io.Writer, mark, format string, a []any) {
	fmt.Fprintln(w, mark, fmt.Sprintf(format, a...))
}

func (u *UI) Info(format string, a ...any)    { emit(u.Out, infoMark, format, a) }
func (u *UI) Success(format string, a ...any) { emit(u.Out, successMark, format, a) }
func (u *UI) Warning(format string, a ...any) { emit(u.ErrOut, warningMark, format, a) }
func (u *UI) Error(format string, a ...any)   { emit(u.ErrOut, errorMark, format, a) }

// Notice prints an informational line to ErrOut, keeping Out clean for
// JSON and tables.
func (u *UI) Notice(format string, a ...any) { emit(u.ErrOut, infoMark, format, a) }

// VerboseLog prints only with --verbose.
func (u *UI) VerboseLog(format string, a ...any) {
	if u.Verbose {
		emit(u.Out, verboseMark, format, a)
	}
}

// DryRunMsg prints a warning tagged [DRY-RUN] only with --dry-run.
func (u *UI) DryRunMsg(format string, a ...any) {
	if u.DryRun {
		emit(u.ErrOut, warningMark, "[DRY-RUN] "+format, a)
	}
}

// JSON writes v to Out as indented JSON.
func (u *UI) JSON(v any) error {
	enc := json.NewEncoder(u.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table returns a borderless, left-aligned table writing to Out.
func (u *UI) Table(headers []string) *tablewriter.Table {
	t := tablewriter.NewTable(u.Out,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders:  tw.BorderNone,
			Settings: tw.Settings{Lines: tw.LinesNone, Separators: tw.SeparatorsNone},
		}),
		tablewriter.WithPadding(tw.Padding{Right: "  "}),
	)
	t.Header(headers)
	return t
}
