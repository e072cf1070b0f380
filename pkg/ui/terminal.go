package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/muesli/termenv"
)

// Banner is printed at the top of interactive commands
const Banner = `
  ┌─────────────────────────────────────────┐
  │  flickrbackup · photoset mirror to disk │
  └─────────────────────────────────────────┘
`

// Output is where the Print helpers write; tests swap it for a buffer
var Output io.Writer = os.Stdout

var (
	cyan    = color.New(color.FgCyan)
	yellow  = color.New(color.FgYellow)
	red     = color.New(color.FgRed)
	green   = color.New(color.FgGreen)
	magenta = color.New(color.FgMagenta)
	dim     = color.New(color.Faint)
)

// DisableColor turns off ANSI styling for every helper and panel
func DisableColor() {
	color.NoColor = true
	lipgloss.SetColorProfile(termenv.Ascii)
}

func PrintBanner() {
	cyan.Fprint(Output, Banner)
}

// PrintError prints an error message in red, with an optional cause
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		red.Fprintf(Output, "%s: %v\n", msg, args[0])
		return
	}
	red.Fprintln(Output, msg)
}

func PrintSuccess(msg string) {
	green.Fprintln(Output, msg)
}

// PrintInfo prints a label/value pair
func PrintInfo(label string, value string) {
	fmt.Fprintf(Output, "%s: %s\n", cyan.Sprint(label), yellow.Sprint(value))
}

func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		yellow.Fprintf(Output, "%s: %v\n", msg, args[0])
		return
	}
	yellow.Fprintln(Output, msg)
}

func PrintHighlight(msg string) {
	magenta.Fprintln(Output, msg)
}

func PrintDim(msg string) {
	dim.Fprintln(Output, msg)
}
