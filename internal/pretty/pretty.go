// Terminal styling for report output.
package pretty

import (
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
)

var (
	green = color.New(color.FgGreen)
	red   = color.New(color.FgRed)
	dim   = color.New(color.Faint)
	bold  = color.New(color.Bold)
)

func AllowDynamic(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Turns ANSI styling on or off for every styled string built afterwards.
func SetColorEnabled(enabled bool) {
	color.NoColor = !enabled
}

func ColorEnabled() bool {
	return !color.NoColor
}

func Green(s string) string {
	return green.Sprint(s)
}

func Red(s string) string {
	return red.Sprint(s)
}

func Dim(s string) string {
	return dim.Sprint(s)
}

func Bold(s string) string {
	return bold.Sprint(s)
}
