/*
* Utility functions for formatting output.
 */
package format

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Print string with max length in runes, truncating with ellipsis.
func Abbrev(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}

	return string(runes[:max-1]) + "…"
}

func GitEmail(email string) string {
	return fmt.Sprintf("<%s>", email)
}

// Integer with thousands separators, e.g. "12,345".
func Number(n int) string {
	return humanize.Comma(int64(n))
}
