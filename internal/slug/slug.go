// Package slug derives the identifier shared by the map popups and the
// generated state pages.
package slug

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var lower = cases.Lower(language.Und)

// Make returns name with spaces replaced by underscores, lowercased.
// "Andaman and Nicobar Islands" becomes "andaman_and_nicobar_islands".
func Make(name string) string {
	return lower.String(strings.ReplaceAll(name, " ", "_"))
}

// URL joins base and the slug of name. base is used as given, so it should
// end with a slash.
func URL(base, name string) string {
	return base + Make(name)
}
