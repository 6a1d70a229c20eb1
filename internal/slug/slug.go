package slug

import (
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Normalize lower-cases and trims name, then collapses every run of
// characters outside [a-z0-9] into a single '-'. Dashes left at either end
// by that collapse are dropped, so a name without any alphanumerics
// normalizes to "".
func Normalize(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// DeriveBase joins the normalized names with '-'. Two blank names yield "-",
// which callers may store as is.
func DeriveBase(name1, name2 string) string {
	return Normalize(name1) + "-" + Normalize(name2)
}
