package pathmatch

import "strings"

// NormalizePath folds backslashes to forward slashes and collapses
// repeated separators, but deliberately does not trim a trailing
// separator: the directory-prefix matcher (rule 4 of the compiler)
// depends on that separator surviving normalisation.
func NormalizePath(p string) string {
	if p == "" {
		return p
	}
	p = strings.ReplaceAll(p, "\\", "/")
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return p
}
