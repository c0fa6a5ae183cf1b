package storage

import "strings"

var likeEscaper = strings.NewReplacer(
	"\\", "\\\\", // backslash first
	"%", "\\%",
	"_", "\\_",
)

// sanitizeSearchTerm escapes LIKE wildcards so term matches literally in a
// pattern declared with ESCAPE '\'.
func sanitizeSearchTerm(term string) string {
	return likeEscaper.Replace(term)
}
