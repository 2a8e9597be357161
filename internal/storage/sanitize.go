package storage

import "strings"

var likeEscaper = strings.NewReplacer(
	`\`, `\\`, // backslash first
	"%", `\%`,
	"_", `\_`,
)

// sanitizeSearchTerm escapes LIKE wildcards so a program name fragment is
// matched literally. Queries must declare ESCAPE '\'.
func sanitizeSearchTerm(term string) string {
	return likeEscaper.Replace(term)
}
