package normalize

import (
	"regexp"
	"strings"
)

// corporateSuffixes are the entity-form tokens the wizard rejects inside a
// legal name. Only the first match (in this order) is stripped.
var corporateSuffixes = []string{"Corp", "Inc", "LLC", "LC", "PLLC", "PA"}

// disallowedNameChars matches characters the wizard's name inputs refuse.
// Word characters, whitespace, hyphens, and ampersands survive.
var disallowedNameChars = regexp.MustCompile(`[^\w\s\-&]`)

// LegalName prepares a legal business name for the wizard's name input:
// strips the first matching corporate suffix from the end
// (case-insensitive), then removes disallowed characters.
// "Example Holdings, LLC" becomes "Example Holdings".
func LegalName(name string) string {
	cleaned := strings.TrimSpace(name)
	upper := strings.ToUpper(cleaned)
	for _, suffix := range corporateSuffixes {
		if strings.HasSuffix(upper, strings.ToUpper(suffix)) {
			cleaned = strings.TrimSpace(cleaned[:len(cleaned)-len(suffix)])
			break
		}
	}
	return strings.TrimSpace(disallowedNameChars.ReplaceAllString(cleaned, ""))
}
