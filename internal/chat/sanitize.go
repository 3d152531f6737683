package chat

import "strings"

// markdownMarkers are stripped from assistant replies, longest heading
// marker first.
var markdownMarkers = []string{"**", "###", "##"}

// Sanitize removes markdown emphasis and heading markers and trims
// surrounding whitespace. Removal repeats until nothing changes, since
// deleting one marker can join the halves of another (e.g. "*#**#*");
// this makes Sanitize idempotent.
func Sanitize(text string) string {
	if text == "" {
		return ""
	}
	for {
		prev := text
		for _, m := range markdownMarkers {
			text = strings.ReplaceAll(text, m, "")
		}
		if text == prev {
			break
		}
	}
	return strings.TrimSpace(text)
}
