package adgen

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// boilerplatePhrase is appended by the shop backend to every description and
// has no place in ad copy. Matched literally.
const boilerplatePhrase = "Vaata lähemalt ballzy.eu."

// cleanText prepares free text (title, description, link) for re-emission:
// markup tags are stripped, HTML entities decoded, the known boilerplate
// phrase removed and the result trimmed.
func cleanText(s string) string {
	if s == "" {
		return ""
	}
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
		s = doc.Text()
	}
	s = strings.ReplaceAll(s, boilerplatePhrase, "")
	return strings.TrimSpace(s)
}
