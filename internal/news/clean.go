package news

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// minDescriptionLen discards descriptions that carry no real text after
// cleaning.
const minDescriptionLen = 3

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// entityReplacer decodes exactly the entity set feeds are known to emit.
var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&quot;", `"`,
	"&#39;", "'",
	"&lt;", "<",
	"&gt;", ">",
)

// CleanDescription strips markup tags, decodes the fixed entity set,
// collapses internal whitespace, and returns nil when fewer than
// minDescriptionLen characters remain.
func CleanDescription(raw string) *string {
	text := tagPattern.ReplaceAllString(raw, "")
	text = entityReplacer.Replace(text)
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) < minDescriptionLen {
		return nil
	}
	return &text
}
