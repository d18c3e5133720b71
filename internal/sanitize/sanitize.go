// Package sanitize cleans journal text on its way in and bounds what is
// forwarded to the gem appraiser. Entry content keeps its meaning and most
// of its shape: only control characters and runaway blank lines go. Text
// headed for a model prompt, or coming back from one, is stripped harder
// so a journal cannot smuggle in instructions.
package sanitize

import (
	"regexp"
	"strings"

	"github.com/nvandessel/geomood/internal/constants"
)

// MaxContentLength is the maximum allowed entry length, in runes.
const MaxContentLength = 5000

// MaxWisdomFieldLength caps each field of an appraisal card, in runes.
const MaxWisdomFieldLength = 200

// Pre-compiled regular expressions for performance.
var (
	// reXMLTag matches XML/HTML tags including those with attributes and self-closing tags.
	// It also matches XML processing instructions like <?xml ...?>.
	reXMLTag = regexp.MustCompile(`<[/?!]?[a-zA-Z][a-zA-Z0-9]*(?:\s+[^>]*)?/?>|<\?[^?]*\?>`)

	// reMarkdownHeading matches markdown headings at the start of a line (# , ## , etc.).
	reMarkdownHeading = regexp.MustCompile(`(?m)^#{1,6}\s+`)

	// reTripleBacktick matches triple (or more) backtick sequences used in code fences.
	reTripleBacktick = regexp.MustCompile("```+")

	// reExcessiveNewlines matches 3 or more consecutive newlines.
	reExcessiveNewlines = regexp.MustCompile(`\n{3,}`)

	// reWhitespaceRun matches any run of whitespace, newlines included.
	reWhitespaceRun = regexp.MustCompile(`\s+`)
)

// SanitizeEntryContent prepares journal text for storage. The pipeline:
//  1. Strip null bytes and ASCII control characters (except \n, \t)
//  2. Normalize \r\n to \n
//  3. Collapse excessive newlines (3+ -> 2)
//  4. Trim leading/trailing whitespace
//  5. Truncate to MaxContentLength runes
func SanitizeEntryContent(input string) string {
	if input == "" {
		return ""
	}

	s := strings.ReplaceAll(input, "\r\n", "\n")
	s = stripControlChars(s)
	s = reExcessiveNewlines.ReplaceAllString(s, "\n\n")
	s = strings.TrimSpace(s)
	return truncateRunes(s, MaxContentLength)
}

// SanitizePromptExcerpt bounds entry content for inclusion in an appraisal
// prompt: tags and code fences are removed, headings are flattened, and the
// result is cut to constants.MaxPromptExcerptLen UTF-16 units.
func SanitizePromptExcerpt(input string) string {
	if input == "" {
		return ""
	}

	s := stripControlChars(input)
	s = reXMLTag.ReplaceAllString(s, "")
	s = reMarkdownHeading.ReplaceAllString(s, "")
	s = reTripleBacktick.ReplaceAllString(s, "`")
	s = strings.ReplaceAll(s, `"`, "'")
	s = strings.TrimSpace(s)
	return TruncateUnits(s, constants.MaxPromptExcerptLen)
}

// SanitizeWisdomField cleans one field of a model-generated appraisal card.
// It yields a single line with no markup.
func SanitizeWisdomField(input string) string {
	if input == "" {
		return ""
	}

	s := stripControlChars(input)
	s = reXMLTag.ReplaceAllString(s, "")
	s = reTripleBacktick.ReplaceAllString(s, "")
	s = reWhitespaceRun.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	return truncateRunes(s, MaxWisdomFieldLength)
}

// TruncateUnits returns the longest prefix of s that fits in n UTF-16
// units without splitting a surrogate pair.
func TruncateUnits(s string, n int) string {
	units := 0
	for i, r := range s {
		w := 1
		if r >= 0x10000 {
			w = 2
		}
		if units+w > n {
			return s[:i]
		}
		units += w
	}
	return s
}

func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// stripControlChars removes ASCII control characters (0x00-0x1F) and DEL
// from the string, except for newline (0x0A) and tab (0x09).
func stripControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r < 0x20 && r != '\n' && r != '\t') || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
