package engine

import (
	"regexp"
	"strings"
)

var anyFence = regexp.MustCompile("(?s)```[^\\n`]*\\r?\\n(.*?)```")

// StripCodeFence returns the body of the first code fence tagged lang, or of
// the first fence of any kind. Text without a fence is returned unchanged.
func StripCodeFence(text, lang string) string {
	if lang != "" {
		langFence := regexp.MustCompile("(?is)```" + regexp.QuoteMeta(lang) + "[ \\t]*\\r?\\n(.*?)```")
		if m := langFence.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	if m := anyFence.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}

const defaultXMLDecl = `<?xml version="1.0"?>`

var speakOpen = regexp.MustCompile(`(?i)<speak[\s>/]`)

// EnsureXMLEnvelope makes doc start with an XML declaration and contain a
// <speak> root, adding whichever is missing.
func EnsureXMLEnvelope(doc string) string {
	doc = strings.TrimSpace(strings.TrimPrefix(doc, "\ufeff"))

	decl := defaultXMLDecl
	body := doc
	if len(doc) >= 5 && strings.EqualFold(doc[:5], "<?xml") {
		if end := strings.Index(doc, "?>"); end >= 0 {
			decl = doc[:end+2]
			body = strings.TrimSpace(doc[end+2:])
		}
	}
	if !speakOpen.MatchString(body) {
		body = "<speak>\n" + body + "\n</speak>"
	}
	return decl + "\n" + body
}

// Speaking rate bounds in words per minute.
const (
	minWordsPerMinute = 130
	maxWordsPerMinute = 150
)

// WordTarget returns the narration word range for a clip of the given
// length. The bounds scale linearly with seconds and are left unrounded;
// callers round when presenting them.
func WordTarget(seconds float64) (minWords, maxWords float64) {
	if seconds <= 0 {
		return 0, 0
	}
	minutes := seconds / 60
	return minWordsPerMinute * minutes, maxWordsPerMinute * minutes
}
