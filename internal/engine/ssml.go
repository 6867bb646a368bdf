package engine

import (
	"encoding/xml"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// DefaultDenylist names markup tags the speech engine rejects.
var DefaultDenylist = []string{
	"emphasis",
	"amazon:effect",
	"amazon:auto-breaths",
	"amazon:breath",
	"amazon:domain",
	"amazon:emotion",
	"voice",
	"audio",
}

// SanitizeTags removes every open, close and self-closing tag whose name is
// in denylist (case-insensitive, attributes ignored). All other bytes,
// including the content between removed tags, are kept as they were.
//
// Tags are located with an XML tokenizer, so comments, CDATA and attribute
// values that merely look like tags are left alone. Documents the tokenizer
// rejects are sanitized by pattern matching instead.
func SanitizeTags(doc string, denylist []string) string {
	if len(denylist) == 0 {
		return doc
	}
	deny := make(map[string]bool, len(denylist))
	for _, name := range denylist {
		deny[strings.ToLower(name)] = true
	}

	out, err := sanitizeTokens(doc, deny)
	if err != nil {
		slog.Debug("markup not tokenizable, sanitizing by pattern", "error", err)
		return sanitizePattern(doc, denylist)
	}
	return out
}

func sanitizeTokens(doc string, deny map[string]bool) (string, error) {
	d := xml.NewDecoder(strings.NewReader(doc))
	d.Strict = false

	var sb strings.Builder
	var last int64
	for {
		start := d.InputOffset()
		tok, err := d.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		end := d.InputOffset()

		var name xml.Name
		switch t := tok.(type) {
		case xml.StartElement:
			name = t.Name
		case xml.EndElement:
			name = t.Name
		default:
			continue
		}
		if !deny[qualifiedName(name)] {
			continue
		}
		// The end token of a self-closing tag has an empty span.
		sb.WriteString(doc[last:start])
		last = end
	}
	sb.WriteString(doc[last:])
	return sb.String(), nil
}

func qualifiedName(n xml.Name) string {
	if n.Space == "" {
		return strings.ToLower(n.Local)
	}
	return strings.ToLower(n.Space + ":" + n.Local)
}

func sanitizePattern(doc string, denylist []string) string {
	for _, name := range denylist {
		re := regexp.MustCompile(`(?i)<\s*/?\s*` + regexp.QuoteMeta(name) + `(\s[^>]*)?/?>`)
		doc = re.ReplaceAllString(doc, "")
	}
	return doc
}
