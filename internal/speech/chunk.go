package speech

import (
	"encoding/xml"
	"io"
	"regexp"
	"strings"
)

var sentenceEnd = regexp.MustCompile(`[^.!?]+[.!?]*\s*`)

const (
	speakOpen  = "<speak>"
	speakClose = "</speak>"
)

// SplitSSML breaks doc into standalone <speak> documents of at most limit
// bytes each. Splits fall between the direct children of <speak> (paragraphs,
// sentences, breaks). A child longer than the limit on its own is spoken as
// plain text split at sentence and then word boundaries. A document within
// the limit is returned unchanged.
func SplitSSML(doc string, limit int) []string {
	if len(doc) <= limit {
		return []string{doc}
	}
	budget := limit - len(speakOpen) - len(speakClose)

	units, ok := speakChildren(doc)
	if !ok {
		units = []string{escapeText(PlainText(doc))}
	}

	var (
		chunks []string
		cur    strings.Builder
	)
	flush := func() {
		if strings.TrimSpace(cur.String()) != "" {
			chunks = append(chunks, speakOpen+cur.String()+speakClose)
		}
		cur.Reset()
	}
	for _, u := range units {
		if len(u) > budget {
			flush()
			for _, part := range splitText(PlainText(u), budget) {
				chunks = append(chunks, speakOpen+part+speakClose)
			}
			continue
		}
		if cur.Len()+len(u) > budget {
			flush()
		}
		cur.WriteString(u)
	}
	flush()
	return chunks
}

// speakChildren returns the raw markup of each direct child of the <speak>
// element, text runs included. ok is false when the document cannot be
// tokenized or has no <speak> element.
func speakChildren(doc string) (units []string, ok bool) {
	d := xml.NewDecoder(strings.NewReader(doc))
	d.Strict = false

	inSpeak := false
	depth := 0
	var unitStart int64
	for {
		start := d.InputOffset()
		tok, err := d.RawToken()
		if err == io.EOF {
			return units, inSpeak
		}
		if err != nil {
			return nil, false
		}
		end := d.InputOffset()

		switch t := tok.(type) {
		case xml.StartElement:
			if !inSpeak {
				inSpeak = t.Name.Local == "speak"
				continue
			}
			if depth == 0 {
				unitStart = start
			}
			depth++
		case xml.EndElement:
			if !inSpeak {
				continue
			}
			if depth == 0 {
				return units, true
			}
			depth--
			if depth == 0 {
				units = append(units, doc[unitStart:end])
			}
		default:
			if inSpeak && depth == 0 {
				units = append(units, doc[start:end])
			}
		}
	}
}

// splitText packs escaped sentences, then words, into parts of at most
// limit bytes.
func splitText(text string, limit int) []string {
	var (
		parts []string
		cur   strings.Builder
	)
	add := func(piece string) {
		if cur.Len() > 0 && cur.Len()+len(piece) > limit {
			parts = append(parts, strings.TrimSpace(cur.String()))
			cur.Reset()
		}
		cur.WriteString(piece)
	}
	for _, sentence := range sentenceEnd.FindAllString(text, -1) {
		esc := escapeText(sentence)
		if len(esc) <= limit {
			add(esc)
			continue
		}
		for _, w := range strings.Fields(sentence) {
			add(escapeText(w) + " ")
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		parts = append(parts, s)
	}
	return parts
}

func escapeText(s string) string {
	var sb strings.Builder
	xml.EscapeText(&sb, []byte(s))
	return sb.String()
}
