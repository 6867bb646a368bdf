// Package speech turns SSML voice scripts into narration audio.
package speech

import (
	"context"
	"encoding/xml"
	"errors"
	"io"
	"regexp"
	"strings"
)

// Synthesizer renders an SSML document to MP3 audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, ssml string) ([]byte, error)
}

// ErrNoText is returned when a document contains nothing to speak.
var ErrNoText = errors.New("speech: document has no text")

var (
	anyTag     = regexp.MustCompile(`<[^<>]*>`)
	whitespace = regexp.MustCompile(`\s+`)
)

// PlainText extracts the spoken text of an SSML document. Engines without
// SSML support are given this instead of the markup.
func PlainText(ssml string) string {
	d := xml.NewDecoder(strings.NewReader(ssml))
	d.Strict = false

	var sb strings.Builder
	for {
		tok, err := d.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return collapse(anyTag.ReplaceAllString(ssml, " "))
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement, xml.EndElement:
			sb.WriteByte(' ')
		}
	}
	return collapse(sb.String())
}

func collapse(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}
