package ingest

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// Records carry pseudo-XML section tags where only the opening tag is
// reliable. The html tokenizer reads them without demanding well-formedness.

func newTokenizer(text string) *html.Tokenizer {
	return html.NewTokenizer(strings.NewReader(text))
}

// firstTaggedSection returns the lower-cased name of the first tag in text
// and the text between it and the next tag
func firstTaggedSection(text string) (string, string, bool) {
	z := newTokenizer(text)
	name := ""
	var body strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return name, body.String(), name != "" && body.Len() > 0
		case html.StartTagToken, html.SelfClosingTagToken, html.EndTagToken:
			if name != "" {
				return name, body.String(), body.Len() > 0
			}
			tn, _ := z.TagName()
			name = string(tn)
			z.NextIsNotRawText()
		case html.TextToken:
			if name != "" {
				body.Write(z.Text())
			}
		}
	}
}

// TagSections maps each tag name to the text that follows its opening tags.
// Closing tags are ignored; text stays with the most recently opened tag.
// Repeated tags accumulate. Lines are joined with single spaces.
func TagSections(text string) map[string]string {
	sections := make(map[string]*strings.Builder)
	current := ""

	z := newTokenizer(text)
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		switch tt {
		case html.StartTagToken:
			tn, _ := z.TagName()
			current = string(tn)
			z.NextIsNotRawText()
		case html.TextToken:
			if current == "" {
				continue
			}
			b, ok := sections[current]
			if !ok {
				b = &strings.Builder{}
				sections[current] = b
			}
			for _, line := range strings.Split(string(z.Text()), "\n") {
				if line = strings.TrimSpace(line); line != "" {
					b.WriteString(line)
					b.WriteByte(' ')
				}
			}
		}
	}

	out := make(map[string]string, len(sections))
	for name, b := range sections {
		out[name] = strings.TrimSpace(b.String())
	}
	return out
}

// StripTags removes every tag, keeping the text between them
func StripTags(text string) string {
	var b strings.Builder
	z := newTokenizer(text)
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken:
			z.NextIsNotRawText()
		}
	}
}

// PlainLines returns the non-empty, tag-free lines of a record
func PlainLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(StripTags(text), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// Normalize applies NFKC and unifies line endings so patterns see one
// spelling of each character
func Normalize(text string) string {
	text = norm.NFKC.String(text)
	return strings.ReplaceAll(strings.ReplaceAll(text, "\r\n", "\n"), "\r", "\n")
}
