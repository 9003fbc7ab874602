package assemble

import (
	"fmt"
	"strings"
)

type insertion struct {
	offset int
	text   string
}

// insertImages is pass 3. It splices references for published and
// local-only sections in document order and advances them to INSERTED.
// Each insertion point is shifted by the length of the insertions already
// applied at or before it, so earlier insertions stay where they were.
func insertImages(text string, work []*sectionWork) (string, error) {
	var applied []insertion
	var b strings.Builder
	current := text
	for _, item := range work {
		if item.track.state != StatePublished && item.track.state != StateLocalOnly {
			continue
		}
		snippet := imageMarkdown(item.section.Image.Alt(item.section.Heading), item.ref.URL)
		shift := 0
		for _, prior := range applied {
			if prior.offset <= item.match.End {
				shift += len(prior.text)
			}
		}
		at := item.match.End + shift
		if at < 0 || at > len(current) {
			return "", fmt.Errorf("assemble: section %d: insertion offset %d outside article", item.section.Index, at)
		}
		b.Reset()
		b.Grow(len(current) + len(snippet))
		b.WriteString(current[:at])
		b.WriteString(snippet)
		b.WriteString(current[at:])
		current = b.String()
		applied = append(applied, insertion{offset: item.match.End, text: snippet})
		if err := item.track.advance(StateInserted); err != nil {
			return "", err
		}
	}
	return current, nil
}

func imageMarkdown(alt, url string) string {
	return fmt.Sprintf("\n\n![%s](%s)\n\n", escapeAlt(alt), url)
}

var altEscaper = strings.NewReplacer(
	"\r\n", " ",
	"\n", " ",
	"[", `\[`,
	"]", `\]`,
)

func escapeAlt(alt string) string {
	return strings.TrimSpace(altEscaper.Replace(alt))
}
