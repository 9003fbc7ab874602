package plan

import (
	"strings"
)

const (
	defaultConclusionHeading = "总结"
	defaultTagsLabel         = "关键词："
)

// RenderOptions controls the fixed article furniture.
type RenderOptions struct {
	ConclusionHeading string
	TagsLabel         string
}

// Span is the byte range a section occupies in the rendered article.
// [Start, BodyStart) is the heading block; BodyStart equals Start for a
// section without a heading.
type Span struct {
	Section   int
	Start     int
	BodyStart int
	End       int
}

// Rendered is the article markdown before any image is inserted.
type Rendered struct {
	Text     string
	Sections []Span
	// Headings lists the byte range of every heading line, title included.
	Headings [][2]int
}

// Render lays the plan out as markdown: title, lead, one block per section
// in plan order, the conclusion and the tag line.
func Render(p ArticlePlan, opts RenderOptions) Rendered {
	conclusionHeading := strings.TrimSpace(opts.ConclusionHeading)
	if conclusionHeading == "" {
		conclusionHeading = defaultConclusionHeading
	}
	tagsLabel := strings.TrimSpace(opts.TagsLabel)
	if tagsLabel == "" {
		tagsLabel = defaultTagsLabel
	}

	var b strings.Builder
	var headings [][2]int
	heading := func(marker, text string) {
		start := b.Len()
		b.WriteString(marker)
		b.WriteString(text)
		headings = append(headings, [2]int{start, b.Len()})
		b.WriteString("\n")
	}
	heading("# ", p.Title)
	if p.Lead != "" {
		b.WriteString("\n")
		b.WriteString(p.Lead)
		b.WriteString("\n")
	}

	spans := make([]Span, 0, len(p.Sections))
	for _, section := range p.Sections {
		b.WriteString("\n")
		start := b.Len()
		if section.Heading != "" {
			heading("## ", section.Heading)
			if section.Body != "" {
				b.WriteString("\n")
			}
		}
		bodyStart := b.Len()
		if section.Body != "" {
			b.WriteString(section.Body)
			b.WriteString("\n")
		}
		spans = append(spans, Span{Section: section.Index, Start: start, BodyStart: bodyStart, End: b.Len()})
	}

	if p.Conclusion != "" {
		b.WriteString("\n")
		heading("## ", conclusionHeading)
		b.WriteString("\n")
		b.WriteString(p.Conclusion)
		b.WriteString("\n")
	}
	if len(p.Tags) > 0 {
		b.WriteString("\n")
		b.WriteString(tagsLabel)
		b.WriteString(strings.Join(p.Tags, " / "))
		b.WriteString("\n")
	}

	return Rendered{Text: b.String(), Sections: spans, Headings: headings}
}
