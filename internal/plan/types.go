package plan

// ArticlePlan is the validated plan. Section order is the article's
// narrative order and is preserved by every later step.
type ArticlePlan struct {
	Title      string    `json:"title"`
	Lead       string    `json:"lead,omitempty"`
	Sections   []Section `json:"sections"`
	Conclusion string    `json:"conclusion,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
}

// Section is one narrative block of the article.
type Section struct {
	// Index is the 1-based position in the plan.
	Index   int               `json:"index"`
	Heading string            `json:"heading,omitempty"`
	Body    string            `json:"body_markdown"`
	Image   *ImageRequirement `json:"image,omitempty"`
}

// ImageRequirement describes the image a section asks for.
type ImageRequirement struct {
	Needed    bool      `json:"needed"`
	Timestamp Timestamp `json:"timestamp"`
	Caption   string    `json:"caption,omitempty"`
	AltText   string    `json:"alt_text,omitempty"`
	Anchor    string    `json:"anchor,omitempty"`
}

// NeedsImage reports whether the section requires an image.
func (s Section) NeedsImage() bool {
	return s.Image != nil && s.Image.Needed
}

// NeededCount returns how many sections require an image.
func (p ArticlePlan) NeededCount() int {
	count := 0
	for _, section := range p.Sections {
		if section.NeedsImage() {
			count++
		}
	}
	return count
}

// Prompt returns the text used to describe the image to a generator:
// caption, then alt text, then the section heading.
func (r ImageRequirement) Prompt(heading string) string {
	switch {
	case r.Caption != "":
		return r.Caption
	case r.AltText != "":
		return r.AltText
	default:
		return heading
	}
}

// Alt returns the markdown alt text for the inserted image.
func (r ImageRequirement) Alt(heading string) string {
	switch {
	case r.AltText != "":
		return r.AltText
	case r.Caption != "":
		return r.Caption
	default:
		return heading
	}
}
