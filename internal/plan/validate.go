package plan

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Options tunes normalization.
type Options struct {
	// MaxImages caps needed images; requirements beyond the cap are demoted
	// in document order. Zero means no cap.
	MaxImages int
}

// Validate normalizes raw and returns the typed plan, or an
// *InvalidPlanError for the first violation in this order: blank title,
// no sections, then per section a needed image without an anchor.
func Validate(raw RawPlan, opts Options) (ArticlePlan, error) {
	if raw == nil {
		return ArticlePlan{}, invalid("title", 0, "plan is empty")
	}

	title := text(raw["title"])
	if title == "" {
		return ArticlePlan{}, invalid("title", 0, "title is required")
	}

	rawSections, ok := raw["sections"].([]any)
	if !ok && raw["sections"] != nil {
		return ArticlePlan{}, invalid("sections", 0, "sections must be a list")
	}
	if len(rawSections) == 0 {
		return ArticlePlan{}, invalid("sections", 0, "at least one section is required")
	}

	out := ArticlePlan{
		Title:      title,
		Lead:       text(raw["lead"]),
		Conclusion: text(raw["conclusion"]),
		Tags:       normalizeTags(raw["tags"]),
		Sections:   make([]Section, 0, len(rawSections)),
	}

	images := 0
	for i, item := range rawSections {
		index := i + 1
		obj, ok := item.(map[string]any)
		if !ok {
			return ArticlePlan{}, invalid("", index, "section must be an object")
		}
		section := Section{
			Index:   index,
			Heading: text(obj["heading"]),
			Body:    firstText(obj, "body_markdown", "body", "content"),
		}
		req, err := normalizeImage(obj["image"], section.Heading, index)
		if err != nil {
			return ArticlePlan{}, err
		}
		if req != nil && req.Needed {
			if req.Anchor == "" {
				return ArticlePlan{}, invalid("image.anchor", index, "anchor is required when an image is needed")
			}
			// Past the cap the section keeps its text and loses the image.
			if opts.MaxImages > 0 && images >= opts.MaxImages {
				req.Needed = false
			} else {
				images++
			}
		}
		section.Image = req
		out.Sections = append(out.Sections, section)
	}
	return out, nil
}

func normalizeImage(value any, heading string, index int) (*ImageRequirement, error) {
	if value == nil {
		return nil, nil
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, invalid("image", index, "image must be an object")
	}
	needValue, present := obj["needed"]
	if !present {
		needValue = obj["need"]
	}
	needed, err := truthy(needValue)
	if err != nil {
		return nil, &InvalidPlanError{Field: "image.needed", Section: index, Err: err}
	}
	req := &ImageRequirement{
		Needed:    needed,
		Timestamp: ParseTimestamp(obj["timestamp"]),
		Caption:   text(obj["caption"]),
		AltText:   firstText(obj, "alt_text", "alt"),
		Anchor:    text(obj["anchor"]),
	}
	if req.Caption == "" {
		req.Caption = heading
	}
	if req.AltText == "" {
		req.AltText = req.Caption
	}
	return req, nil
}

func truthy(value any) (bool, error) {
	switch v := value.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "", "false", "no", "n", "0", "off":
			return false, nil
		case "true", "yes", "y", "1", "on":
			return true, nil
		}
		return false, fmt.Errorf("cannot interpret %q as a boolean", v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return false, err
		}
		return f != 0, nil
	case float64:
		return v != 0, nil
	case int:
		return v != 0, nil
	default:
		return false, fmt.Errorf("cannot interpret %T as a boolean", value)
	}
}

func normalizeTags(value any) []string {
	var items []any
	switch v := value.(type) {
	case []any:
		items = v
	case string:
		for _, part := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == '，' || r == '/' }) {
			items = append(items, part)
		}
	default:
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	tags := make([]string, 0, len(items))
	for _, item := range items {
		tag := text(item)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}

func firstText(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if value := text(obj[key]); value != "" {
			return value
		}
	}
	return ""
}

// text renders a loose scalar as trimmed text with U+FFFD dropped.
func text(value any) string {
	var s string
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		s = v
	case json.Number:
		s = v.String()
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(v)
	case int:
		s = strconv.Itoa(v)
	case map[string]any, []any:
		return ""
	default:
		s = fmt.Sprint(v)
	}
	return strings.TrimSpace(strings.ReplaceAll(s, "\uFFFD", ""))
}
