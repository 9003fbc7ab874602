package plan

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// RawPlan is the undecoded plan object exactly as the model produced it.
type RawPlan map[string]any

// Format selects the plan document encoding.
type Format string

const (
	FormatAuto Format = ""
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath guesses the encoding from a file extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	default:
		return FormatAuto
	}
}

// Parse decodes a plan document. Auto tries JSON (with code-fence and prose
// tolerance) and then YAML. Decode failures are InvalidPlanErrors.
func Parse(data []byte, format Format) (RawPlan, error) {
	content := strings.TrimSpace(string(data))
	if content == "" {
		return nil, invalid("", 0, "empty plan document")
	}
	switch format {
	case FormatJSON:
		raw, err := decodeJSON(content)
		if err != nil {
			return nil, &InvalidPlanError{Reason: "decode json", Err: err}
		}
		return raw, nil
	case FormatYAML:
		raw, err := decodeYAML(content)
		if err != nil {
			return nil, &InvalidPlanError{Reason: "decode yaml", Err: err}
		}
		return raw, nil
	case FormatAuto:
		raw, jsonErr := decodeJSON(content)
		if jsonErr == nil {
			return raw, nil
		}
		raw, yamlErr := decodeYAML(stripCodeFenceBlock(content))
		if yamlErr == nil {
			return raw, nil
		}
		return nil, &InvalidPlanError{Reason: "decode plan", Err: jsonErr}
	default:
		return nil, fmt.Errorf("plan format %q not supported", format)
	}
}

func decodeJSON(content string) (RawPlan, error) {
	raw, directErr := unmarshalObject(content)
	if directErr == nil {
		return raw, nil
	}
	sanitized := sanitizeJSONPayload(content)
	if sanitized == "" || sanitized == content {
		return nil, fmt.Errorf("%w (payload snippet: %s)", directErr, summarizePayloadSnippet(content))
	}
	raw, err := unmarshalObject(sanitized)
	if err != nil {
		return nil, fmt.Errorf("%w (sanitized payload snippet: %s)", err, summarizePayloadSnippet(sanitized))
	}
	return raw, nil
}

func unmarshalObject(content string) (RawPlan, error) {
	decoder := json.NewDecoder(strings.NewReader(content))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if decoder.More() {
		return nil, errors.New("unexpected content after plan object")
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, errors.New("plan must be a JSON object")
	}
	return RawPlan(obj), nil
}

func decodeYAML(content string) (RawPlan, error) {
	var obj map[string]any
	decoder := yaml.NewDecoder(bytes.NewReader([]byte(content)))
	if err := decoder.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("plan must be a mapping")
	}
	return RawPlan(obj), nil
}

// sanitizeJSONPayload strips code fences and surrounding prose down to the
// outermost object.
func sanitizeJSONPayload(content string) string {
	trimmed := strings.TrimSpace(stripCodeFenceBlock(content))
	if trimmed == "" {
		return ""
	}
	if trimmed[0] == '{' {
		return trimmed
	}
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			return strings.TrimSpace(trimmed[start : end+1])
		}
	}
	return trimmed
}

func stripCodeFenceBlock(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := strings.TrimLeft(trimmed[3:], " \t")
	// drop the info string (json, yaml, ...)
	if idx := strings.IndexByte(body, '\n'); idx >= 0 {
		body = body[idx+1:]
	} else {
		body = ""
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

func summarizePayloadSnippet(content string) string {
	clean := strings.Join(strings.Fields(content), " ")
	if clean == "" {
		return "<empty>"
	}
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
