package transcript

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"vidpress/internal/plan"
	"vidpress/internal/services"
)

// Format names a transcript encoding.
type Format string

const (
	FormatSRT   Format = "srt"
	FormatVTT   Format = "vtt"
	FormatJSON3 Format = "json3"
	FormatPlain Format = "plain"
)

// ErrEmpty reports a transcript without any usable text.
var ErrEmpty = errors.New("transcript has no segments")

// Segment is one timed span of speech.
type Segment struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
}

var (
	markupTag   = regexp.MustCompile(`<[^>]+>`)
	leadingMark = regexp.MustCompile(`^\[(\d{1,2}:\d{2}(?::\d{2})?(?:[.,]\d+)?)\]\s*`)
	blockSplit  = regexp.MustCompile(`\n[ \t]*\n`)
)

// Load reads and parses a transcript file, detecting its format.
func Load(path string) ([]Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "transcript", "read", path, err)
	}
	return Parse(data, Detect(path, data))
}

// Detect guesses the format from the file extension, then the content.
func Detect(path string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".srt":
		return FormatSRT
	case ".vtt":
		return FormatVTT
	case ".json", ".json3":
		return FormatJSON3
	}
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(data, []byte("\ufeff")))
	switch {
	case bytes.HasPrefix(trimmed, []byte("WEBVTT")):
		return FormatVTT
	case bytes.HasPrefix(trimmed, []byte("{")):
		return FormatJSON3
	case bytes.Contains(trimmed, []byte("-->")):
		return FormatSRT
	default:
		return FormatPlain
	}
}

// Parse decodes data in the given format.
func Parse(data []byte, format Format) ([]Segment, error) {
	content := strings.ReplaceAll(string(bytes.TrimPrefix(data, []byte("\ufeff"))), "\r", "")
	var (
		segments []Segment
		err      error
	)
	switch format {
	case FormatSRT, FormatVTT:
		segments = parseCues(content)
	case FormatJSON3:
		segments, err = parseJSON3(content)
	case FormatPlain, "":
		segments = parsePlain(content)
	default:
		return nil, services.Wrap(services.ErrValidation, "transcript", "parse", fmt.Sprintf("unknown format %q", format), nil)
	}
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, services.Wrap(services.ErrValidation, "transcript", "parse", string(format), ErrEmpty)
	}
	return segments, nil
}

// parseCues handles SRT and WebVTT alike: each blank-line separated block
// holds an optional identifier, a timing line, and text lines.
func parseCues(content string) []Segment {
	var segments []Segment
	for _, block := range blockSplit.Split(content, -1) {
		var lines []string
		for _, line := range strings.Split(block, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				lines = append(lines, line)
			}
		}
		timing := -1
		for i := 0; i < len(lines) && i < 2; i++ {
			if strings.Contains(lines[i], "-->") {
				timing = i
				break
			}
		}
		if timing < 0 || timing+1 >= len(lines) {
			continue
		}
		startRaw, endRaw, _ := strings.Cut(lines[timing], "-->")
		// WebVTT cue settings follow the end time.
		endFields := strings.Fields(endRaw)
		if len(endFields) == 0 {
			continue
		}
		start := plan.ParseTimestamp(strings.TrimSpace(startRaw))
		end := plan.ParseTimestamp(endFields[0])
		if !start.Valid || !end.Valid {
			continue
		}
		text := cleanText(strings.Join(lines[timing+1:], " "))
		if text == "" {
			continue
		}
		segments = append(segments, Segment{
			Start:    start.Seconds,
			Duration: math.Max(0, end.Seconds-start.Seconds),
			Text:     text,
		})
	}
	return segments
}

type json3Payload struct {
	Events []struct {
		StartMs    float64 `json:"tStartMs"`
		DurationMs float64 `json:"dDurationMs"`
		Segs       []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

func parseJSON3(content string) ([]Segment, error) {
	var payload json3Payload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, services.Wrap(services.ErrValidation, "transcript", "decode json3", "", err)
	}
	var segments []Segment
	for _, event := range payload.Events {
		var sb strings.Builder
		for _, seg := range event.Segs {
			sb.WriteString(seg.UTF8)
		}
		text := cleanText(sb.String())
		if text == "" {
			continue
		}
		segments = append(segments, Segment{
			Start:    math.Max(0, event.StartMs/1000),
			Duration: math.Max(0, event.DurationMs/1000),
			Text:     text,
		})
	}
	return segments, nil
}

// parsePlain keeps one segment per non-empty line. Lines without a leading
// marker inherit the previous start time.
func parsePlain(content string) []Segment {
	var segments []Segment
	var current float64
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := leadingMark.FindStringSubmatch(line); m != nil {
			if ts := plan.ParseTimestamp(m[1]); ts.Valid {
				current = ts.Seconds
			}
			line = line[len(m[0]):]
		}
		if text := cleanText(line); text != "" {
			segments = append(segments, Segment{Start: current, Text: text})
		}
	}
	return segments
}

func cleanText(text string) string {
	text = markupTag.ReplaceAllString(text, "")
	text = html.UnescapeString(text)
	return strings.Join(strings.Fields(text), " ")
}

// FormatClock renders seconds rounded to whole seconds as HH:MM:SS.
func FormatClock(seconds float64) string {
	value := int64(math.Round(math.Max(0, seconds)))
	return fmt.Sprintf("%02d:%02d:%02d", value/3600, (value%3600)/60, value%60)
}

// Render formats segments as "[HH:MM:SS] text" lines.
func Render(segments []Segment) string {
	var sb strings.Builder
	for _, seg := range segments {
		sb.WriteString("[")
		sb.WriteString(FormatClock(seg.Start))
		sb.WriteString("] ")
		sb.WriteString(seg.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

// Duration returns the end of the last segment.
func Duration(segments []Segment) float64 {
	var end float64
	for _, seg := range segments {
		end = math.Max(end, seg.Start+seg.Duration)
	}
	return end
}
