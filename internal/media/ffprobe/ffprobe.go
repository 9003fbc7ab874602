package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// Probe is the subset of ffprobe output frame capture relies on.
type Probe struct {
	HasVideo bool
	Width    int
	Height   int
	// Duration in seconds; zero when neither the container nor any stream
	// reports one.
	Duration float64
}

// seconds decodes ffprobe's quoted durations, treating "N/A" and
// non-finite values as zero.
type seconds float64

func (s *seconds) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(strings.Trim(string(data), `"`))
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		*s = 0
		return nil
	}
	*s = seconds(v)
	return nil
}

type output struct {
	Streams []struct {
		CodecType string  `json:"codec_type"`
		Width     int     `json:"width"`
		Height    int     `json:"height"`
		Duration  seconds `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration seconds `json:"duration"`
	} `json:"format"`
}

// Inspect runs ffprobe on path.
func Inspect(ctx context.Context, binary, path string) (Probe, error) {
	if strings.TrimSpace(path) == "" {
		return Probe{}, errors.New("ffprobe: empty path")
	}
	if binary = strings.TrimSpace(binary); binary == "" {
		binary = "ffprobe"
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary,
		"-v", "error",
		"-show_entries", "stream=codec_type,width,height,duration:format=duration",
		"-of", "json",
		"--", path,
	)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return Probe{}, fmt.Errorf("ffprobe %s: %w: %s", path, err, msg)
		}
		return Probe{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return Parse(out)
}

// Parse reduces ffprobe JSON to a Probe. The first video stream supplies
// the dimensions; the duration prefers the container value and falls back
// to the longest stream.
func Parse(data []byte) (Probe, error) {
	var raw output
	if err := json.Unmarshal(data, &raw); err != nil {
		return Probe{}, fmt.Errorf("ffprobe: decode output: %w", err)
	}
	var p Probe
	longest := 0.0
	for _, st := range raw.Streams {
		if !p.HasVideo && strings.EqualFold(st.CodecType, "video") {
			p.HasVideo, p.Width, p.Height = true, st.Width, st.Height
		}
		longest = max(longest, float64(st.Duration))
	}
	p.Duration = float64(raw.Format.Duration)
	if p.Duration == 0 {
		p.Duration = longest
	}
	return p, nil
}
