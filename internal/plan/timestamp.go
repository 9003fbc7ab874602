package plan

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Timestamp is an advisory offset into the source video. Plans often carry
// malformed values; those are kept with Valid=false rather than rejected.
type Timestamp struct {
	Raw     string
	Seconds float64
	Valid   bool
}

var embeddedClock = regexp.MustCompile(`\d{1,2}:\d{2}:\d{2}(?:[.,]\d+)?|\d{1,3}:\d{2}(?:[.,]\d+)?`)

// ParseTimestamp accepts HH:MM:SS, MM:SS (optionally with fractional
// seconds), plain seconds as a number or digit string, or a clock value
// embedded in surrounding text.
func ParseTimestamp(value any) Timestamp {
	switch v := value.(type) {
	case nil:
		return Timestamp{}
	case float64:
		return fromSeconds(strconv.FormatFloat(v, 'f', -1, 64), v)
	case int:
		return fromSeconds(strconv.Itoa(v), float64(v))
	case int64:
		return fromSeconds(strconv.FormatInt(v, 10), float64(v))
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return Timestamp{Raw: v.String()}
		}
		return fromSeconds(v.String(), f)
	case string:
		return parseTimestampString(v)
	default:
		return Timestamp{Raw: strings.TrimSpace(fmt.Sprint(v))}
	}
}

func fromSeconds(raw string, seconds float64) Timestamp {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return Timestamp{Raw: raw}
	}
	return Timestamp{Raw: raw, Seconds: seconds, Valid: true}
}

func parseTimestampString(value string) Timestamp {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return Timestamp{}
	}
	if seconds, err := strconv.ParseFloat(raw, 64); err == nil {
		return fromSeconds(raw, seconds)
	}
	clock := embeddedClock.FindString(raw)
	if clock == "" {
		return Timestamp{Raw: raw}
	}
	seconds, ok := parseClock(clock)
	if !ok {
		return Timestamp{Raw: raw}
	}
	return Timestamp{Raw: raw, Seconds: seconds, Valid: true}
}

// parseClock converts H:MM:SS[.fff] or M:SS[.fff] into seconds.
func parseClock(clock string) (float64, bool) {
	parts := strings.Split(strings.ReplaceAll(clock, ",", "."), ":")
	var hours, minutes int
	var err error
	secField := parts[len(parts)-1]
	switch len(parts) {
	case 3:
		if hours, err = strconv.Atoi(parts[0]); err != nil {
			return 0, false
		}
		if minutes, err = strconv.Atoi(parts[1]); err != nil || minutes >= 60 {
			return 0, false
		}
	case 2:
		if minutes, err = strconv.Atoi(parts[0]); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	seconds, err := strconv.ParseFloat(secField, 64)
	if err != nil || seconds >= 60 || seconds < 0 {
		return 0, false
	}
	return float64(hours*3600+minutes*60) + seconds, true
}

// String renders valid timestamps as HH:MM:SS (with milliseconds when
// fractional) and invalid ones as their raw text.
func (t Timestamp) String() string {
	if !t.Valid {
		return t.Raw
	}
	return FormatSeconds(t.Seconds)
}

// FormatSeconds renders seconds as HH:MM:SS or HH:MM:SS.mmm.
func FormatSeconds(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	millis := int64(math.Round(seconds * 1000))
	whole := millis / 1000
	frac := millis % 1000
	out := fmt.Sprintf("%02d:%02d:%02d", whole/3600, (whole%3600)/60, whole%60)
	if frac != 0 {
		out += fmt.Sprintf(".%03d", frac)
	}
	return out
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var value any
	decoder := json.NewDecoder(strings.NewReader(string(data)))
	decoder.UseNumber()
	if err := decoder.Decode(&value); err != nil {
		return err
	}
	*t = ParseTimestamp(value)
	return nil
}
