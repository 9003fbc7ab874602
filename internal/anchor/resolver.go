package anchor

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"vidpress/internal/services"
)

// ErrUnresolved reports that a phrase has no unconsumed occurrence.
var ErrUnresolved = errors.New("anchor unresolved")

// Match is a resolved anchor occurrence. Start and End are byte offsets into
// the text given to NewResolver; End already covers punctuation that
// directly follows the phrase, so it is the insertion point.
type Match struct {
	Start int
	End   int
	Text  string
}

// Resolver finds anchor phrases in one article body. It is not safe for
// concurrent use; anchors are resolved in a single serialized pass.
type Resolver struct {
	text     string
	view     folded
	consumed []span
	// reserved ranges, such as headings, never hold a match.
	reserved []span
}

type span struct {
	start int
	end   int
}

// folded is the normalized rune sequence with the original byte range of
// every rune.
type folded struct {
	runes []rune
	spans []span
}

// NewResolver indexes body for anchor lookups.
func NewResolver(body string) *Resolver {
	return &Resolver{text: body, view: fold(body)}
}

// Resolve returns the earliest occurrence of phrase that does not overlap a
// previously resolved match, and consumes it.
func (r *Resolver) Resolve(phrase string) (Match, error) {
	return r.resolve(phrase, 0, len(r.text))
}

// ResolveWithin is Resolve restricted to occurrences lying entirely inside
// the byte range [lo, hi).
func (r *Resolver) ResolveWithin(phrase string, lo, hi int) (Match, error) {
	lo = max(lo, 0)
	hi = min(hi, len(r.text))
	if lo >= hi {
		return Match{}, unresolved(phrase, "empty search range")
	}
	return r.resolve(phrase, lo, hi)
}

func (r *Resolver) resolve(phrase string, lo, hi int) (Match, error) {
	needle := fold(phrase).runes
	if len(needle) == 0 {
		return Match{}, unresolved(phrase, "anchor is blank after normalization")
	}
	hay := r.view.runes
	for i := 0; i+len(needle) <= len(hay); i++ {
		if r.view.spans[i].start < lo {
			continue
		}
		if r.view.spans[i+len(needle)-1].end > hi {
			break
		}
		if !hasPrefixAt(hay, needle, i) {
			continue
		}
		candidate := span{start: r.view.spans[i].start, end: r.view.spans[i+len(needle)-1].end}
		if r.overlaps(candidate) {
			continue
		}
		candidate.end = r.extendOverPunctuation(candidate.end, hi)
		r.consume(candidate)
		return Match{
			Start: candidate.start,
			End:   candidate.end,
			Text:  r.text[candidate.start:candidate.end],
		}, nil
	}
	return Match{}, unresolved(phrase, "no unconsumed occurrence")
}

// Reserve excludes the byte range [lo, hi) from every later match.
func (r *Resolver) Reserve(lo, hi int) {
	lo = max(lo, 0)
	hi = min(hi, len(r.text))
	if lo < hi {
		r.reserved = append(r.reserved, span{start: lo, end: hi})
	}
}

// Consumed returns how many matches have been handed out.
func (r *Resolver) Consumed() int {
	return len(r.consumed)
}

func unresolved(phrase, reason string) error {
	return fmt.Errorf("%w: %q: %s: %w", ErrUnresolved, phrase, reason, services.ErrNotFound)
}

func hasPrefixAt(hay, needle []rune, at int) bool {
	for j, r := range needle {
		if hay[at+j] != r {
			return false
		}
	}
	return true
}

func (r *Resolver) overlaps(candidate span) bool {
	for _, used := range r.reserved {
		if candidate.start < used.end && used.start < candidate.end {
			return true
		}
	}
	for _, used := range r.consumed {
		if candidate.start < used.end && used.start < candidate.end {
			return true
		}
	}
	return false
}

func (r *Resolver) consume(s span) {
	idx := sort.Search(len(r.consumed), func(i int) bool { return r.consumed[i].start >= s.start })
	r.consumed = append(r.consumed, span{})
	copy(r.consumed[idx+1:], r.consumed[idx:])
	r.consumed[idx] = s
}

// extendOverPunctuation moves end past punctuation that immediately follows
// the phrase so an image never separates a sentence from its full stop.
// It stops at whitespace and at any consumed span.
func (r *Resolver) extendOverPunctuation(end, limit int) int {
	for end < limit {
		ch, size := utf8.DecodeRuneInString(r.text[end:])
		if end+size > limit || !unicode.IsPunct(ch) || isOpening(ch) {
			break
		}
		if r.overlaps(span{start: end, end: end + size}) {
			break
		}
		end += size
	}
	return end
}

func isOpening(ch rune) bool {
	return unicode.Is(unicode.Ps, ch) || unicode.Is(unicode.Pi, ch)
}

// Normalize returns the comparison form of s.
func Normalize(s string) string {
	return string(fold(s).runes)
}

func fold(s string) folded {
	caser := cases.Fold()
	out := folded{
		runes: make([]rune, 0, len(s)),
		spans: make([]span, 0, len(s)),
	}
	pendingSpace := false
	var spaceSpan span
	// A dash or slash joining two words reads as a space: "state-of-the-art"
	// folds like "state of the art". Between CJK characters it is dropped.
	joined := false
	var joinSpan span

	// Walk normalization segments (a starter plus its combining marks) so
	// composed and decomposed input fold to the same runes.
	for pos := 0; pos < len(s); {
		n := norm.NFKC.NextBoundaryInString(s[pos:], true)
		if n <= 0 {
			n = len(s) - pos
		}
		segment := span{start: pos, end: pos + n}
		normalized := caser.String(norm.NFKC.String(s[pos : pos+n]))
		for _, ch := range normalized {
			switch {
			case unicode.IsSpace(ch):
				if !pendingSpace {
					spaceSpan = segment
				}
				pendingSpace = true
			case isJoiner(ch):
				if !pendingSpace && len(out.runes) > 0 && isWordRune(out.runes[len(out.runes)-1]) {
					joined, joinSpan = true, segment
				}
			case unicode.IsPunct(ch) || unicode.IsSymbol(ch):
				joined = false
			default:
				switch {
				case pendingSpace && len(out.runes) > 0:
					out.runes = append(out.runes, ' ')
					out.spans = append(out.spans, spaceSpan)
				case joined && isWordRune(ch):
					out.runes = append(out.runes, ' ')
					out.spans = append(out.spans, joinSpan)
				}
				pendingSpace, joined = false, false
				out.runes = append(out.runes, ch)
				out.spans = append(out.spans, segment)
			}
		}
		pos += n
	}
	return out
}

func isJoiner(ch rune) bool {
	return ch == '/' || unicode.Is(unicode.Pd, ch)
}

// isWordRune reports letters and digits outside the CJK scripts, which are
// written without spaces between words.
func isWordRune(ch rune) bool {
	if !unicode.IsLetter(ch) && !unicode.IsDigit(ch) {
		return false
	}
	return !unicode.In(ch, unicode.Han, unicode.Hiragana, unicode.Katakana)
}

// Contains reports whether phrase occurs in text after normalization.
func Contains(text, phrase string) bool {
	needle := Normalize(phrase)
	return needle != "" && strings.Contains(Normalize(text), needle)
}
