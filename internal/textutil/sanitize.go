package textutil

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const maxSlugRunes = 64

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters are removed. The result is trimmed of leading/trailing whitespace.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(fileNameReplacer.Replace(name))
}

// Slug lowercases value and joins its letter and digit runs with single
// hyphens. Accents and compatibility forms fold away; other non-Latin
// letters are kept, so Chinese titles survive. The result is capped at 64
// runes and is "unknown" when nothing usable remains.
func Slug(value string) string {
	var b strings.Builder
	pendingDash := false
	count := 0
	for _, r := range norm.NFKD.String(strings.TrimSpace(value)) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			dash := pendingDash && b.Len() > 0
			if dash && count+2 > maxSlugRunes || count+1 > maxSlugRunes {
				return finishSlug(b.String())
			}
			if dash {
				b.WriteByte('-')
				count++
			}
			pendingDash = false
			b.WriteRune(unicode.ToLower(r))
			count++
		case r == '_' || r == '-' || unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r):
			pendingDash = true
		}
	}
	return finishSlug(b.String())
}

func finishSlug(s string) string {
	out := norm.NFC.String(strings.TrimRight(s, "-"))
	if out == "" {
		return "unknown"
	}
	return out
}

// SourceID derives the object-key source id from a video or plan path: the
// file name without its extension, slugged.
func SourceID(path string) string {
	base := filepath.Base(strings.TrimSpace(path))
	if base == "." || base == string(filepath.Separator) {
		return "unknown"
	}
	return Slug(strings.TrimSuffix(base, filepath.Ext(base)))
}
