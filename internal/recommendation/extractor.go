package recommendation

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"vm-pathways/internal/models"
)

// DefaultProductName is used when no product name can be found in the assistant text.
const DefaultProductName = "Recommended Product"

// space is the whitespace class every pattern uses: RE2's ASCII \s plus vertical tab,
// the Unicode separators (no-break and narrow no-break spaces included) and the BOM.
const space = `\s\v\p{Z}\x{FEFF}`

var (
	citationMarker   = regexp.MustCompile(`\[\d+:\d+†[^\]]+\]`)
	checkThemOutHere = regexp.MustCompile(`You can check them out here:?.*?\(【\d+:\d+†[^)]*\)\.`)
	moreInfo         = regexp.MustCompile(`More info:?.*?\(【\d+:\d+†[^)]*\)\.`)
	markdownChars    = regexp.MustCompile("[*#_`]")
	whitespaceRun    = regexp.MustCompile(`[` + space + `]+`)

	cuedName  = regexp.MustCompile(`(?i)(?:I recommend|try|consider)[` + space + `\w"']*?["']([^"']+)["']`)
	quotedAny = regexp.MustCompile(`["']([^"']+)["']`)

	productURL = regexp.MustCompile(`(https?://[^` + space + `)]+)(?:\)|[` + space + `]|$)`)

	urlLabel         = regexp.MustCompile(`URL:[` + space + `]*\[[^\]]+\]`)
	parenthesized    = regexp.MustCompile(`\([^)]*\)`)
	bracketed        = regexp.MustCompile(`\[[^\]]*\]`)
	inlineURL        = regexp.MustCompile(`\(https?://[^)]+\)`)
	leadingRecommend = regexp.MustCompile(`(?i)^I recommend[` + space + `]+`)
	citationRemnant  = regexp.MustCompile(`\(?【\d+:\d+†[^)\]]*\)?\]?`)
	checkOutPhrase   = regexp.MustCompile(`(?i)check them out here\.?`)
	spaceBeforeDot   = regexp.MustCompile(`[` + space + `]\.`)
)

// Extract parses free-form assistant text into a Recommendation.
// Fields that cannot be found keep their defaults; Extract never fails.
func Extract(raw string) models.Recommendation {
	rec := models.Recommendation{
		Name:        DefaultProductName,
		Description: raw,
	}

	text := CleanText(raw)

	name, hasName := ExtractName(text)
	if hasName {
		rec.Name = name
	}

	if url, rest, ok := ExtractURL(text); ok {
		rec.URL = url
		text = rest
	}

	text = StripFragments(text)

	description := DeriveDescription(text, name)
	switch {
	case description != "":
		rec.Description = description
	case text != "":
		rec.Description = collapse(text)
	default:
		rec.Description = trim(raw)
	}

	return rec
}

// CleanText removes provider citation artifacts and markdown noise and normalises
// whitespace. Applying it to its own output returns the same text.
func CleanText(s string) string {
	// Each pass only deletes text or normalises whitespace, so this settles quickly.
	for {
		next := cleanOnce(s)
		if next == s {
			return next
		}
		s = next
	}
}

func cleanOnce(s string) string {
	s = citationMarker.ReplaceAllString(s, "")
	s = checkThemOutHere.ReplaceAllString(s, "")
	s = moreInfo.ReplaceAllString(s, "")
	s = markdownChars.ReplaceAllString(s, "")
	return collapse(s)
}

// ExtractName finds the recommended product name: a quoted phrase following
// "I recommend", "try" or "consider", otherwise the first quoted phrase.
func ExtractName(s string) (string, bool) {
	if m := cuedName.FindStringSubmatch(s); m != nil {
		if name := trim(m[1]); name != "" {
			return name, true
		}
	}
	if m := quotedAny.FindStringSubmatch(s); m != nil {
		if name := trim(m[1]); name != "" {
			return name, true
		}
	}
	return "", false
}

// ExtractURL returns the first http(s) link in s and s with the matched span removed.
// A link ends at whitespace, a closing parenthesis or the end of the text.
func ExtractURL(s string) (url, rest string, ok bool) {
	loc := productURL.FindStringSubmatchIndex(s)
	if loc == nil {
		return "", s, false
	}
	url = trim(s[loc[2]:loc[3]])
	rest = s[:loc[0]] + s[loc[1]:]
	return url, rest, true
}

// StripFragments removes URL labels and any parenthesized or bracketed asides.
func StripFragments(s string) string {
	s = urlLabel.ReplaceAllString(s, "")
	s = parenthesized.ReplaceAllString(s, "")
	s = bracketed.ReplaceAllString(s, "")
	s = inlineURL.ReplaceAllString(s, "")
	return s
}

// DeriveDescription drops the introductory clause ending with the product name and
// tidies the remainder. name is matched literally; an empty name skips that step.
func DeriveDescription(s, name string) string {
	if name != "" {
		s = trimThroughName(s, name)
	}
	s = leadingRecommend.ReplaceAllString(s, "")

	s = citationRemnant.ReplaceAllString(s, "")
	s = checkOutPhrase.ReplaceAllString(s, "")
	s = collapse(s)
	s = spaceBeforeDot.ReplaceAllString(s, ".")
	return trim(s)
}

// trimThroughName removes everything up to the first occurrence of name and on through
// the next whitespace character. Text without a whitespace after the name is unchanged.
func trimThroughName(s, name string) string {
	idx := strings.Index(s, name)
	if idx < 0 {
		return s
	}
	after := s[idx+len(name):]
	ws := strings.IndexFunc(after, isSpace)
	if ws < 0 {
		return s
	}
	_, size := utf8.DecodeRuneInString(after[ws:])
	return after[ws+size:]
}

func collapse(s string) string {
	return trim(whitespaceRun.ReplaceAllString(s, " "))
}

func trim(s string) string {
	return strings.TrimFunc(s, isSpace)
}

// isSpace matches the same runes as the space class.
func isSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ', '\uFEFF':
		return true
	}
	return unicode.Is(unicode.Z, r)
}
