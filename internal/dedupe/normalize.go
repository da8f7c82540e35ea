package dedupe

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Title normalization reduces a raw platform title to a comparison key. The
// steps run in a fixed order; later steps assume the cleanup done by earlier
// ones (punctuation must be gone before edition phrases match, abbreviations
// must be expanded before roman numerals convert).

var (
	trademarkReplacer = strings.NewReplacer("™", "", "®", "", "©", "")

	invisibleReplacer = strings.NewReplacer(
		"\u200b", "", "\u200c", "", "\u200d", "", "\u2060", "", "\ufeff", "",
	)

	punctuationRe = regexp.MustCompile("[:\\-–—_.,'!?&+]")
	quoteRe       = regexp.MustCompile("[‘’“”\"`´]")
	bracketedRe   = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]`)
	yearRe        = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	multiSpaceRe  = regexp.MustCompile(`\s+`)
	digitsRe      = regexp.MustCompile(`[0-9]`)

	editionRe = regexp.MustCompile(`\b(game of the year|directors cut|director s cut|edition|remastered|remaster|definitive|deluxe|goty|ultimate|complete|collection|anniversary|enhanced|legendary|premium|gold|redux|hd)\b`)

	platformRe = regexp.MustCompile(`\b(xbox series x|xbox series s|xbox one|xbox 360|series x|series s|playstation|nintendo|windows|switch|origin|xbox|steam|epic|gog|uplay|vita|360|pc|mac|linux|ps1|ps2|ps3|ps4|ps5|psx|psp)\b`)
)

// abbreviations maps common community shorthand to the full franchise name.
// Whole-word matches only; expansion happens before roman numeral conversion
// so "gta v" and "grand theft auto 5" normalize to the same key.
var abbreviations = []struct {
	re       *regexp.Regexp
	expanded string
}{
	{regexp.MustCompile(`\bgta\b`), "grand theft auto"},
	{regexp.MustCompile(`\bcod\b`), "call of duty"},
	{regexp.MustCompile(`\bmw\b`), "modern warfare"},
	{regexp.MustCompile(`\bre\b`), "resident evil"},
	{regexp.MustCompile(`\btlou\b`), "the last of us"},
	{regexp.MustCompile(`\bac\b`), "assassins creed"},
	{regexp.MustCompile(`\bff\b`), "final fantasy"},
	{regexp.MustCompile(`\bnfs\b`), "need for speed"},
	{regexp.MustCompile(`\bbotw\b`), "breath of the wild"},
	{regexp.MustCompile(`\btotk\b`), "tears of the kingdom"},
	{regexp.MustCompile(`\bdmc\b`), "devil may cry"},
	{regexp.MustCompile(`\bmgs\b`), "metal gear solid"},
	{regexp.MustCompile(`\bgow\b`), "god of war"},
	{regexp.MustCompile(`\bwow\b`), "world of warcraft"},
	{regexp.MustCompile(`\bcsgo\b`), "counter strike global offensive"},
	{regexp.MustCompile(`\bcs\b`), "counter strike"},
	{regexp.MustCompile(`\bdbd\b`), "dead by daylight"},
	{regexp.MustCompile(`\bbf\b`), "battlefield"},
	{regexp.MustCompile(`\bsf\b`), "street fighter"},
	{regexp.MustCompile(`\bmk\b`), "mortal kombat"},
	{regexp.MustCompile(`\btes\b`), "the elder scrolls"},
	{regexp.MustCompile(`\bkh\b`), "kingdom hearts"},
	{regexp.MustCompile(`\bds\b`), "dark souls"},
	{regexp.MustCompile(`\brdr\b`), "red dead redemption"},
}

var romanWords = []struct {
	re     *regexp.Regexp
	arabic string
}{
	// Longest forms first so "viii" is not consumed as "vii"+"i".
	{regexp.MustCompile(`\bxiii\b`), "13"},
	{regexp.MustCompile(`\bviii\b`), "8"},
	{regexp.MustCompile(`\bxiv\b`), "14"},
	{regexp.MustCompile(`\bxii\b`), "12"},
	{regexp.MustCompile(`\bvii\b`), "7"},
	{regexp.MustCompile(`\biii\b`), "3"},
	{regexp.MustCompile(`\bxv\b`), "15"},
	{regexp.MustCompile(`\bxi\b`), "11"},
	{regexp.MustCompile(`\bix\b`), "9"},
	{regexp.MustCompile(`\bvi\b`), "6"},
	{regexp.MustCompile(`\biv\b`), "4"},
	{regexp.MustCompile(`\bii\b`), "2"},
	{regexp.MustCompile(`\bx\b`), "10"},
	{regexp.MustCompile(`\bv\b`), "5"},
	{regexp.MustCompile(`\bi\b`), "1"},
}

// unicodeRomanReplacer converts the dedicated roman numeral code points
// (U+2160..U+216B and their lowercase forms) to arabic digits.
var unicodeRomanReplacer = strings.NewReplacer(
	"Ⅰ", "1", "Ⅱ", "2", "Ⅲ", "3", "Ⅳ", "4",
	"Ⅴ", "5", "Ⅵ", "6", "Ⅶ", "7", "Ⅷ", "8",
	"Ⅸ", "9", "Ⅹ", "10", "Ⅺ", "11", "Ⅻ", "12",
	"ⅰ", "1", "ⅱ", "2", "ⅲ", "3", "ⅳ", "4",
	"ⅴ", "5", "ⅵ", "6", "ⅶ", "7", "ⅷ", "8",
	"ⅸ", "9", "ⅹ", "10", "ⅺ", "11", "ⅻ", "12",
)

// NormalizeTitle produces the canonical comparison key for a raw title.
// The function is idempotent: NormalizeTitle(NormalizeTitle(x)) == NormalizeTitle(x).
func NormalizeTitle(raw string) string {
	s := norm.NFC.String(raw)
	s = invisibleReplacer.Replace(s)
	s = collapseSpaceVariants(s)
	s = strings.ToLower(s)

	s = trademarkReplacer.Replace(s)
	s = stripLeadingArticle(s)

	s = punctuationRe.ReplaceAllString(s, " ")
	s = quoteRe.ReplaceAllString(s, "")
	s = bracketedRe.ReplaceAllString(s, " ")

	s = editionRe.ReplaceAllString(s, " ")
	s = platformRe.ReplaceAllString(s, " ")
	s = yearRe.ReplaceAllString(s, " ")

	s = multiSpaceRe.ReplaceAllString(s, " ")
	for _, abbr := range abbreviations {
		s = abbr.re.ReplaceAllString(s, abbr.expanded)
	}
	// Expansions can reintroduce a leading article ("tlou" -> "the last of
	// us"); strip it again so the key stays idempotent.
	s = stripLeadingArticle(strings.TrimSpace(s))

	s = unicodeRomanReplacer.Replace(s)
	for _, roman := range romanWords {
		s = roman.re.ReplaceAllString(s, roman.arabic)
	}

	return strings.TrimSpace(multiSpaceRe.ReplaceAllString(s, " "))
}

// SuperNormalizeTitle strips all digits from the normalized key. It is only a
// secondary match signal: when removing digits leaves too little to compare
// (three characters or fewer), the plain normalized form is returned instead.
func SuperNormalizeTitle(raw string) string {
	normalized := NormalizeTitle(raw)
	stripped := strings.TrimSpace(multiSpaceRe.ReplaceAllString(digitsRe.ReplaceAllString(normalized, ""), " "))
	if len(stripped) <= 3 {
		return normalized
	}
	return stripped
}

func stripLeadingArticle(s string) string {
	if strings.HasPrefix(s, "the ") {
		return s[len("the "):]
	}
	return s
}

// collapseSpaceVariants maps every unicode space variant (NBSP, thin space,
// ideographic space, ...) to a plain ASCII space.
func collapseSpaceVariants(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, s)
}
