package lang

import (
	"regexp"
	"strings"
)

// Token-by-token generation tends to emit Arabic-script letter variants,
// missing zero-width non-joiners and glued punctuation. Normalize repairs
// those. It is cosmetic, applied before persistence and response, and
// idempotent: every rewrite removes the pattern it matches on.

const zwnj = "\u200c"

// Arabic yeh and kaf mapped to the Persian forms used by fa/ur shaping.
var letterVariants = strings.NewReplacer(
	"ي", "ی", // ي -> ی
	"ك", "ک", // ك -> ک
)

var (
	// می / نمی verbal prefix written with a plain space before the stem.
	rePrefixClitic = regexp.MustCompile(`(^|[\s(])(ن?می) ([\p{Arabic}])`)

	// Plural and comparative suffixes split off by a space. Longest
	// alternatives first so e.g. "هایی" is not half-joined.
	reSuffixClitic = regexp.MustCompile(`([\p{Arabic}]) (هایی|های|ها|ترین|تر)([\s.!?؟،؛:)\]]|$)`)

	// Sentence punctuation glued to the next Arabic-script rune. Restricted
	// to Arabic-script continuation so URLs and decimals survive.
	rePunctGlue = regexp.MustCompile(`([.!?؟،؛:])([\p{Arabic}])`)

	reSpaceRun = regexp.MustCompile(`[ \t]{2,}`)
)

// Normalize applies language-specific shaping fixes. No-op for languages
// that do not need them.
func Normalize(text string, c Code) string {
	switch c {
	case Persian, Urdu:
		text = letterVariants.Replace(text)
		text = rePrefixClitic.ReplaceAllString(text, "$1$2"+zwnj+"$3")
		text = reSuffixClitic.ReplaceAllString(text, "$1"+zwnj+"$2$3")
		text = rePunctGlue.ReplaceAllString(text, "$1 $2")
		text = reSpaceRun.ReplaceAllString(text, " ")
		return strings.TrimSpace(text)
	case Arabic:
		text = rePunctGlue.ReplaceAllString(text, "$1 $2")
		text = reSpaceRun.ReplaceAllString(text, " ")
		return strings.TrimSpace(text)
	}
	return text
}
