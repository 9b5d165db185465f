// Package lang classifies input text into the small set of languages the
// relay localizes prompts for, and post-processes generated text for scripts
// that need shaping fixes.
package lang

// Code identifies a supported language.
type Code string

const (
	English Code = "en"
	Persian Code = "fa"
	Arabic  Code = "ar"
	Hebrew  Code = "he"
	Urdu    Code = "ur"
)

// Supported lists every language the prompt tables cover.
func Supported() []Code {
	return []Code{English, Persian, Arabic, Hebrew, Urdu}
}

// Direction reports the display direction for a language.
func Direction(c Code) string {
	switch c {
	case Persian, Arabic, Hebrew, Urdu:
		return "rtl"
	}
	return "ltr"
}
