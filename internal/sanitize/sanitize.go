// Package sanitize normalizes model output before it is shown to a user.
package sanitize

import "strings"

var (
	lineBreaks = strings.NewReplacer(
		"<br />", "\n",
		"<br/>", "\n",
		"<br>", "\n",
	)

	// Zero-width space, byte order mark, left-to-right and right-to-left marks.
	invisible = strings.NewReplacer(
		"\u200b", "",
		"\ufeff", "",
		"\u200e", "",
		"\u200f", "",
	)

	// Hyphen, non-breaking hyphen, figure dash, en dash, em dash.
	hyphens = strings.NewReplacer(
		"\u2010", "-",
		"\u2011", "-",
		"\u2012", "-",
		"\u2013", "-",
		"\u2014", "-",
	)
)

// Advice replaces HTML line breaks with newlines, strips invisible formatting
// characters and folds dash variants to the ASCII hyphen. Markdown structure is
// left untouched. Empty input is returned as is.
//
// Invisible characters are stripped before line breaks are matched so that a mark
// hidden inside the markup ("<b\u200br>") cannot leave a "<br>" behind for a second pass.
func Advice(text string) string {
	if text == "" {
		return text
	}
	text = invisible.Replace(text)
	text = lineBreaks.Replace(text)
	return hyphens.Replace(text)
}
