package generator

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// moduleTitleOverrides relabels modules whose name contains a known fragment.
// Checked in order before the default title casing.
var moduleTitleOverrides = []struct {
	contains string
	title    string
}{
	{contains: "webservices", title: "WebServices"},
}

// ModuleTitle returns the display label used for a module in scanner configuration.
// Without an override every run of letters is title-cased on its own, so
// "foo_bar" becomes "Foo_Bar" and "abc1def" becomes "Abc1Def".
func ModuleTitle(name string) string {
	lower := strings.ToLower(name)
	for _, o := range moduleTitleOverrides {
		if strings.Contains(lower, o.contains) {
			return o.title
		}
	}
	return titleWords(name)
}

func titleWords(name string) string {
	caser := cases.Title(language.Und)

	var b strings.Builder
	b.Grow(len(name))
	start := -1
	for i, r := range name {
		if unicode.IsLetter(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			b.WriteString(caser.String(name[start:i]))
			start = -1
		}
		b.WriteRune(r)
	}
	if start >= 0 {
		b.WriteString(caser.String(name[start:]))
	}
	return b.String()
}
