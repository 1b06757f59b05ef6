package generator

import "strings"

// Placeholder tokens recognised in the configuration template
const (
	PlaceholderURL        = "{url}"
	PlaceholderLogin      = "{login}"
	PlaceholderPassword   = "{password}"
	PlaceholderRepository = "{repository}"
	PlaceholderSystem     = "{system}"
	PlaceholderBranch     = "{branch}"
	PlaceholderSources    = "{sources}"
	PlaceholderFiles      = "{files}"
	PlaceholderLanguage   = "{language}"
	PlaceholderModules    = "{modules}"
)

// placeholderOrder lists the tokens Render recognises
var placeholderOrder = []string{
	PlaceholderURL,
	PlaceholderLogin,
	PlaceholderPassword,
	PlaceholderRepository,
	PlaceholderSystem,
	PlaceholderBranch,
	PlaceholderSources,
	PlaceholderFiles,
	PlaceholderLanguage,
	PlaceholderModules,
}

// Render substitutes placeholders in a single pass, so a value that itself
// contains a {token} is written literally. Line endings and unknown tokens
// are preserved verbatim.
func Render(template string, values map[string]string) string {
	pairs := make([]string, 0, 2*len(placeholderOrder))
	for _, token := range placeholderOrder {
		if value, ok := values[token]; ok {
			pairs = append(pairs, token, value)
		}
	}
	if len(pairs) == 0 {
		return template
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
