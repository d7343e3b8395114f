package clean

import (
	"regexp"
	"strings"
)

var (
	scriptRE     = regexp.MustCompile(`(?is)<script.*?</script>`)
	styleRE      = regexp.MustCompile(`(?is)<style.*?</style>`)
	tagRE        = regexp.MustCompile(`(?s)<[^>]+>`)
	whitespaceRE = regexp.MustCompile(`[ \t]+`)
	blankLinesRE = regexp.MustCompile(`\n{3,}`)
)

// boilerplate lines that carry no company facts; matched case-insensitively
// against whole trimmed lines.
var noiseLines = []string{
	"accept cookies",
	"cookie policy",
	"privacy policy",
	"terms of service",
	"terms and conditions",
	"all rights reserved",
	"skip to content",
	"skip to main content",
	"subscribe to our newsletter",
	"sign up",
	"log in",
	"login",
	"menu",
	"search",
}

// Clean strips residual markup and boilerplate from scraped page text.
// Readability extraction upstream does the heavy lifting; this pass
// removes what slips through so chunks stay fact-dense.
func Clean(raw string) string {
	text := scriptRE.ReplaceAllString(raw, " ")
	text = styleRE.ReplaceAllString(text, " ")
	text = tagRE.ReplaceAllString(text, " ")
	text = whitespaceRE.ReplaceAllString(text, " ")

	var kept []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			kept = append(kept, "")
			continue
		}
		if isNoise(line) {
			continue
		}
		kept = append(kept, line)
	}
	out := strings.Join(kept, "\n")
	out = blankLinesRE.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

func isNoise(line string) bool {
	lower := strings.ToLower(line)
	for _, n := range noiseLines {
		if lower == n {
			return true
		}
	}
	return false
}

// EstimateTokens approximates the token count of a text. Four characters
// per token is close enough for chunk sizing and budget estimates.
func EstimateTokens(text string) int {
	return len(text) / 4
}
