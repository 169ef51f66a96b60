package normalize

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	contentPolicy = newContentPolicy()

	reBreak     = regexp.MustCompile(`(?i)<br\s*/?>\s*`)
	reBlockEnd  = regexp.MustCompile(`(?i)</(p|div)>`)
	reItemStart = regexp.MustCompile(`(?i)<li>`)
	reItemEnd   = regexp.MustCompile(`(?i)</li>`)
	reAnyTag    = regexp.MustCompile(`<[^>]+>`)
	reNbsp      = regexp.MustCompile(`(?i)&nbsp;|\x{00A0}`)
	reNewlines  = regexp.MustCompile(`\n{2,}`)
)

func newContentPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "ul", "ol", "li", "strong", "em", "b", "i")
	return p
}

// SanitizeContent flattens job description HTML into trimmed, non-empty lines.
// List items keep a bullet prefix. Unparsable markup yields fewer lines, never an error.
func SanitizeContent(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	s := contentPolicy.Sanitize(raw)
	s = reBreak.ReplaceAllString(s, "\n")
	s = reBlockEnd.ReplaceAllString(s, "\n")
	s = reItemStart.ReplaceAllString(s, "• ")
	s = reItemEnd.ReplaceAllString(s, "\n")
	s = reAnyTag.ReplaceAllString(s, "")
	s = reNbsp.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = reNewlines.ReplaceAllString(s, "\n")

	lines := make([]string, 0, strings.Count(s, "\n")+1)
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
