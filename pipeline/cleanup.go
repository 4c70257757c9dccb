package pipeline

import (
	"regexp"
	"strings"
)

// Recurring mis-hearings worth fixing before the text reaches the paste
// sink. Matched case-insensitively.
var wordMappings = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`(?i)super[- ]?base`), "Supabase"},
	{regexp.MustCompile(`(?i)next\.?js`), "Next.js"},
	{regexp.MustCompile(`(?i)\bversal\b`), "Vercel"},
	{regexp.MustCompile(`(?i)\bmtp\b`), "MCP"},
	{regexp.MustCompile(`[Ff]ile ID`), "file_id"},
}

var (
	spaceBeforePunct   = regexp.MustCompile(`[ \t]+([.,?!])`)
	spaceAfterPunct    = regexp.MustCompile(`([.,?!])[ \t]+`)
	punctBeforeNewline = regexp.MustCompile(`[.,][ \t]*\n`)
	multiNewline       = regexp.MustCompile(`\n{3,}`)
)

// Cleanup normalizes engine output for insertion: canonical word forms,
// no space before punctuation and a single space after it, no stray
// punctuation before line breaks, runs of blank lines collapsed to one,
// lines trimmed. Punctuation inside words ("Next.js") is left alone.
func Cleanup(text string) string {
	for _, m := range wordMappings {
		text = m.pattern.ReplaceAllString(text, m.replacement)
	}

	text = spaceBeforePunct.ReplaceAllString(text, "$1")
	text = spaceAfterPunct.ReplaceAllString(text, "$1 ")
	text = punctBeforeNewline.ReplaceAllString(text, "\n")
	text = multiNewline.ReplaceAllString(text, "\n\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
