package conversation

import (
	"regexp"
	"strings"
)

var (
	runOnBulletRE = regexp.MustCompile(`([^\n])[ \t]+(- \[[^\]\n]+\]\([^)\n]*\))`)
	inlineImageRE = regexp.MustCompile(`([^\n])[ \t]+(!\[[^\]\n]*\]\([^)\n]+\))`)
	excessBlankRE = regexp.MustCompile(`\n{3,}`)
	bulletLineRE  = regexp.MustCompile(`^\s*- \[`)
	imageLineRE   = regexp.MustCompile(`^\s*!\[`)
)

const maxFixupPasses = 8

// ReplySanitizer repairs list formatting the widget renderer depends on:
// one bullet per line, pictures on their own line, a blank line before each list.
type ReplySanitizer struct{}

func NewReplySanitizer() *ReplySanitizer {
	return &ReplySanitizer{}
}

func (s *ReplySanitizer) Sanitize(reply string) string {
	text := strings.ReplaceAll(reply, "\r\n", "\n")
	text = replaceUntilStable(runOnBulletRE, text, "$1\n$2")
	text = replaceUntilStable(inlineImageRE, text, "$1\n$2")
	text = separateLists(text)
	text = excessBlankRE.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func replaceUntilStable(re *regexp.Regexp, text, repl string) string {
	for i := 0; i < maxFixupPasses; i++ {
		next := re.ReplaceAllString(text, repl)
		if next == text {
			break
		}
		text = next
	}
	return text
}

func separateLists(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines)+2)
	for i, line := range lines {
		if i > 0 && bulletLineRE.MatchString(line) {
			prev := lines[i-1]
			if strings.TrimSpace(prev) != "" && !bulletLineRE.MatchString(prev) && !imageLineRE.MatchString(prev) {
				out = append(out, "")
			}
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
