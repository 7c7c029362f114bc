// Package textnorm cleans raw text extracted from PDF pages before it is chunked.
package textnorm

import (
	"regexp"
	"strings"
)

var (
	// Zs covers the no-break and typographic spaces PDF extraction tends to emit.
	horizontalSpace  = regexp.MustCompile(`[\t\v\f\p{Zs}]+`)
	excessLineBreaks = regexp.MustCompile(`\n(?: *\n){2,}`)
	spaceBeforePunct = regexp.MustCompile(`\s+([.,;:!?)])`)
)

// Normalize rewrites line breaks and whitespace so the text splits cleanly into
// sentences. The rules run in a fixed order and the result is stable: feeding the
// output back in returns it unchanged.
func Normalize(raw string) string {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	text = horizontalSpace.ReplaceAllString(text, " ")
	// blank lines that only carry spaces still count towards the run
	text = excessLineBreaks.ReplaceAllString(text, "\n\n")
	text = spaceBeforePunct.ReplaceAllString(text, "$1")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.Trim(line, " ")
	}
	return strings.Trim(strings.Join(lines, "\n"), " \n")
}
