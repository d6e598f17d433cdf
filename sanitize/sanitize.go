// Package sanitize cleans final assistant text before it is stored or shown.
//
// Clean removes leaked reasoning narration and tool JSON, strips references
// to images that are delivered separately, and turns bare URLs into labelled
// markdown links. The passes are repeated until the text stops changing, so
// Clean(Clean(s)) == Clean(s).
package sanitize

import (
	"regexp"
	"strings"
)

const maxPasses = 16

// Clean returns text with artifacts removed. imageURLs lists the images that
// accompany the message; any reference to them is removed from the text.
func Clean(text string, imageURLs []string) string {
	cur := text
	for i := 0; i < maxPasses; i++ {
		next := pass(cur, imageURLs)
		if next == cur {
			break
		}
		cur = next
	}
	return cur
}

func pass(text string, imageURLs []string) string {
	if text == "" {
		return text
	}
	text = StripArtifacts(text)
	if len(imageURLs) > 0 {
		text = StripImageURLs(text, imageURLs)
	}
	text = LinkURLs(text)
	return tidy(text)
}

var (
	excessNewlines = regexp.MustCompile(`\n[ \t\r\f\v]*\n\s*\n`)
	leadingTitle   = regexp.MustCompile(`^\s*\{\s*"title"\s*:\s*"[^"]+"\s*\}\s*`)
	trailingSpace  = regexp.MustCompile(`(?m)[ \t]+$`)
	innerSpaces    = regexp.MustCompile(`(\S)[ \t]{2,}`)
	orphanPunct    = regexp.MustCompile(`(\S)[ \t]+([.,;:])(\s|$)`)
)

func tidy(text string) string {
	text = closeGaps(text)
	text = trailingSpace.ReplaceAllString(text, "")
	for excessNewlines.MatchString(text) {
		text = excessNewlines.ReplaceAllString(text, "\n\n")
	}
	text = strings.TrimSpace(text)
	text = leadingTitle.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// closeGaps collapses the runs of spaces and the stray punctuation left where
// a URL was cut out of prose. Indentation and fenced code are not touched.
func closeGaps(text string) string {
	lines := strings.Split(text, "\n")
	inFence := false
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		line = innerSpaces.ReplaceAllString(line, "$1 ")
		lines[i] = orphanPunct.ReplaceAllString(line, "$1$2$3")
	}
	return strings.Join(lines, "\n")
}
