package sanitize

import "regexp"

var searchArtifacts = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\{"query"\s*:\s*"[^"]*",\s*"top"\s*:\s*\d+,\s*"source"\s*:\s*"[^"]*"\}\s*`),
	regexp.MustCompile(`(?i)(?:\{"query"\s*:\s*"[^"]*"[^}]*\}\s*)+`),
	regexp.MustCompile(`(?i)\{"search_results"\s*:\s*\[[^\]]*\]\s*\}`),
	regexp.MustCompile(`(?i)\{"title"\s*:\s*"[^"]*",\s*"link"\s*:\s*"https?://[^"]*"[^}]*\}`),
	regexp.MustCompile(`(?m)^[ \t]*\{"[^"]*"\s*:\s*"[^"]*"[^}\n]*\}[ \t]*$`),
	regexp.MustCompile(`(?m)^[ \t]*\{[^{}\n]*(?:"query"|"top"|"source")[^{}\n]*\}[ \t]*$`),
}

// Sentence-initial narration the model emits while it works.
var reasoningPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^I'll\s+[^.]*\.\s*`),
	regexp.MustCompile(`(?i)Searching for[^.]*\.\s*`),
	regexp.MustCompile(`(?i)Performing[^.]*\.\s*`),
	regexp.MustCompile(`(?i)Pulling[^.]*\.\s*`),
	regexp.MustCompile(`(?i)Querying[^.]*\.\s*`),
	regexp.MustCompile(`(?i)Fetching[^.]*\.\s*`),
	regexp.MustCompile(`(?i)Almost done[^.]*\.\s*`),
	regexp.MustCompile(`(?i)Compiling[^.]*\.\s*`),
	regexp.MustCompile(`(?i)Providing[^.]*\.\s*`),
	regexp.MustCompile(`(?im)^Let me[^.]*\.\s*`),
	regexp.MustCompile(`(?im)^I'm[^.]*\.\s*`),
	regexp.MustCompile(`(?im)^I need to[^.]*\.\s*`),
}

// StripArtifacts removes leaked search/tool JSON and reasoning narration.
// URLs are left untouched by the narration patterns.
func StripArtifacts(text string) string {
	for _, re := range searchArtifacts {
		text = re.ReplaceAllString(text, "")
	}
	for _, re := range reasoningPatterns {
		text = replaceOutsideURLs(text, re)
	}
	return text
}

// replaceOutsideURLs deletes matches of re in the text between URLs.
func replaceOutsideURLs(text string, re *regexp.Regexp) string {
	locs := urlPattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return re.ReplaceAllString(text, "")
	}

	var out []byte
	prev := 0
	for i, loc := range locs {
		loc[1] = loc[0] + len(trimURL(text[loc[0]:loc[1]]))
		segment := text[prev:loc[0]]
		if i > 0 {
			// Anchored patterns only apply to the real start of the text.
			segment = reNoStart(re, segment)
		} else {
			segment = re.ReplaceAllString(segment, "")
		}
		out = append(out, segment...)
		out = append(out, text[loc[0]:loc[1]]...)
		prev = loc[1]
	}
	out = append(out, reNoStart(re, text[prev:])...)
	return string(out)
}

// reNoStart applies re to a mid-text segment without letting a ^ anchor
// match at the segment boundary.
func reNoStart(re *regexp.Regexp, segment string) string {
	const guard = "\x00"
	replaced := re.ReplaceAllString(guard+segment, "")
	if len(replaced) > 0 && replaced[0] == guard[0] {
		return replaced[1:]
	}
	return replaced
}
