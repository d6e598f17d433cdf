package sanitize

import (
	"regexp"
	"strings"
)

const transientImageHost = "oaidalleapiprodscus.blob.core.windows.net"

var (
	urlPattern       = regexp.MustCompile(`(?i)\bhttps?://[^\s\]]+`)
	domainPattern    = regexp.MustCompile(`(?i)^https?://(?:www\.)?([^/?#]+)`)
	markdownImage    = regexp.MustCompile(`!\[[^\]]*\]\(https?://[^\s)]+\)`)
	transientImage   = regexp.MustCompile(`(?i)https?://oaidalleapiprodscus\.blob\.core\.windows\.net/[^\s)]+`)
	transientLink    = regexp.MustCompile(`(?i)!?\[[^\]]*\]\(https?://oaidalleapiprodscus\.blob\.core\.windows\.net/[^\s)]+\)`)
	imageExtension   = regexp.MustCompile(`(?i)\.(png|jpg|jpeg|gif|webp)$`)
	imageContextWord = `(?i)(?:image\s+link|link|url|view|download|here|source)\s*:?\s*`
)

// trailing punctuation that belongs to the sentence, not the URL
const urlTrailer = ".,;:!?'\""

// LinkURLs replaces bare URLs with descriptive markdown links. URLs that are
// already a markdown link target, or that point at transient generated-image
// storage, are left as they are.
func LinkURLs(text string) string {
	locs := urlPattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return text
	}

	var b strings.Builder
	prev := 0
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		url := trimURL(text[start:end])
		end = start + len(url)

		b.WriteString(text[prev:start])
		prev = end

		if isLinkTarget(text, start) || isLinkText(text, end) || isTransientImage(url) || url == "" {
			b.WriteString(url)
			continue
		}
		b.WriteString("[" + linkLabel(url) + "](" + url + ")")
	}
	b.WriteString(text[prev:])
	return b.String()
}

// trimURL drops sentence punctuation and any closing parens that have no
// opening partner inside the URL, so "(see https://x.com)" stops before the
// paren while ".../Go_(programming_language)" keeps it.
func trimURL(url string) string {
	for {
		url = strings.TrimRight(url, urlTrailer)
		if !strings.HasSuffix(url, ")") || strings.Count(url, ")") <= strings.Count(url, "(") {
			return url
		}
		url = url[:len(url)-1]
	}
}

func isLinkTarget(text string, start int) bool {
	return strings.HasSuffix(text[:start], "](") || strings.HasSuffix(text[:start], "<")
}

func isLinkText(text string, end int) bool {
	return strings.HasPrefix(text[end:], "](")
}

func isTransientImage(url string) bool {
	return strings.Contains(strings.ToLower(url), transientImageHost)
}

func linkLabel(url string) string {
	domain := ""
	if m := domainPattern.FindStringSubmatch(url); m != nil {
		domain = strings.ToLower(m[1])
	}

	switch {
	case strings.Contains(domain, "github.com"):
		return "View on GitHub"
	case strings.Contains(domain, "stackoverflow.com"):
		return "View on Stack Overflow"
	case strings.Contains(domain, "youtube.com"), strings.Contains(domain, "youtu.be"):
		return "Watch on YouTube"
	case strings.Contains(domain, "docs."):
		return "View documentation"
	case strings.Contains(domain, "wikipedia.org"):
		return "Read on Wikipedia"
	}
	return "Visit link"
}

// StripImageURLs removes every textual reference to the given image URLs,
// along with markdown images, transient generated-image URLs and bare image
// file URLs.
func StripImageURLs(text string, imageURLs []string) string {
	text = markdownImage.ReplaceAllString(text, "")

	for _, u := range imageURLs {
		if u == "" {
			continue
		}
		quoted := regexp.QuoteMeta(u)
		text = regexp.MustCompile(`\[[^\]]*\]\(`+quoted+`\)`).ReplaceAllString(text, "")
		text = regexp.MustCompile(imageContextWord+quoted).ReplaceAllString(text, "")
		text = strings.ReplaceAll(text, u, "")
	}

	text = transientImage.ReplaceAllString(text, "")
	return stripBareImageFiles(text)
}

// StripTransientImages removes generated-image URLs that expire shortly after
// they are issued, together with any markdown link or image wrapping them.
// Text without such URLs is returned unchanged.
func StripTransientImages(text string) string {
	if !transientImage.MatchString(text) {
		return text
	}
	text = transientLink.ReplaceAllString(text, "")
	text = transientImage.ReplaceAllString(text, "")
	return tidy(text)
}

func stripBareImageFiles(text string) string {
	locs := urlPattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return text
	}

	var b strings.Builder
	prev := 0
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		url := trimURL(text[start:end])
		end = start + len(url)

		path := url
		if i := strings.IndexAny(path, "?#"); i >= 0 {
			path = path[:i]
		}
		if isLinkTarget(text, start) || !imageExtension.MatchString(path) {
			continue
		}
		b.WriteString(text[prev:start])
		prev = end
	}
	b.WriteString(text[prev:])
	return b.String()
}
