package markdown

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
)

// labelLinkPatterns caches the compiled label link pattern per repository.
var labelLinkPatterns sync.Map

func labelLinkPattern(owner, repo string) *regexp.Regexp {
	key := strings.ToLower(owner + "/" + repo)
	if re, ok := labelLinkPatterns.Load(key); ok {
		return re.(*regexp.Regexp)
	}
	re := regexp.MustCompile(fmt.Sprintf(
		`(?i:https://github\.com/%s/%s/labels/)([^\s()\[\]<>]+)`,
		regexp.QuoteMeta(owner), regexp.QuoteMeta(repo),
	))
	actual, _ := labelLinkPatterns.LoadOrStore(key, re)
	return actual.(*regexp.Regexp)
}

// DecodeLabelLinks rewrites links to the repository's label pages into
// inline code holding the label name. Trello does not shorten these links
// the way GitHub does. Host, owner and repo match case-insensitively.
func DecodeLabelLinks(md, owner, repo string) string {
	re := labelLinkPattern(owner, repo)
	return re.ReplaceAllStringFunc(md, func(link string) string {
		encoded := re.FindStringSubmatch(link)[1]
		name, err := url.PathUnescape(encoded)
		if err != nil {
			return link
		}
		return "`" + name + "`"
	})
}

// NormalizeLineEndings drops carriage returns and ends the text with
// exactly one newline.
func NormalizeLineEndings(md string) string {
	md = strings.ReplaceAll(md, "\r", "")
	return strings.TrimRight(md, "\n") + "\n"
}

// CleanDescriptionBody prepares an issue body for a card description.
func CleanDescriptionBody(md, owner, repo string) string {
	md = NormalizeLineEndings(md)
	md = RemoveChecklistBlocks(md)
	return DecodeLabelLinks(md, owner, repo)
}
