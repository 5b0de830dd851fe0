package utils

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var tagPattern = regexp.MustCompile(`<[^<]+?>`)

// StripMarkup converts an HTML post body into plain text for WhatsApp.
func StripMarkup(body string) string {
	if !strings.Contains(body, "<") {
		return strings.TrimSpace(body)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return strings.TrimSpace(tagPattern.ReplaceAllString(body, ""))
	}

	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p").Each(func(i int, s *goquery.Selection) {
		if i > 0 {
			s.PrependHtml("\n")
		}
	})

	return strings.TrimSpace(doc.Text())
}
