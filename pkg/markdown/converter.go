package markdown

import (
	"regexp"
	"strings"

	"github.com/russross/blackfriday/v2"
)

var (
	tagPattern       = regexp.MustCompile(`</?([a-zA-Z0-9]+)(?:\s[^>]*)?/?>`)
	tagName          = regexp.MustCompile(`</?([a-zA-Z0-9]+)`)
	codeClass        = regexp.MustCompile(`<code class="[^"]*">`)
	blankLines       = regexp.MustCompile(`\n{3,}`)
	widgetTags       = map[string]bool{"p": true, "br": true, "strong": true, "em": true, "ul": true, "ol": true, "li": true, "code": true, "pre": true, "a": true}
	widgetHTMLFlags  = blackfriday.SkipHTML | blackfriday.Safelink | blackfriday.NofollowLinks | blackfriday.NoreferrerLinks | blackfriday.HrefTargetBlank
	widgetExtensions = blackfriday.CommonExtensions | blackfriday.HardLineBreak
)

// ToWidgetHTML converts a chat reply written in markdown to the small HTML
// subset the chat widget renders. Raw HTML in the input is dropped.
func ToWidgetHTML(markdown string) string {
	if strings.TrimSpace(markdown) == "" {
		return ""
	}

	renderer := blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{Flags: widgetHTMLFlags})
	html := string(blackfriday.Run([]byte(markdown),
		blackfriday.WithExtensions(widgetExtensions),
		blackfriday.WithRenderer(renderer),
	))

	return cleanHTMLForWidget(html)
}

func cleanHTMLForWidget(html string) string {
	html = codeClass.ReplaceAllString(html, "<code>")

	html = tagPattern.ReplaceAllStringFunc(html, func(match string) string {
		m := tagName.FindStringSubmatch(match)
		if len(m) > 1 && widgetTags[strings.ToLower(m[1])] {
			return match
		}
		return ""
	})

	html = blankLines.ReplaceAllString(html, "\n\n")
	return strings.TrimSpace(html)
}
