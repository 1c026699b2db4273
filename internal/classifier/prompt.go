package classifier

import (
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// maxPromptChars caps the page material sent in one prompt.
const maxPromptChars = 24000

const pageSystemPrompt = `You are a helpful assistant that parses the main title of a page and the phrases of its content that could carry a hyperlink.
Answer with a JSON object of the form {"title": string, "keywords": [string]}.
Keywords must be short phrases copied verbatim from the page and must not repeat the title.`

const pairSystemPrompt = `You are an editor who proposes internal links between two websites.
Given a source page and a target page, find phrases in the source content that could link to the target page.
Answer with a JSON object of the form {"candidates": [{"linkFrom": string, "linkFromText": string, "linkTo": string, "linkToReason": string, "linkScore": number}]}.
Rules:
- linkFromText must be copied exactly from the source content, with the same letter case.
- linkFrom is the source URL and linkTo is the target URL.
- linkScore is between 0 and 100 and reflects the semantic relevance between the source content and the target title.
- linkScore must be close to 0 when linkFromText does not closely match the topic of the target title.
- Be conservative and critical when scoring. Do not be generous.
- Return {"candidates": []} when there is no good link.`

// pagePrompt renders the fragment as markdown, which is shorter than HTML
// and keeps headings. The plain text is used when conversion fails.
func pagePrompt(req PageRequest) string {
	body := req.Text
	if strings.TrimSpace(req.Fragment) != "" {
		if md, err := htmltomarkdown.ConvertString(req.Fragment); err == nil && strings.TrimSpace(md) != "" {
			body = md
		}
	}

	var b strings.Builder
	b.WriteString("Parse the main title of the page content and possible keywords for linking based on the content.\n")
	fmt.Fprintf(&b, "URL: %s\n\n", req.URL)
	b.WriteString(clip(body, maxPromptChars))
	return b.String()
}

func pairPrompt(req PairRequest) string {
	half := maxPromptChars / 2

	var b strings.Builder
	b.WriteString("Source page\n")
	fmt.Fprintf(&b, "URL: %s\nTitle: %s\nContent:\n%s\n\n", req.Source.URL, req.Source.Title, clip(req.Source.Content, half))
	b.WriteString("Target page\n")
	fmt.Fprintf(&b, "URL: %s\nTitle: %s\nContent:\n%s\n", req.Target.URL, req.Target.Title, clip(req.Target.Content, half))
	return b.String()
}

// clip shortens s to at most n runes.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
