package scrape

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"mslearn-downloader/internal/model"
)

// mainContentSelectors are tried in order; the first match becomes the
// unit's content region.
var mainContentSelectors = []string{
	"main .content",
	"main article",
	`main [data-bi-name="content"]`,
	`main [role="main"]`,
	"article",
	"main",
}

// unwantedSelectors name the chrome stripped from the content region.
var unwantedSelectors = []string{
	"nav",
	"header",
	"footer",
	".nav",
	".navigation",
	".feedback",
	".page-metadata",
	".contributors",
	".alert-banner",
	`[data-bi-name="feedback"]`,
	".margin-note",
	".is-invisible",
	"script",
	"style",
}

var soft404Markers = []string{
	"404 - page not found",
	"we couldn't find this page",
}

// IsSoft404 detects content-host "not found" pages that are served with
// a 200 status.
func IsSoft404(html string) bool {
	lower := strings.ToLower(html)
	for _, m := range soft404Markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// ExtractMainContent returns the cleaned main content region of a unit
// page, or nil when no candidate region exists.
func ExtractMainContent(doc *goquery.Document) *goquery.Selection {
	for _, selector := range mainContentSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		formatQuiz(sel)
		sel.Find(strings.Join(unwantedSelectors, ", ")).Remove()
		return sel
	}
	return nil
}

// formatQuiz rewrites the hidden interactive quiz form into static
// headings and answer lists so the rendered document keeps the
// knowledge-check content.
func formatQuiz(content *goquery.Selection) {
	form := content.Find("#question-container").First()
	if form.Length() == 0 {
		return
	}

	var b strings.Builder
	b.WriteString(`<div class="formatted-quiz">`)
	form.Find(".quiz-question").Each(func(_ int, q *goquery.Selection) {
		title := q.Find(".quiz-question-title p").First()
		if title.Length() == 0 {
			title = q.Find(".quiz-question-title").First()
		}
		text := strings.TrimSpace(title.Text())
		if text == "" {
			return
		}
		fmt.Fprintf(&b, "<h3>Question: %s</h3><ul>", escapeText(text))
		q.Find(".quiz-choice .radio-label-text").Each(func(_ int, choice *goquery.Selection) {
			fmt.Fprintf(&b, "<li>%s</li>", escapeText(strings.TrimSpace(choice.Text())))
		})
		b.WriteString("</ul><hr/>")
	})
	b.WriteString("</div>")

	form.ReplaceWithHtml(b.String())
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeText(s string) string {
	return htmlEscaper.Replace(s)
}

// ExtractImages collects the content images referenced inside the
// cleaned region. Decorative images are excluded entirely:
//
//   - role="presentation" images are navigational/decorative
//   - anything under an /achievements/ or /badges/ path segment
//
// Images with descriptive alt text, or with no role attribute at all,
// count as content. URLs are absolutized against the unit page address.
func ExtractImages(content *goquery.Selection, baseURL string) []model.ImageRef {
	base, err := url.Parse(baseURL)
	if err != nil {
		base = nil
	}

	var refs []model.ImageRef
	content.Find("img").Each(func(_ int, img *goquery.Selection) {
		src := firstAttr(img, "src", "data-src", "data-original")
		if src == "" {
			return
		}

		absolute := src
		if base != nil {
			if ref, err := url.Parse(src); err == nil {
				absolute = base.ResolveReference(ref).String()
			}
		}

		role, _ := img.Attr("role")
		alt, _ := img.Attr("alt")

		if role == "presentation" {
			return
		}
		if strings.Contains(absolute, "/achievements/") || strings.Contains(absolute, "/badges/") {
			return
		}
		if alt == "" && role != "" {
			return
		}

		refs = append(refs, model.ImageRef{
			SourceURL: absolute,
			Alt:       alt,
			Referer:   baseURL,
			Kind:      imageKind(absolute),
		})
	})
	return refs
}

func imageKind(rawURL string) model.ImageKind {
	u, err := url.Parse(rawURL)
	if err != nil {
		return model.KindRaster
	}
	if strings.HasSuffix(strings.ToLower(u.Path), ".svg") {
		return model.KindVector
	}
	return model.KindRaster
}

func firstAttr(sel *goquery.Selection, names ...string) string {
	for _, name := range names {
		if v, ok := sel.Attr(name); ok && v != "" {
			return v
		}
	}
	return ""
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowers text into a URL-friendly slug.
func Slugify(text string) string {
	return strings.Trim(slugRe.ReplaceAllString(strings.ToLower(text), "-"), "-")
}
