package images

import (
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"mslearn-downloader/internal/model"
)

// localPrefix is the directory, relative to a rendered page, where
// acquired images live.
const localPrefix = "images/"

// RewriteHTML repoints <img> elements in an HTML fragment at locally
// acquired copies. Images whose acquisition failed keep their remote
// reference so the page still degrades to a hotlink.
//
// Matching tolerates the attribute/asset mismatch left by extraction:
// the asset map is keyed by absolute URL while the markup may still
// hold a relative src, so lookups fall back to the URL path and then
// the basename.
func RewriteHTML(fragment string, assets map[string]*model.ImageAsset) (string, error) {
	if len(assets) == 0 {
		return fragment, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", err
	}

	byURL := make(map[string]*model.ImageAsset, len(assets))
	byPath := make(map[string]*model.ImageAsset, len(assets))
	byBase := make(map[string]*model.ImageAsset, len(assets))
	for u, asset := range assets {
		if !asset.OK {
			continue
		}
		byURL[u] = asset
		if parsed, err := url.Parse(u); err == nil && parsed.Path != "" {
			byPath[parsed.Path] = asset
			byBase[path.Base(parsed.Path)] = asset
		}
	}

	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		asset := matchAsset(sel, byURL, byPath, byBase)
		if asset == nil {
			return
		}
		sel.SetAttr("src", localPrefix+asset.FileName)
		sel.RemoveAttr("data-src")
		sel.RemoveAttr("data-original")
		sel.RemoveAttr("srcset")
	})

	return doc.Find("body").Html()
}

func matchAsset(sel *goquery.Selection, byURL, byPath, byBase map[string]*model.ImageAsset) *model.ImageAsset {
	for _, attr := range []string{"src", "data-src", "data-original"} {
		val, ok := sel.Attr(attr)
		if !ok || val == "" {
			continue
		}
		if asset, ok := byURL[val]; ok {
			return asset
		}
		if parsed, err := url.Parse(val); err == nil && parsed.Path != "" {
			if asset, ok := byPath[parsed.Path]; ok {
				return asset
			}
			if asset, ok := byBase[path.Base(parsed.Path)]; ok {
				return asset
			}
		}
	}
	return nil
}
