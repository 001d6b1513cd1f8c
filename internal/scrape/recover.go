package scrape

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/sirupsen/logrus"

	"mslearn-downloader/internal/httpx"
	"mslearn-downloader/internal/model"
)

// ErrUnresolvedUnit is returned when URL recovery could not locate a
// working address for a unit. The unit is marked failed; the enclosing
// item continues.
var ErrUnresolvedUnit = errors.New("unit URL could not be resolved")

// maxTitleRank bounds the fuzzy match distance accepted when matching a
// unit title against the module page's navigation anchors. The rank is
// fuzzysearch's Levenshtein-style distance; larger values admit looser
// matches. Anchors usually wrap the exact title in extra text, so the
// tolerance is deliberately generous.
const maxTitleRank = 12

// slugPrefixRe strips product prefixes that the catalog bakes into unit
// uids but the site drops from URL slugs.
var slugPrefixRe = regexp.MustCompile(`^(flow|power-apps|canvas-apps|model-driven-apps)-`)

// Recoverer locates corrected unit URLs when the nominal address fails.
//
// The strategy is layered, best-effort:
//
//  1. Parse the parent module page's unit listing and match by unit uid
//  2. Fuzzy-match the unit title against the listing's anchor texts
//  3. Fall back to the anchor at the unit's ordinal position
//  4. Probe common slug patterns derived from the uid and title
type Recoverer struct {
	client *httpx.Client
	log    *logrus.Logger
}

// NewRecoverer creates a Recoverer using the shared HTTP client.
func NewRecoverer(client *httpx.Client, log *logrus.Logger) *Recoverer {
	return &Recoverer{client: client, log: log}
}

// Recover returns a corrected absolute URL for the unit, or
// ErrUnresolvedUnit when every heuristic fails.
func (r *Recoverer) Recover(ctx context.Context, unit *model.UnitRef) (string, error) {
	if corrected := r.fromModulePage(ctx, unit); corrected != "" {
		return corrected, nil
	}
	if corrected := r.probeSlugs(ctx, unit); corrected != "" {
		return corrected, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnresolvedUnit, unit.UID)
}

// unitAnchor is one entry of a module page's unit listing.
type unitAnchor struct {
	uid   string
	title string
	href  string
}

// fromModulePage fetches the parent module page and matches the unit
// against its navigation listing. Returns "" on any failure.
func (r *Recoverer) fromModulePage(ctx context.Context, unit *model.UnitRef) string {
	if unit.ModuleURL == "" {
		return ""
	}

	html, err := r.client.GetString(ctx, unit.ModuleURL)
	if err != nil || IsSoft404(html) {
		r.log.WithField("unit", unit.UID).Debugf("module page unavailable for recovery: %v", err)
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	anchors := moduleUnitAnchors(doc)
	if len(anchors) == 0 {
		return ""
	}

	// Exact uid match first.
	for _, a := range anchors {
		if a.uid == unit.UID {
			return r.absolute(unit, a.href)
		}
	}

	// Fuzzy title match against anchor texts.
	if unit.Title != "" {
		bestRank := -1
		bestHref := ""
		for _, a := range anchors {
			rank := fuzzy.RankMatchNormalizedFold(unit.Title, a.title)
			if rank < 0 || rank > maxTitleRank {
				continue
			}
			if bestRank < 0 || rank < bestRank {
				bestRank = rank
				bestHref = a.href
			}
		}
		if bestHref != "" {
			return r.absolute(unit, bestHref)
		}
	}

	// Ordinal position as a last structural resort.
	if unit.Number >= 1 && unit.Number <= len(anchors) {
		return r.absolute(unit, anchors[unit.Number-1].href)
	}
	return ""
}

// moduleUnitAnchors extracts the module page's unit listing.
func moduleUnitAnchors(doc *goquery.Document) []unitAnchor {
	var anchors []unitAnchor
	doc.Find("li.module-unit").Each(func(_ int, li *goquery.Selection) {
		link := li.Find("a.unit-title").First()
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return
		}
		uid, _ := li.Attr("data-unit-uid")
		anchors = append(anchors, unitAnchor{
			uid:   uid,
			title: strings.TrimSpace(link.Text()),
			href:  href,
		})
	})
	return anchors
}

// absolute resolves a listing href against the module page address.
func (r *Recoverer) absolute(unit *model.UnitRef, href string) string {
	base, err := url.Parse(strings.TrimRight(unit.ModuleURL, "/") + "/")
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// probeSlugs tries the common unit slug patterns until one serves real
// content. Probing is quiet: 404s are expected.
func (r *Recoverer) probeSlugs(ctx context.Context, unit *model.UnitRef) string {
	base := strings.TrimRight(unit.ModuleURL, "/")
	if base == "" {
		return ""
	}

	for _, slug := range slugCandidates(unit) {
		candidate := base + "/" + slug
		if candidate == unit.NominalURL {
			continue // already failed as the direct fetch
		}
		html, err := r.client.GetString(ctx, candidate)
		if err != nil || IsSoft404(html) {
			if ctx.Err() != nil {
				return ""
			}
			continue
		}
		return candidate
	}
	return ""
}

// slugCandidates derives candidate URL slugs for a unit, ordered from
// most to least common, with duplicates removed.
func slugCandidates(unit *model.UnitRef) []string {
	parts := strings.Split(unit.UID, ".")
	uidSlug := parts[len(parts)-1]
	titleSlug := Slugify(unit.Title)
	cleaned := slugPrefixRe.ReplaceAllString(uidSlug, "")

	raw := []string{
		fmt.Sprintf("%d-%s", unit.Number, uidSlug),
		fmt.Sprintf("%d-%s", unit.Number, titleSlug),
		uidSlug,
		titleSlug,
		fmt.Sprintf("%d-%s", unit.Number, cleaned),
		cleaned,
		fmt.Sprintf("%d-introduction", unit.Number),
	}

	seen := make(map[string]struct{}, len(raw))
	var out []string
	for _, s := range raw {
		if s == "" || strings.HasSuffix(s, "-") {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
