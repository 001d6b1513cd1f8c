package scrape

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"mslearn-downloader/internal/httpx"
	"mslearn-downloader/internal/model"
)

// ErrUnitUnavailable is returned when a unit's content could not be
// fetched, including after URL recovery. It marks the unit failed but is
// never fatal to the enclosing item or job.
var ErrUnitUnavailable = errors.New("unit content unavailable")

// Fetcher retrieves and cleans the HTML content of units.
type Fetcher struct {
	client    *httpx.Client
	recoverer *Recoverer
	log       *logrus.Logger
}

// NewFetcher creates a Fetcher that falls back to the given Recoverer.
func NewFetcher(client *httpx.Client, recoverer *Recoverer, log *logrus.Logger) *Fetcher {
	return &Fetcher{client: client, recoverer: recoverer, log: log}
}

// Fetch retrieves the cleaned content for one unit.
//
// Sequence: direct fetch of the resolved URL when cached, else the
// nominal URL; on a not-found condition invoke URL recovery exactly
// once, cache the corrected address on the UnitRef, and retry the fetch
// once. Any further failure yields ErrUnitUnavailable.
func (f *Fetcher) Fetch(ctx context.Context, unit *model.UnitRef) (*model.UnitContent, error) {
	fetchURL := unit.FetchURL()
	html, err := f.fetchPage(ctx, fetchURL)

	if err != nil && unit.ResolvedURL == "" {
		if !isNotFoundCondition(err) {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnitUnavailable, unit.UID, err)
		}

		corrected, rerr := f.recoverer.Recover(ctx, unit)
		if rerr != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnitUnavailable, unit.UID, rerr)
		}
		f.log.WithField("unit", unit.UID).Debugf("recovered URL %s", corrected)

		html, err = f.fetchPage(ctx, corrected)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: recovered URL failed: %v", ErrUnitUnavailable, unit.UID, err)
		}
		fetchURL = corrected
	} else if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnitUnavailable, unit.UID, err)
	}

	// Cache-on-success: the address that served content becomes the
	// unit's resolved URL and is never re-derived within the job.
	if unit.ResolvedURL == "" {
		unit.ResolvedURL = fetchURL
	}

	return f.parse(unit, fetchURL, html)
}

// fetchPage retrieves a page and normalizes soft 404s into errors.
func (f *Fetcher) fetchPage(ctx context.Context, rawURL string) (string, error) {
	html, err := f.client.GetString(ctx, rawURL)
	if err != nil {
		return "", err
	}
	if IsSoft404(html) {
		return "", errSoft404
	}
	return html, nil
}

var errSoft404 = errors.New("page served a not-found marker")

// isNotFoundCondition reports whether a direct fetch failure should
// trigger URL recovery rather than an immediate unit failure: a hard or
// soft 404, or a redirect loop.
func isNotFoundCondition(err error) bool {
	return httpx.IsNotFound(err) || errors.Is(err, errSoft404) || isRedirectLoop(err)
}

func isRedirectLoop(err error) bool {
	var ue *url.Error
	return errors.As(err, &ue) && strings.Contains(ue.Err.Error(), "stopped after")
}

func (f *Fetcher) parse(unit *model.UnitRef, fetchURL, html string) (*model.UnitContent, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: parsing page: %v", ErrUnitUnavailable, unit.UID, err)
	}

	content := ExtractMainContent(doc)
	if content == nil {
		f.log.WithField("unit", unit.UID).Warn("no main content region found")
		return nil, fmt.Errorf("%w: %s: no main content region", ErrUnitUnavailable, unit.UID)
	}

	fragment, err := goquery.OuterHtml(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: serializing content: %v", ErrUnitUnavailable, unit.UID, err)
	}

	return &model.UnitContent{
		UnitUID: unit.UID,
		Title:   unit.Title,
		URL:     fetchURL,
		HTML:    fragment,
		Text:    content.Text(),
		Images:  ExtractImages(content, fetchURL),
	}, nil
}
