package catalog

import (
	"context"
	"errors"
	"math"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"mslearn-downloader/internal/config"
	"mslearn-downloader/internal/httpx"
)

// ErrNotFound is returned when the catalog has no item for a uid.
var ErrNotFound = errors.New("catalog item not found")

// unitBatchSize bounds how many unit uids go into one request; the API
// rejects overly long query strings.
const unitBatchSize = 10

// Client pages through the remote catalog API with retry and backoff.
type Client struct {
	http *httpx.Client
	cfg  config.APIConfig
	log  *logrus.Logger
}

// NewClient creates a catalog API client.
func NewClient(cfg config.APIConfig, log *logrus.Logger) *Client {
	return &Client{
		http: httpx.NewClient(cfg.Timeout),
		cfg:  cfg,
		log:  log,
	}
}

// getCatalog fetches every page of a filtered catalog query, following
// continuation links until the collection is fully enumerated.
func (c *Client) getCatalog(ctx context.Context, params url.Values) (*catalogPage, error) {
	params.Set("locale", c.cfg.Locale)

	page, err := c.getPage(ctx, c.cfg.BaseURL, params)
	if err != nil {
		return nil, err
	}

	for page.NextLink != "" {
		next, err := c.getPage(ctx, page.NextLink, nil)
		if err != nil {
			return nil, err
		}
		page.merge(next)
	}
	return page, nil
}

// getPage fetches a single response page with retry on transient errors.
func (c *Client) getPage(ctx context.Context, rawURL string, params url.Values) (*catalogPage, error) {
	var page catalogPage
	var err error

	for attempt := 0; attempt < c.cfg.RetryAttempts; attempt++ {
		page = catalogPage{}
		err = c.http.GetJSON(ctx, rawURL, cloneValues(params), &page)
		if err == nil {
			return &page, nil
		}
		if !httpx.IsTransient(err) || attempt == c.cfg.RetryAttempts-1 {
			break
		}

		delay := c.backoff(attempt)
		if httpx.IsRateLimited(err) {
			c.log.WithField("url", rawURL).Warnf("catalog rate limited, waiting %s", delay)
		} else {
			c.log.WithField("url", rawURL).Warnf("catalog retry %d/%d in %s: %v",
				attempt+1, c.cfg.RetryAttempts, delay, err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, err
}

func (c *Client) backoff(attempt int) time.Duration {
	return time.Duration(float64(c.cfg.RetryDelay) * math.Pow(c.cfg.RetryExponent, float64(attempt)))
}

// learningPath fetches one learning path by uid.
func (c *Client) learningPath(ctx context.Context, uid string) (*pathDTO, error) {
	page, err := c.getCatalog(ctx, url.Values{"type": {"learningPaths"}, "uid": {uid}})
	if err != nil {
		return nil, err
	}
	if len(page.LearningPaths) == 0 {
		return nil, ErrNotFound
	}
	return &page.LearningPaths[0], nil
}

// course fetches one course by uid.
func (c *Client) course(ctx context.Context, uid string) (*courseDTO, error) {
	page, err := c.getCatalog(ctx, url.Values{"type": {"courses"}, "uid": {uid}})
	if err != nil {
		return nil, err
	}
	if len(page.Courses) == 0 {
		return nil, ErrNotFound
	}
	return &page.Courses[0], nil
}

// modules fetches a set of modules and returns them keyed by uid.
func (c *Client) modules(ctx context.Context, uids []string) (map[string]moduleDTO, error) {
	if len(uids) == 0 {
		return map[string]moduleDTO{}, nil
	}
	page, err := c.getCatalog(ctx, url.Values{
		"type": {"modules"},
		"uid":  {strings.Join(uids, ",")},
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string]moduleDTO, len(page.Modules))
	for _, m := range page.Modules {
		out[m.UID] = m
	}
	return out, nil
}

// units fetches unit metadata in batches and returns it keyed by uid.
// A failed batch is logged and skipped; the remaining batches continue.
func (c *Client) units(ctx context.Context, uids []string) (map[string]unitDTO, error) {
	out := make(map[string]unitDTO, len(uids))
	for start := 0; start < len(uids); start += unitBatchSize {
		end := start + unitBatchSize
		if end > len(uids) {
			end = len(uids)
		}
		page, err := c.getCatalog(ctx, url.Values{
			"type": {"units"},
			"uid":  {strings.Join(uids[start:end], ",")},
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.log.Warnf("failed to fetch batch of %d units: %v", end-start, err)
			continue
		}
		for _, u := range page.Units {
			out[u.UID] = u
		}
	}
	return out, nil
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]`)

// normalize lowercases s and strips everything non-alphanumeric, so a
// query like "PL200" matches the catalog's "PL-200".
func normalize(s string) string {
	return nonAlnum.ReplaceAllString(strings.ToLower(s), "")
}

// SearchResult is one catalog entry matched by Search.
type SearchResult struct {
	UID     string `json:"uid"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Summary string `json:"summary,omitempty"`
	URL     string `json:"url"`
}

// Search scans the requested catalog collections for items matching the
// query by title, summary, uid or course number. Matching is
// case-insensitive with a normalized fallback.
func (c *Client) Search(ctx context.Context, query string, types []string) ([]SearchResult, error) {
	if len(types) == 0 {
		types = []string{"learningPaths", "courses", "modules"}
	}

	queryLower := strings.ToLower(query)
	queryNorm := normalize(query)

	var results []SearchResult
	for _, typeName := range types {
		page, err := c.getCatalog(ctx, url.Values{"type": {typeName}})
		if err != nil {
			return nil, err
		}

		for _, cand := range searchCandidates(typeName, page) {
			if matchesQuery(cand, queryLower, queryNorm) {
				results = append(results, cand.result)
			}
		}
	}
	return results, nil
}

type searchCandidate struct {
	result SearchResult
	fields []string
}

func searchCandidates(typeName string, page *catalogPage) []searchCandidate {
	var out []searchCandidate
	switch typeName {
	case "learningPaths":
		for _, p := range page.LearningPaths {
			out = append(out, searchCandidate{
				result: SearchResult{UID: p.UID, Type: "learningPath", Title: p.Title, Summary: p.Summary, URL: p.URL},
				fields: []string{p.Title, p.Summary, p.UID},
			})
		}
	case "courses":
		for _, crs := range page.Courses {
			out = append(out, searchCandidate{
				result: SearchResult{UID: crs.UID, Type: "course", Title: crs.Title, Summary: crs.Summary, URL: crs.URL},
				fields: []string{crs.Title, crs.Summary, crs.UID, crs.CourseNumber},
			})
		}
	case "modules":
		for _, m := range page.Modules {
			out = append(out, searchCandidate{
				result: SearchResult{UID: m.UID, Type: "module", Title: m.Title, Summary: m.Summary, URL: m.URL},
				fields: []string{m.Title, m.Summary, m.UID},
			})
		}
	}
	return out
}

func matchesQuery(cand searchCandidate, queryLower, queryNorm string) bool {
	for _, f := range cand.fields {
		if strings.Contains(strings.ToLower(f), queryLower) {
			return true
		}
	}
	if queryNorm == "" {
		return false
	}
	for _, f := range cand.fields {
		if strings.Contains(normalize(f), queryNorm) {
			return true
		}
	}
	return false
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
