package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mslearn-downloader/internal/httpx"
	"mslearn-downloader/internal/model"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newFetcher() (*Fetcher, *httpx.Client) {
	client := httpx.NewClient(5 * time.Second)
	log := testLogger()
	return NewFetcher(client, NewRecoverer(client, log), log), client
}

const unitPage = `<html><body>
<nav>site nav</nav>
<main>
  <div class="content">
    <header>unit header chrome</header>
    <h1>Introduction</h1>
    <p>Instructional text.</p>
    <img src="/media/diagram.png" alt="Architecture diagram">
    <img src="/media/divider.png" role="presentation" alt="">
    <img src="https://cdn.example.com/achievements/badge.svg" alt="Badge">
    <img src="icons/flow.svg" alt="Flow chart">
    <div class="feedback">Was this helpful?</div>
  </div>
</main>
<footer>footer</footer>
</body></html>`

func TestExtractMainContentAndImages(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(unitPage))
	require.NoError(t, err)

	content := ExtractMainContent(doc)
	require.NotNil(t, content)

	html, err := goquery.OuterHtml(content)
	require.NoError(t, err)
	assert.Contains(t, html, "Instructional text.")
	assert.NotContains(t, html, "unit header chrome")
	assert.NotContains(t, html, "Was this helpful?")
	assert.NotContains(t, html, "site nav")

	refs := ExtractImages(content, "https://learn.example.com/training/modules/m/1-intro")
	require.Len(t, refs, 2)
	assert.Equal(t, "https://learn.example.com/media/diagram.png", refs[0].SourceURL)
	assert.Equal(t, model.KindRaster, refs[0].Kind)
	assert.Equal(t, "https://learn.example.com/training/modules/m/icons/flow.svg", refs[1].SourceURL)
	assert.Equal(t, model.KindVector, refs[1].Kind)
	assert.Equal(t, "https://learn.example.com/training/modules/m/1-intro", refs[0].Referer)
}

func TestFormatQuiz(t *testing.T) {
	page := `<html><main><div class="content">
	<form id="question-container">
	  <div class="quiz-question">
	    <div class="quiz-question-title"><span>1</span><p>What is a pod?</p></div>
	    <label class="quiz-choice"><span class="radio-label-text">A container group</span></label>
	    <label class="quiz-choice"><span class="radio-label-text">A node</span></label>
	  </div>
	</form>
	</div></main></html>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)
	content := ExtractMainContent(doc)
	require.NotNil(t, content)

	html, err := goquery.OuterHtml(content)
	require.NoError(t, err)
	assert.Contains(t, html, "Question: What is a pod?")
	assert.Contains(t, html, "<li>A container group</li>")
	assert.NotContains(t, html, "question-container")
}

func TestIsSoft404(t *testing.T) {
	assert.True(t, IsSoft404("<html><h1>404 - Page not found</h1></html>"))
	assert.True(t, IsSoft404("sorry, we couldn't find this page"))
	assert.False(t, IsSoft404("<html><h1>Welcome</h1></html>"))
}

func TestSlugCandidates(t *testing.T) {
	unit := &model.UnitRef{
		UID:    "learn.flow.get-started.flow-introduction",
		Title:  "Introducing Power Automate",
		Number: 1,
	}

	got := slugCandidates(unit)
	want := []string{
		"1-flow-introduction",
		"1-introducing-power-automate",
		"flow-introduction",
		"introducing-power-automate",
		"1-introduction",
		"introduction",
	}
	assert.Equal(t, want, got)
}

func TestFetchDirectSuccessCachesResolvedURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, unitPage)
	}))
	defer srv.Close()

	f, _ := newFetcher()
	unit := &model.UnitRef{
		UID:        "learn.m.intro",
		Title:      "Introduction",
		Number:     1,
		NominalURL: srv.URL + "/training/modules/m/1-intro",
		ModuleURL:  srv.URL + "/training/modules/m",
	}

	content, err := f.Fetch(context.Background(), unit)
	require.NoError(t, err)
	assert.Equal(t, unit.NominalURL, unit.ResolvedURL)
	assert.Contains(t, content.HTML, "Instructional text.")
	assert.Len(t, content.Images, 2)
}

// TestFetchRecoversFromModulePage covers the central recovery path: the
// nominal URL 404s, the module page lists the corrected address, and the
// fetch succeeds using it after exactly one recovery pass.
func TestFetchRecoversFromModulePage(t *testing.T) {
	var moduleFetches, correctedFetches atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/training/modules/m", func(w http.ResponseWriter, r *http.Request) {
		moduleFetches.Add(1)
		fmt.Fprint(w, `<html><body><ul>
			<li class="module-unit" data-unit-uid="learn.m.intro">
			  <a class="unit-title" href="1-introduction">Introduction</a>
			</li>
		</ul></body></html>`)
	})
	mux.HandleFunc("/training/modules/m/1-introduction", func(w http.ResponseWriter, r *http.Request) {
		correctedFetches.Add(1)
		fmt.Fprint(w, unitPage)
	})
	mux.HandleFunc("/", http.NotFound)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f, _ := newFetcher()
	unit := &model.UnitRef{
		UID:        "learn.m.intro",
		Title:      "Introduction",
		Number:     1,
		NominalURL: srv.URL + "/training/modules/m/1-intro",
		ModuleURL:  srv.URL + "/training/modules/m",
	}

	content, err := f.Fetch(context.Background(), unit)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/training/modules/m/1-introduction", unit.ResolvedURL)
	assert.Equal(t, unit.ResolvedURL, content.URL)
	assert.Equal(t, int32(1), correctedFetches.Load(), "corrected URL fetched exactly once")

	// Second fetch uses the cached resolved URL; no new recovery pass.
	before := moduleFetches.Load()
	_, err = f.Fetch(context.Background(), unit)
	require.NoError(t, err)
	assert.Equal(t, before, moduleFetches.Load(), "resolved URL must not be re-derived")
}

func TestFetchRecoveryByTitleAndOrdinal(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/training/modules/m", func(w http.ResponseWriter, r *http.Request) {
		// listing without uids forces title matching
		fmt.Fprint(w, `<html><ul>
			<li class="module-unit"><a class="unit-title" href="1-get-started">Get started</a></li>
			<li class="module-unit"><a class="unit-title" href="2-deep-dive">Deep dive</a></li>
		</ul></html>`)
	})
	mux.HandleFunc("/training/modules/m/2-deep-dive", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, unitPage)
	})
	mux.HandleFunc("/", http.NotFound)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f, _ := newFetcher()
	unit := &model.UnitRef{
		UID:        "learn.m.deep-dive",
		Title:      "Deep dive",
		Number:     2,
		NominalURL: srv.URL + "/training/modules/m/2-dive",
		ModuleURL:  srv.URL + "/training/modules/m",
	}

	_, err := f.Fetch(context.Background(), unit)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/training/modules/m/2-deep-dive", unit.ResolvedURL)
}

func TestFetchUnavailableAfterFailedRecovery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(http.NotFound))
	defer srv.Close()

	f, _ := newFetcher()
	unit := &model.UnitRef{
		UID:        "learn.m.lost",
		Title:      "Lost unit",
		Number:     3,
		NominalURL: srv.URL + "/training/modules/m/3-lost",
		ModuleURL:  srv.URL + "/training/modules/m",
	}

	_, err := f.Fetch(context.Background(), unit)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnitUnavailable))
	assert.Empty(t, unit.ResolvedURL)
}
