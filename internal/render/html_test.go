package render

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mslearn-downloader/internal/model"
)

func TestRenderWritesDocument(t *testing.T) {
	r, err := NewHTMLRenderer()
	require.NoError(t, err)

	tree := &model.ItemTree{
		Item: model.CatalogItem{
			UID:     "learn.intro",
			Type:    model.TypeModule,
			Title:   "Introduction to Flows",
			Summary: "Automate the boring parts.",
		},
		Modules: []model.ModuleTree{
			{
				Module: model.CatalogItem{UID: "learn.intro", Title: "Introduction to Flows"},
				Units: []*model.UnitRef{
					{UID: "learn.intro.1-overview", Title: "Overview", Number: 1},
					{UID: "learn.intro.2-exercise", Title: "Exercise", Number: 2},
				},
			},
		},
	}
	contents := map[string]*model.UnitContent{
		"learn.intro.1-overview": {
			UnitUID: "learn.intro.1-overview",
			Title:   "Overview",
			HTML:    `<p>Welcome.</p><img src="images/flow_12ab34cd.png" alt="diagram">`,
		},
	}

	dir := t.TempDir()
	require.NoError(t, r.Render(context.Background(), tree, contents, dir))

	data, err := os.ReadFile(filepath.Join(dir, "index.html"))
	require.NoError(t, err)
	html := string(data)

	assert.Contains(t, html, "<title>Introduction to Flows</title>")
	assert.Contains(t, html, "Automate the boring parts.")
	assert.Contains(t, html, "<h3>Overview</h3>")
	// The unit body must land unescaped.
	assert.Contains(t, html, `<img src="images/flow_12ab34cd.png" alt="diagram">`)
	// The missing second unit gets a visible gap marker.
	assert.Contains(t, html, "<h3>Exercise</h3>")
	assert.Contains(t, html, "This unit could not be downloaded.")
}

func TestRenderCancelledContext(t *testing.T) {
	r, err := NewHTMLRenderer()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dir := t.TempDir()
	err = r.Render(ctx, &model.ItemTree{}, nil, dir)
	assert.ErrorIs(t, err, context.Canceled)
	_, statErr := os.Stat(filepath.Join(dir, "index.html"))
	assert.True(t, os.IsNotExist(statErr))
}
