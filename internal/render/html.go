package render

import (
	"context"
	"html/template"
	"os"
	"path/filepath"

	"mslearn-downloader/internal/model"
)

// Renderer produces the on-disk output for one resolved item.
//
// contents maps unit UID to cleaned, image-rewritten markup; units that
// failed to fetch have no entry and the renderer decides how to mark
// the gap.
type Renderer interface {
	Render(ctx context.Context, tree *model.ItemTree, contents map[string]*model.UnitContent, dir string) error
}

// HTMLRenderer writes a single index.html per item with one section
// per module and one article per unit.
type HTMLRenderer struct {
	tmpl *template.Template
}

// NewHTMLRenderer parses the built-in document template.
func NewHTMLRenderer() (*HTMLRenderer, error) {
	tmpl, err := template.New("index").Parse(indexTemplate)
	if err != nil {
		return nil, err
	}
	return &HTMLRenderer{tmpl: tmpl}, nil
}

type unitView struct {
	Title     string
	Body      template.HTML
	Available bool
}

type moduleView struct {
	Title   string
	Summary string
	Units   []unitView
}

type documentView struct {
	Title   string
	Summary string
	Modules []moduleView
}

// Render writes dir/index.html. Already-acquired images sit next to it
// under dir/images/, which the rewritten markup references relatively.
func (r *HTMLRenderer) Render(ctx context.Context, tree *model.ItemTree, contents map[string]*model.UnitContent, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	view := documentView{
		Title:   tree.Item.Title,
		Summary: tree.Item.Summary,
	}
	for _, mod := range tree.Modules {
		mv := moduleView{Title: mod.Module.Title, Summary: mod.Module.Summary}
		for _, unit := range mod.Units {
			uv := unitView{Title: unit.Title}
			if content, ok := contents[unit.UID]; ok {
				// Markup passed through extraction and rewriting;
				// escaping it again would destroy it.
				uv.Body = template.HTML(content.HTML)
				uv.Available = true
			}
			mv.Units = append(mv.Units, uv)
		}
		view.Modules = append(view.Modules, mv)
	}

	f, err := os.Create(filepath.Join(dir, "index.html"))
	if err != nil {
		return err
	}
	defer f.Close()

	if err := r.tmpl.Execute(f, view); err != nil {
		return err
	}
	return f.Close()
}

const indexTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: "Segoe UI", system-ui, sans-serif; max-width: 60rem; margin: 0 auto; padding: 2rem 1rem; line-height: 1.6; }
img { max-width: 100%; height: auto; }
article { margin-bottom: 3rem; }
.unavailable { color: #888; font-style: italic; }
.formatted-quiz { border: 1px solid #ccc; border-radius: 4px; padding: 1rem; margin: 1rem 0; }
pre { overflow-x: auto; background: #f4f4f4; padding: 0.75rem; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{if .Summary}}<p>{{.Summary}}</p>{{end}}
{{range .Modules}}
<section>
<h2>{{.Title}}</h2>
{{if .Summary}}<p>{{.Summary}}</p>{{end}}
{{range .Units}}
<article>
<h3>{{.Title}}</h3>
{{if .Available}}{{.Body}}{{else}}<p class="unavailable">This unit could not be downloaded.</p>{{end}}
</article>
{{end}}
</section>
{{end}}
</body>
</html>
`
