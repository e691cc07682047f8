package httputil

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

const layoutFile = "pages/layout.html"

// Renderer executes the HTML pages. Each page is parsed together with the
// layout into its own template set so "content" blocks never collide.
type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer(fsys fs.FS, funcs template.FuncMap) (*Renderer, error) {
	files, err := fs.Glob(fsys, "pages/*.html")
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}

	r := &Renderer{pages: make(map[string]*template.Template, len(files))}
	for _, file := range files {
		if file == layoutFile {
			continue
		}
		t, err := template.New(path.Base(file)).Funcs(funcs).ParseFS(fsys, layoutFile, file)
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", file, err)
		}
		r.pages[strings.TrimSuffix(path.Base(file), ".html")] = t
	}

	return r, nil
}

// Has reports whether a page called name exists.
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}

// Render writes the page with the given status. Nothing is written when the
// template fails, so the caller can still answer with an error page.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, data any) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render page %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// HTMLf is fmt.Sprintf for message pages: the format is trusted markup and
// every text argument is escaped.
func HTMLf(format string, args ...any) template.HTML {
	escaped := make([]any, len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case int, int64, float64, bool:
			escaped[i] = v
		default:
			escaped[i] = template.HTMLEscapeString(fmt.Sprint(v))
		}
	}
	return template.HTML(fmt.Sprintf(format, escaped...))
}
