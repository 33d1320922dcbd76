// Package view renders html/template pages inside a shared layout.
//
// Files under layout/ (the "base" template and partials) are parsed into
// every page; every other *.html file is one page, named by its path
// without the extension ("grocerylist/list").
package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// URLGenerator builds a path from a route name.
type URLGenerator interface {
	URL(name string, params map[string]string) (string, error)
}

type Engine struct {
	pages map[string]*template.Template
}

// New parses every template in fsys.
func New(fsys fs.FS, urls URLGenerator) (*Engine, error) {
	funcs := template.FuncMap{
		// route "app_grocerylist_product" "id" .ID
		"route": func(name string, kv ...interface{}) (string, error) {
			if len(kv)%2 != 0 {
				return "", fmt.Errorf("route %q: odd number of parameters", name)
			}
			params := make(map[string]string, len(kv)/2)
			for i := 0; i < len(kv); i += 2 {
				params[fmt.Sprint(kv[i])] = fmt.Sprint(kv[i+1])
			}
			return urls.URL(name, params)
		},
	}

	layouts, err := fs.Glob(fsys, "layout/*.html")
	if err != nil {
		return nil, err
	}
	if len(layouts) == 0 {
		return nil, fmt.Errorf("view: no layout templates found")
	}
	base, err := template.New("layout").Funcs(funcs).ParseFS(fsys, layouts...)
	if err != nil {
		return nil, fmt.Errorf("view: parse layout: %w", err)
	}

	e := &Engine{pages: map[string]*template.Template{}}
	err = fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".html" || strings.HasPrefix(p, "layout/") {
			return nil
		}

		page, err := base.Clone()
		if err != nil {
			return err
		}
		if _, err := page.ParseFS(fsys, p); err != nil {
			return fmt.Errorf("view: parse %s: %w", p, err)
		}
		e.pages[strings.TrimSuffix(p, ".html")] = page
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Render executes page name into w. Output is buffered so a template error
// never leaves a half-written page.
func (e *Engine) Render(w io.Writer, name string, data map[string]interface{}) error {
	page, ok := e.pages[name]
	if !ok {
		return fmt.Errorf("view: unknown page %q", name)
	}

	var buf bytes.Buffer
	if err := page.ExecuteTemplate(&buf, "base", data); err != nil {
		return fmt.Errorf("view: render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Pages lists the page names, sorted.
func (e *Engine) Pages() []string {
	out := make([]string, 0, len(e.pages))
	for name := range e.pages {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
