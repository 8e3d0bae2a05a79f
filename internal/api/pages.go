package api

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"io"
	"path"
	"strings"
	texttemplate "text/template"
)

const (
	pageIndex  = "index.html"
	pageStyle  = "style.css"
	pageScript = "main.js"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

type executor interface {
	Execute(w io.Writer, data any) error
}

type page struct {
	tmpl        executor
	contentType string
}

// pageSet holds the upload page assets, compiled once at startup.
type pageSet struct {
	pages map[string]page
}

var pageContentTypes = map[string]string{
	".html": "text/html; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".js":   "text/javascript; charset=utf-8",
}

func loadPages() (*pageSet, error) {
	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}
	set := &pageSet{pages: make(map[string]page, len(entries))}
	for _, entry := range entries {
		file := entry.Name()
		name := strings.TrimSuffix(file, ".tmpl")
		contentType, ok := pageContentTypes[path.Ext(name)]
		if !ok {
			return nil, fmt.Errorf("invalid template path: %s", file)
		}
		src, err := templateFS.ReadFile("templates/" + file)
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", file, err)
		}
		var tmpl executor
		if path.Ext(name) == ".html" {
			tmpl, err = htmltemplate.New(name).Parse(string(src))
		} else {
			tmpl, err = texttemplate.New(name).Parse(string(src))
		}
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", file, err)
		}
		set.pages[name] = page{tmpl: tmpl, contentType: contentType}
	}
	return set, nil
}

func (p *pageSet) len() int {
	return len(p.pages)
}

func (p *pageSet) render(name string) ([]byte, string, error) {
	pg, ok := p.pages[name]
	if !ok {
		return nil, "", fmt.Errorf("template not found: %s", name)
	}
	var buf bytes.Buffer
	if err := pg.tmpl.Execute(&buf, nil); err != nil {
		return nil, "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), pg.contentType, nil
}
