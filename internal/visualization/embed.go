package visualization

import (
	"bytes"
	"embed"
	"html/template"
	"io"

	"github.com/nvandessel/geomood/internal/classify"
	"github.com/nvandessel/geomood/internal/journal"
)

// templates contains the embedded HTML templates.
//
//go:embed templates/*
var templates embed.FS

var pageTemplate = template.Must(template.ParseFS(templates, "templates/core.html"))

type pageData struct {
	Layout  Layout
	SVG     template.HTML
	Entries int
	Gems    int
	Surface classify.Surface
}

// RenderHTML writes the interactive page for core. Grain and gem clicks
// call back into the server's /api routes.
func RenderHTML(w io.Writer, core *journal.Core, surface classify.Surface, l Layout) error {
	var svg bytes.Buffer
	if err := RenderSVG(&svg, core.Result, l); err != nil {
		return err
	}
	return pageTemplate.Execute(w, pageData{
		Layout:  l,
		SVG:     template.HTML(svg.String()),
		Entries: len(core.Entries),
		Gems:    len(core.Gems),
		Surface: surface,
	})
}
