package mulmocast

import (
	"bytes"
	"html/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/cockroachdb/errors"
)

const documentHTML = `<!DOCTYPE html>
<html lang="{{ .Lang }}">
<head>
<meta charset="utf-8">
<title>{{ .Title }}</title>
<style>
body { font-family: sans-serif; margin: 0 auto; max-width: 960px; }
section.beat { margin: 2em 0; }
section.beat img { width: 100%; aspect-ratio: 16 / 9; object-fit: cover; }
</style>
</head>
<body>
<h1>{{ .Title }}</h1>
{{- range .Beats }}
<section class="beat" data-beat="{{ add1 .Index }}">
{{- with .Image }}
<img src="{{ . }}" alt="">
{{- end }}
<p>{{ .Text }}</p>
</section>
{{- end }}
</body>
</html>
`

var documentTemplate = template.Must(template.New("presentation").Funcs(sprig.HtmlFuncMap()).Parse(documentHTML))

// Section is a rendered beat
type Section struct {
	Index int
	Text  string
	// Image is a data URL, empty when the beat has no image
	Image template.URL
}

// Document is the composed presentation
type Document struct {
	Title string
	Lang  string
	Beats []Section
}

// Render returns the HTML of the document
func (d *Document) Render() (string, error) {
	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, d); err != nil {
		return "", errors.Wrap(err, "failed to render presentation")
	}
	return buf.String(), nil
}

// Images returns the number of beats with image
func (d *Document) Images() int {
	n := 0
	for _, s := range d.Beats {
		if s.Image != "" {
			n++
		}
	}
	return n
}
