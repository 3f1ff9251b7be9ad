package mulmocast

import (
	"bytes"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/cockroachdb/errors"
)

// Style selects the image prompt template of the beats
type Style string

const (
	StyleCorporate      Style = "corporate"
	StyleGhibli         Style = "ghibli"
	StyleWatercolor     Style = "watercolor"
	StyleComic          Style = "comic"
	StylePhotorealistic Style = "photorealistic"
)

// Styles lists the supported styles, the first one is the default
var Styles = []Style{
	StyleCorporate,
	StyleGhibli,
	StyleWatercolor,
	StyleComic,
	StylePhotorealistic,
}

const promptSuffix = `
{{- with .Title }} The slide belongs to a presentation titled "{{ . }}".{{ end }}
{{- with .Lang }} The audience language is {{ . | lower }}.{{ end }} Do not render any text in the image.`

var stylePrompts = map[Style]string{
	StyleCorporate: `Create a clean, professional presentation slide image in a modern corporate style, ` +
		`flat colors and simple shapes, that illustrates: {{ .Text | trim | trunc 2000 }}` + promptSuffix,
	StyleGhibli: `Create a presentation slide image in a soft hand-drawn Japanese animation style ` +
		`with warm natural light, that illustrates: {{ .Text | trim | trunc 2000 }}` + promptSuffix,
	StyleWatercolor: `Create a presentation slide image as a loose watercolor painting on textured paper, ` +
		`that illustrates: {{ .Text | trim | trunc 2000 }}` + promptSuffix,
	StyleComic: `Create a presentation slide image as a bold comic book panel with ink outlines ` +
		`and halftone shading, that illustrates: {{ .Text | trim | trunc 2000 }}` + promptSuffix,
	StylePhotorealistic: `Create a photorealistic presentation slide image, natural lighting, ` +
		`shallow depth of field, that illustrates: {{ .Text | trim | trunc 2000 }}` + promptSuffix,
}

var styleTemplates = parseStyleTemplates()

func parseStyleTemplates() map[Style]*template.Template {
	m := make(map[Style]*template.Template, len(stylePrompts))
	for style, text := range stylePrompts {
		m[style] = template.Must(template.New(string(style)).Funcs(sprig.TxtFuncMap()).Parse(text))
	}
	return m
}

// Resolve returns the style, or the default one for unknown values
func (s Style) Resolve() Style {
	if _, ok := styleTemplates[s]; ok {
		return s
	}
	return Styles[0]
}

// promptData is the input of the style templates
type promptData struct {
	Title string
	Lang  string
	Text  string
}

// Prompt renders the image prompt of the beat
func (s Style) Prompt(title, lang, text string) (string, error) {
	var buf bytes.Buffer
	err := styleTemplates[s.Resolve()].Execute(&buf, &promptData{
		Title: title,
		Lang:  lang,
		Text:  text,
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to render %s prompt", s.Resolve())
	}
	return buf.String(), nil
}
