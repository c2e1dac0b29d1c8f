// Package report renders a ranking of authors.
package report

import (
	"fmt"
	"html"
	"os"
	"strings"
	"text/template"

	"github.com/sinclairtarget/coderank/internal/format"
	"github.com/sinclairtarget/coderank/internal/tally"
)

// Numbered list of authors, most lines added first.
const DefaultTemplate = `{{range $i, $a := .Authors}}  {{$i}}. {{e $a.Name}} +{{$a.Plus}} -{{$a.Minus}}

{{end}}`

var funcs = template.FuncMap{
	"e":     html.EscapeString,
	"comma": format.Number,
}

// Values available to a ranking template.
type Data struct {
	Authors []tally.Author
	Options any
}

type Formatter struct {
	tmpl    *template.Template
	options any
}

// Compiles text as a ranking template. Empty text selects DefaultTemplate.
func NewFormatter(text string, options any) (*Formatter, error) {
	if text == "" {
		text = DefaultTemplate
	}

	tmpl, err := template.New("rank").Funcs(funcs).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rank template: %w", err)
	}

	return &Formatter{tmpl: tmpl, options: options}, nil
}

// Reads the template at path, or uses DefaultTemplate if path is empty.
func LoadFormatter(path string, options any) (*Formatter, error) {
	if path == "" {
		return NewFormatter("", options)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read rank template: %w", err)
	}

	logger().Debug("loaded rank template", "path", path)

	return NewFormatter(string(b), options)
}

// Renders the aggregate's authors ranked by lines added.
func (f *Formatter) Format(agg *tally.Aggregate) (string, error) {
	return f.FormatAuthors(agg.Ranked())
}

func (f *Formatter) FormatAuthors(authors []tally.Author) (string, error) {
	var b strings.Builder

	err := f.tmpl.Execute(&b, Data{Authors: authors, Options: f.options})
	if err != nil {
		return "", fmt.Errorf("failed to render ranking: %w", err)
	}

	return b.String(), nil
}
