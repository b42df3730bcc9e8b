// Package report renders an audit report for humans: plain text for
// terminals, an HTML page of result cards, and Markdown converted from
// that same HTML.
package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"text/tabwriter"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/rmn-raj/seo-tool/audit"
)

// Format names accepted by Render.
const (
	FormatJSON     = "json"
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

// Labels are the human-readable signal names.
var Labels = map[string]string{
	audit.SignalTitle:           "Title",
	audit.SignalMetaDescription: "Meta Description",
	audit.SignalH1Tags:          "H1 Tags",
	audit.SignalImgAltTags:      "Image Alt Tags",
}

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"label": func(name string) string { return Labels[name] },
}).ParseFS(templateFS, "templates/*.html"))

// Renderer converts reports to the supported formats. It is safe for
// concurrent use.
type Renderer struct {
	md *converter.Converter
}

// NewRenderer builds a Renderer with its Markdown converter.
func NewRenderer() *Renderer {
	return &Renderer{
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		),
	}
}

type view struct {
	URL     string
	Score   int
	Signals []audit.NamedResult
}

// Render formats r for pageURL. FormatJSON renders nothing; callers
// serialise the report itself.
func (rd *Renderer) Render(format, pageURL string, r *audit.Report) (string, error) {
	if r == nil {
		return "", fmt.Errorf("report: nil report")
	}
	v := view{URL: pageURL, Score: r.Score, Signals: r.Signals()}

	switch format {
	case FormatJSON, "":
		return "", nil
	case FormatText:
		return renderText(v), nil
	case FormatHTML:
		return execute("page.html", v)
	case FormatMarkdown:
		fragment, err := execute("cards.html", v)
		if err != nil {
			return "", err
		}
		md, err := rd.md.ConvertString(fragment)
		if err != nil {
			return "", fmt.Errorf("report: convert markdown: %w", err)
		}
		return strings.TrimSpace(md) + "\n", nil
	default:
		return "", fmt.Errorf("report: unknown format %q", format)
	}
}

func execute(name string, v view) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, v); err != nil {
		return "", fmt.Errorf("report: render %s: %w", name, err)
	}
	return buf.String(), nil
}

func renderText(v view) string {
	var b strings.Builder
	if v.URL != "" {
		fmt.Fprintf(&b, "SEO report for %s\n", v.URL)
	}
	fmt.Fprintf(&b, "Score: %d/100\n\n", v.Score)

	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	for _, s := range v.Signals {
		fmt.Fprintf(tw, "%s\t[%s]\t%s\n", Labels[s.Name], strings.ToUpper(string(s.Result.Status)), s.Result.Message)
		fmt.Fprintf(tw, "\t\t%s\n", s.Result.Content)
	}
	tw.Flush()
	return b.String()
}
