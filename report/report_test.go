package report

import (
	"strings"
	"testing"

	"github.com/rmn-raj/seo-tool/audit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *audit.Report {
	return &audit.Report{
		Title: audit.SignalResult{
			Content: "Hi", Status: audit.TierWarning,
			Message: "Title is too short (less than 10 characters)",
		},
		MetaDescription: audit.SignalResult{
			Status: audit.TierBad, Message: "Missing meta description",
		},
		H1Tags: audit.SignalResult{
			Content: "Welcome", Status: audit.TierGood,
			Message: "One H1 tag found (recommended)",
		},
		ImgAltTags: audit.SignalResult{
			Content: "0 out of 2 images have alt tags", Status: audit.TierBad,
			Message: "2 out of 2 images are missing alt attributes",
		},
		Score: 38,
	}
}

func TestRender_Text(t *testing.T) {
	out, err := NewRenderer().Render(FormatText, "https://example.com", sample())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "SEO report for https://example.com\nScore: 38/100\n"))
	assert.Contains(t, out, "[WARNING]")
	assert.Contains(t, out, "Missing meta description")
	assert.Contains(t, out, "Image Alt Tags")

	titleLine := strings.Index(out, "Title ")
	metaLine := strings.Index(out, "Meta Description")
	assert.Less(t, titleLine, metaLine, "signals keep presentation order")
}

func TestRender_HTML(t *testing.T) {
	r := sample()
	r.Title.Content = `<script>alert("x")</script>`

	out, err := NewRenderer().Render(FormatHTML, "https://example.com", r)
	require.NoError(t, err)

	assert.Contains(t, out, "<!DOCTYPE html>")
	assert.Contains(t, out, `<section class="card warning">`)
	assert.Contains(t, out, `<span class="badge bad">bad</span>`)
	assert.Contains(t, out, "38/100")
	assert.NotContains(t, out, "<script>", "page content is escaped")
}

func TestRender_Markdown(t *testing.T) {
	out, err := NewRenderer().Render(FormatMarkdown, "", sample())
	require.NoError(t, err)

	assert.Contains(t, out, "# SEO Report")
	assert.Contains(t, out, "## Meta Description")
	assert.Contains(t, out, "**Score:** 38/100")
	assert.Contains(t, out, "One H1 tag found")
	assert.NotContains(t, out, "<section")
}

func TestRender_JSONIsEmpty(t *testing.T) {
	out, err := NewRenderer().Render(FormatJSON, "", sample())
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRender_Errors(t *testing.T) {
	_, err := NewRenderer().Render("pdf", "", sample())
	assert.Error(t, err)

	_, err = NewRenderer().Render(FormatText, "", nil)
	assert.Error(t, err)
}
