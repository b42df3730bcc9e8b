package audit

import (
	"errors"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// ErrNilDocument is returned by Analyze when no document is supplied.
var ErrNilDocument = errors.New("audit: nil document")

// Analyze runs the four evaluators concurrently over doc and aggregates
// their tiers into a score. It never fails for a non-nil document; absent
// elements yield bad or empty results rather than errors.
func Analyze(doc Document) (*Report, error) {
	if doc == nil {
		return nil, ErrNilDocument
	}

	var (
		r  Report
		wg sync.WaitGroup
	)
	wg.Add(4)
	go func() { defer wg.Done(); r.Title = EvaluateTitle(doc) }()
	go func() { defer wg.Done(); r.MetaDescription = EvaluateMetaDescription(doc) }()
	go func() { defer wg.Done(); r.H1Tags = EvaluateHeadings(doc) }()
	go func() { defer wg.Done(); r.ImgAltTags = EvaluateImageAlt(doc) }()
	wg.Wait()

	r.Score = Score(r.Title, r.MetaDescription, r.H1Tags, r.ImgAltTags)
	return &r, nil
}

// trim strips leading and trailing Unicode whitespace and byte order marks.
func trim(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\uFEFF'
	})
}

// length counts characters, not bytes.
func length(s string) int {
	return utf8.RuneCountInString(s)
}
