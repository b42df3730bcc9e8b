package audit

import (
	"fmt"
	"strings"
)

// EvaluateHeadings checks that the page has exactly one <h1>.
//
// Content is the comma-joined trimmed heading texts, or "None" when the
// joined string is empty (which also happens for a single empty heading).
func EvaluateHeadings(doc Document) SignalResult {
	headings := doc.All("h1")
	count := len(headings)

	texts := make([]string, 0, count)
	for _, h := range headings {
		texts = append(texts, trim(h.Text()))
	}
	content := strings.Join(texts, ", ")
	if content == "" {
		content = "None"
	}

	res := SignalResult{Content: content, Count: intPtr(count)}
	switch {
	case count == 0:
		res.Status, res.Message = TierBad, "No H1 tag found"
	case count == 1:
		res.Status, res.Message = TierGood, "One H1 tag found (recommended)"
	default:
		res.Status = TierWarning
		res.Message = fmt.Sprintf("Multiple H1 tags found (%d). Consider using only one.", count)
	}
	return res
}
