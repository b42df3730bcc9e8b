package audit

const (
	titleMinLength = 10
	titleMaxLength = 60
)

// EvaluateTitle classifies the first <title> element by its trimmed length.
func EvaluateTitle(doc Document) SignalResult {
	var title string
	if el, ok := doc.First("title"); ok {
		title = trim(el.Text())
	}

	res := SignalResult{Content: title}
	switch n := length(title); {
	case n == 0:
		res.Status, res.Message = TierBad, "Missing title tag"
	case n < titleMinLength:
		res.Status, res.Message = TierWarning, "Title is too short (less than 10 characters)"
	case n > titleMaxLength:
		res.Status, res.Message = TierWarning, "Title is too long (more than 60 characters)"
	default:
		res.Status, res.Message = TierGood, "Title length is good"
	}
	return res
}
