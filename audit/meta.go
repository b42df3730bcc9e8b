package audit

const (
	metaDescriptionMinLength = 50
	metaDescriptionMaxLength = 160
)

// EvaluateMetaDescription classifies the content of <meta name="description">.
// A tag without a content attribute counts as missing.
func EvaluateMetaDescription(doc Document) SignalResult {
	var desc string
	if el, ok := doc.FirstWithAttr("meta", "name", "description"); ok {
		if v, ok := el.Attr("content"); ok {
			desc = trim(v)
		}
	}

	res := SignalResult{Content: desc}
	switch n := length(desc); {
	case n == 0:
		res.Status, res.Message = TierBad, "Missing meta description"
	case n < metaDescriptionMinLength:
		res.Status, res.Message = TierWarning, "Meta description is too short (less than 50 characters)"
	case n > metaDescriptionMaxLength:
		res.Status, res.Message = TierWarning, "Meta description is too long (more than 160 characters)"
	default:
		res.Status, res.Message = TierGood, "Meta description length is good"
	}
	return res
}
