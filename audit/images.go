package audit

import (
	"fmt"
	"strings"
)

// inlineImageMarker exempts embedded images from the alt check.
const inlineImageMarker = "data:image"

// EvaluateImageAlt measures how many <img> elements lack alt text.
//
// An image is missing alt when the attribute is absent or empty and its src
// is not an inline data URI. The warning/bad boundary is half the image
// count compared as a real number, so 1 of 3 is a warning and 2 of 4 is bad.
func EvaluateImageAlt(doc Document) SignalResult {
	images := doc.All("img")
	total := len(images)

	if total == 0 {
		return SignalResult{
			Content:    "No images found on page",
			Status:     TierGood,
			Message:    "No images to check",
			Count:      intPtr(0),
			MissingAlt: intPtr(0),
		}
	}

	missing := 0
	for _, img := range images {
		src, _ := img.Attr("src")
		alt, _ := img.Attr("alt")
		if alt == "" && !strings.Contains(src, inlineImageMarker) {
			missing++
		}
	}

	res := SignalResult{
		Content:    fmt.Sprintf("%d out of %d images have alt tags", total-missing, total),
		Count:      intPtr(total),
		MissingAlt: intPtr(missing),
	}
	switch {
	case missing == 0:
		res.Status, res.Message = TierGood, "All images have alt attributes"
	case float64(missing) < float64(total)/2:
		res.Status = TierWarning
		res.Message = missingAltMessage(missing, total)
	default:
		res.Status = TierBad
		res.Message = missingAltMessage(missing, total)
	}
	return res
}

func missingAltMessage(missing, total int) string {
	return fmt.Sprintf("%d out of %d images are missing alt attributes", missing, total)
}
