package audit

import "fmt"

// Tier is the severity class assigned to a single signal.
//
// Tiers are independent point buckets for scoring, not an ordered scale.
type Tier string

const (
	TierGood    Tier = "good"
	TierWarning Tier = "warning"
	TierBad     Tier = "bad"
)

// Valid reports whether t is one of the three known tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierGood, TierWarning, TierBad:
		return true
	}
	return false
}

// Signal names, in the order they are presented.
const (
	SignalTitle           = "title"
	SignalMetaDescription = "meta_description"
	SignalH1Tags          = "h1_tags"
	SignalImgAltTags      = "img_alt_tags"
)

// SignalResult is the classification of one signal.
type SignalResult struct {
	// Content summarises what was found on the page.
	Content string `json:"content"`

	// Status is the tier the rules assigned.
	Status Tier `json:"status"`

	// Message explains which rule fired.
	Message string `json:"message"`

	// Count is the number of matching elements (h1 and img signals only).
	Count *int `json:"count,omitempty"`

	// MissingAlt is the number of images without alt text (img signal only).
	MissingAlt *int `json:"missing_alt,omitempty"`
}

// Report holds the four signal results and the derived score.
type Report struct {
	Title           SignalResult `json:"title"`
	MetaDescription SignalResult `json:"meta_description"`
	H1Tags          SignalResult `json:"h1_tags"`
	ImgAltTags      SignalResult `json:"img_alt_tags"`
	Score           int          `json:"score"`
}

// NamedResult pairs a signal name with its result.
type NamedResult struct {
	Name   string
	Result SignalResult
}

// Signals returns the four results in presentation order.
func (r *Report) Signals() []NamedResult {
	return []NamedResult{
		{Name: SignalTitle, Result: r.Title},
		{Name: SignalMetaDescription, Result: r.MetaDescription},
		{Name: SignalH1Tags, Result: r.H1Tags},
		{Name: SignalImgAltTags, Result: r.ImgAltTags},
	}
}

// Validate checks that every signal is classified and that the score matches
// the tiers.
func (r *Report) Validate() error {
	for _, s := range r.Signals() {
		if !s.Result.Status.Valid() {
			return fmt.Errorf("audit: signal %s has invalid status %q", s.Name, s.Result.Status)
		}
	}
	if want := Score(r.Title, r.MetaDescription, r.H1Tags, r.ImgAltTags); r.Score != want {
		return fmt.Errorf("audit: score %d does not match tiers (want %d)", r.Score, want)
	}
	return nil
}

func intPtr(v int) *int { return &v }
