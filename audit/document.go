package audit

// Element is a single node of a parsed document.
type Element interface {
	// Text returns the concatenated text content of the element and its
	// descendants, untrimmed.
	Text() string

	// Attr returns the attribute value and whether the attribute is present.
	// A present attribute may still have an empty value.
	Attr(name string) (string, bool)
}

// Document is the read-only view of parsed markup the evaluators work on.
// Implementations must be safe for concurrent reads.
type Document interface {
	// First returns the first element with the given tag name in document order.
	First(tag string) (Element, bool)

	// All returns every element with the given tag name in document order.
	All(tag string) []Element

	// FirstWithAttr returns the first element with the given tag whose
	// attribute attr equals value exactly.
	FirstWithAttr(tag, attr, value string) (Element, bool)
}
