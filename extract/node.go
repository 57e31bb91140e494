package extract

// Node is one element of a rendered document, or the document itself.
//
// Implementations exist for live browser pages (package session) and for
// parsed HTML (FromHTML). QueryAll must return matches in document order and
// an empty slice, not an error, when nothing matches.
type Node interface {
	// QueryAll returns every descendant matching the CSS selector.
	QueryAll(selector string) ([]Node, error)

	// Text returns the node's rendered text content, untrimmed.
	Text() (string, error)
}
