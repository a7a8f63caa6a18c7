package prd

import "strings"

// Delimiter separates the conversational reply from the full document in model output.
const Delimiter = "\n---\nPRD_MARKDOWN_START\n---\n"

// Split divides raw model output at the first Delimiter. Both parts are trimmed and
// either may be empty. When the delimiter is missing the whole trimmed text is the
// conversation and ok is false, meaning the stored document must stay as it is.
func Split(raw string) (conversation, document string, ok bool) {
	before, after, found := strings.Cut(raw, Delimiter)
	if !found {
		return strings.TrimSpace(raw), "", false
	}

	return strings.TrimSpace(before), strings.TrimSpace(after), true
}

// Join is the inverse of Split.
func Join(conversation, document string) string {
	return conversation + Delimiter + document
}
