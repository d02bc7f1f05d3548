package relevance

import "strings"

// titleTerminators end the implicit title of a combined "title\nbody" text.
const titleTerminators = ".!?\n"

// titleOf returns the text before the first sentence terminator or newline.
// Text without a terminator is all title.
func titleOf(text string) string {
	if i := strings.IndexAny(text, titleTerminators); i >= 0 {
		return text[:i]
	}
	return text
}

// leadingWindow returns at most the first n characters of text, counted in
// runes so multi-byte place names are never split.
func leadingWindow(text string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range text {
		if count == n {
			return text[:i]
		}
		count++
	}
	return text
}

// composeText joins title and body the way the scorer expects them: the
// newline keeps titleOf from spilling into the body.
func composeText(title, body string) string {
	title = strings.TrimSpace(title)
	body = strings.TrimSpace(body)
	switch {
	case title == "":
		return body
	case body == "":
		return title
	}
	return title + "\n" + body
}
