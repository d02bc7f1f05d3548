package relevance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitleOf(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"newline", "Metro opens\nBody text.", "Metro opens"},
		{"period", "Metro opens. More text", "Metro opens"},
		{"exclamation", "Gold for Hisar! Details", "Gold for Hisar"},
		{"question", "Who won? Nobody", "Who won"},
		{"no terminator", "Just a headline", "Just a headline"},
		{"leading terminator", ".hidden", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, titleOf(tt.in))
		})
	}
}

func TestLeadingWindow(t *testing.T) {
	assert.Equal(t, "abc", leadingWindow("abcdef", 3))
	assert.Equal(t, "abc", leadingWindow("abc", 10))
	assert.Equal(t, "", leadingWindow("abc", 0))
	assert.Equal(t, "", leadingWindow("", 5))
	// Counted in characters, not bytes.
	assert.Equal(t, "₹₹", leadingWindow("₹₹₹", 2))
}

func TestComposeText(t *testing.T) {
	assert.Equal(t, "Title\nBody", composeText(" Title ", "Body "))
	assert.Equal(t, "Body", composeText("", "Body"))
	assert.Equal(t, "Title", composeText("Title", "  "))
	assert.Equal(t, "", composeText("", ""))
}
