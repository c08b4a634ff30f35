package format

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/toricodesthings/ink-to-pixels/internal/types"
)

func TestJoin(t *testing.T) {
	tests := []struct {
		name  string
		texts []string
		sep   string
		want  string
	}{
		{name: "no pages", texts: nil, want: ""},
		{name: "single lines", texts: []string{"alpha", "beta", "gamma"}, want: "alpha\nbeta\ngamma"},
		{name: "failed middle page keeps its slot", texts: []string{"a", "", "c"}, want: "a\n\nc"},
		{name: "only outer whitespace trimmed", texts: []string{"Hello \n", " World"}, want: "Hello \n\n World"},
		{name: "all empty", texts: []string{"", "", ""}, want: ""},
		{name: "custom separator", texts: []string{"a", "b"}, sep: "\n---\n", want: "a\n---\nb"},
		{name: "leading blank page trimmed away", texts: []string{"", "b"}, want: "b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Join(tt.texts, tt.sep))
		})
	}
}

func TestCombineUsesPageOrder(t *testing.T) {
	pages := []types.PageResult{
		{PageNumber: 1, Text: "one"},
		{PageNumber: 2, Text: ""},
		{PageNumber: 3, Text: "three\nlines"},
	}
	assert.Equal(t, "one\n\nthree\nlines", Combine(pages, DefaultSeparator))
}

func TestRegionsDoesNotTrim(t *testing.T) {
	assert.Equal(t, " a \nb ", Regions([]string{" a ", "b "}))
	assert.Equal(t, "", Regions(nil))
}
