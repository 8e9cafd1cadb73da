package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/toyscout/product-scraper/internal/models"
)

func TestCleanImageURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "protocol-relative becomes https",
			input:    "//cdn.example.com/img/toy.jpg",
			expected: "https://cdn.example.com/img/toy.jpg",
		},
		{
			name:     "query string stripped",
			input:    "https://cdn.example.com/img/toy.jpg?v=123&width=800",
			expected: "https://cdn.example.com/img/toy.jpg",
		},
		{
			name:     "protocol-relative with query",
			input:    "//cdn.example.com/toy.png?crop=center",
			expected: "https://cdn.example.com/toy.png",
		},
		{
			name:     "already clean is untouched",
			input:    "https://example.com/a.jpg",
			expected: "https://example.com/a.jpg",
		},
		{
			name:     "empty stays empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanImageURL(tt.input))
		})
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"collapses spaces", "hello   world", "hello world"},
		{"collapses newlines and tabs", "line one\n\t line two", "line one line two"},
		{"trims edges", "  padded  ", "padded"},
		{"empty", "", ""},
		{"only whitespace", " \n\t ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeText(tt.input))
		})
	}
}

func TestNormalizeWookidsCode(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"strips uppercase prefix", "WK1234", "1234"},
		{"strips lowercase prefix", "wk1234", "1234"},
		{"strips mixed case prefix", "Wk 5678", "5678"},
		{"no prefix untouched", "1234", "1234"},
		{"prefix only", "WK", ""},
		{"surrounding whitespace", "  WK9 ", "9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeWookidsCode(tt.input))
		})
	}
}

func TestAbsoluteURL(t *testing.T) {
	base := "https://shop.example.com"

	assert.Equal(t, "https://shop.example.com/en/toy", absoluteURL(base, "/en/toy"))
	assert.Equal(t, "https://shop.example.com/toy", absoluteURL(base+"/", "toy"))
	assert.Equal(t, "https://other.example.com/x", absoluteURL(base, "https://other.example.com/x"))
	assert.Equal(t, "", absoluteURL(base, ""))
}

func TestImageCollectorDeduplicates(t *testing.T) {
	c := newImageCollector()
	c.add("//cdn.example.com/a.jpg?v=1")
	c.add("https://cdn.example.com/a.jpg")
	c.add("https://cdn.example.com/b.jpg")
	c.add("")

	assert.Equal(t, []string{
		"https://cdn.example.com/a.jpg",
		"https://cdn.example.com/b.jpg",
	}, c.urls)
}

func TestFinishProductSetsPrimaryImage(t *testing.T) {
	p := finishProduct(&models.Product{Images: []string{"first.jpg", "second.jpg"}})
	assert.Equal(t, "first.jpg", p.PrimaryImage)

	empty := finishProduct(&models.Product{})
	assert.Empty(t, empty.PrimaryImage)
}

func TestScrapeErrorFormatting(t *testing.T) {
	err := scrapeErr("hape", "no products found", nil)
	assert.Equal(t, "hape: no products found", err.Error())

	wrapped := scrapeErr("hape", "navigation failed", assert.AnError)
	assert.Contains(t, wrapped.Error(), "hape: navigation failed")
	assert.ErrorIs(t, wrapped, assert.AnError)
}
