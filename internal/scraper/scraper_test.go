package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{
			name:     "Canonical UK URL",
			input:    "https://www.amazon.co.uk/dp/B0EXAMPLE1",
			expected: "https://www.amazon.co.uk/dp/B0EXAMPLE1",
		},
		{
			name:     "UK URL with product slug",
			input:    "https://www.amazon.co.uk/Finish-Ultimate-Dishwasher-Tablets/dp/B0EXAMPLE1",
			expected: "https://www.amazon.co.uk/Finish-Ultimate-Dishwasher-Tablets/dp/B0EXAMPLE1",
		},
		{
			name:     "Bare ASIN",
			input:    "B0EXAMPLE1",
			expected: "https://www.amazon.co.uk/dp/B0EXAMPLE1",
		},
		{
			name:     "Lowercase ASIN",
			input:    "b0example1",
			expected: "https://www.amazon.co.uk/dp/B0EXAMPLE1",
		},
		{
			name:     "US URL rewritten",
			input:    "https://www.amazon.com/dp/B0EXAMPLE1",
			expected: "https://www.amazon.co.uk/dp/B0EXAMPLE1",
		},
		{
			name:     "gp product path",
			input:    "https://www.amazon.co.uk/gp/product/B0EXAMPLE1",
			expected: "https://www.amazon.co.uk/gp/product/B0EXAMPLE1",
		},
		{
			name:     "Whitespace trimmed",
			input:    "  https://www.amazon.co.uk/dp/B0EXAMPLE1  ",
			expected: "https://www.amazon.co.uk/dp/B0EXAMPLE1",
		},
		{name: "Empty", input: "", wantErr: true},
		{name: "Not a product URL", input: "https://www.amazon.co.uk/gp/bestsellers", wantErr: true},
		{name: "Unrelated site", input: "https://example.com/dp/B0EXAMPLE1", wantErr: true},
		{name: "Too short ASIN", input: "B0EXAMPLE", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeURL(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestExtractASIN(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
		wantErr  bool
	}{
		{"Simple dp URL", "https://www.amazon.co.uk/dp/B0EXAMPLE1", "B0EXAMPLE1", false},
		{"dp URL with query", "https://www.amazon.co.uk/dp/B0EXAMPLE1?th=1&psc=1", "B0EXAMPLE1", false},
		{"Slugged URL", "https://www.amazon.co.uk/Some-Product-Name/dp/B0CDEFGH12?ref=xyz", "B0CDEFGH12", false},
		{"gp product URL", "https://www.amazon.co.uk/gp/product/B0CDEFGH12", "B0CDEFGH12", false},
		{"No scheme", "www.amazon.co.uk/dp/B0EXAMPLE1", "B0EXAMPLE1", false},
		{"No ASIN", "https://www.amazon.co.uk/", "", true},
		{"Wrong domain", "https://www.amazon.de/dp/B0EXAMPLE1", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractASIN(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
