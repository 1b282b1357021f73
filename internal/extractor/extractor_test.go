package extractor

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwhitaker/amazon-uk-scraper/internal/models"
)

func testExtractor() *Extractor {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

const fullProductPage = `
<html><body>
	<span id="productTitle"> Finish Ultimate Dishwasher Tablets, 100 Count </span>
	<div id="corePrice_feature_div">
		<span class="a-price" data-a-size="xl"><span class="a-offscreen">£14.49</span></span>
	</div>
	<div id="sns-base">
		<span class="a-price"><span class="a-offscreen">£13.04</span></span>
	</div>
</body></html>`

const noSubscriptionPage = `
<html><body>
	<span id="productTitle">Basic Kettle</span>
	<div id="corePrice_feature_div">
		<span class="a-price" data-a-size="xl"><span class="a-offscreen">£24.99</span></span>
	</div>
</body></html>`

const titleOnlyPage = `
<html><body>
	<span id="productTitle">Currently Unavailable Product</span>
</body></html>`

const emptyPage = `<html><body><div>Page Not Found</div></body></html>`

func TestExtractFullProduct(t *testing.T) {
	rec, err := testExtractor().FromHTML(fullProductPage, "https://www.amazon.co.uk/dp/B0EXAMPLE1")
	require.NoError(t, err)

	assert.Equal(t, "Finish Ultimate Dishwasher Tablets, 100 Count", rec.Title)
	assert.Equal(t, "£14.49", rec.RegularPrice)
	assert.Equal(t, "£13.04", rec.SubscribeSavePrice)
	assert.Equal(t, models.StatusSuccess, rec.Status)
	assert.Empty(t, rec.Error)
}

func TestExtractWithoutSubscription(t *testing.T) {
	rec, err := testExtractor().FromHTML(noSubscriptionPage, "https://www.amazon.co.uk/dp/B0EXAMPLE2")
	require.NoError(t, err)

	assert.Equal(t, "Basic Kettle", rec.Title)
	assert.Equal(t, "£24.99", rec.RegularPrice)
	assert.Empty(t, rec.SubscribeSavePrice, "missing subscription price is a valid terminal value")
	assert.NotEqual(t, models.StatusFailed, rec.Status)
}

func TestExtractTitleOnly(t *testing.T) {
	rec, err := testExtractor().FromHTML(titleOnlyPage, "https://www.amazon.co.uk/dp/B0EXAMPLE3")
	require.NoError(t, err)

	assert.Equal(t, "Currently Unavailable Product", rec.Title)
	assert.Empty(t, rec.RegularPrice)
	assert.Equal(t, models.StatusPartial, rec.Status)
}

func TestExtractNoTitle(t *testing.T) {
	rec, err := testExtractor().FromHTML(emptyPage, "https://www.amazon.co.uk/dp/B0EXAMPLE4")
	require.NoError(t, err)

	assert.Empty(t, rec.Title)
	assert.Equal(t, models.StatusFailed, rec.Status)
	assert.NotEmpty(t, rec.Error)
}

func TestExtractIsDeterministic(t *testing.T) {
	e := testExtractor()
	url := "https://www.amazon.co.uk/dp/B0EXAMPLE1"

	first, err := e.FromHTML(fullProductPage, url)
	require.NoError(t, err)
	second, err := e.FromHTML(fullProductPage, url)
	require.NoError(t, err)

	assert.Equal(t, first.Title, second.Title)
	assert.Equal(t, first.RegularPrice, second.RegularPrice)
	assert.Equal(t, first.SubscribeSavePrice, second.SubscribeSavePrice)
	assert.Equal(t, first.Status, second.Status)
}

func TestStrategyOrderFirstMatchWins(t *testing.T) {
	// Both the text-price block and the generic offscreen span match; the
	// higher-priority strategy must win.
	html := `
	<html><body>
		<span id="productTitle">Widget</span>
		<span class="a-price a-text-price"><span class="a-offscreen">£9.99</span></span>
		<span class="a-price"><span class="a-offscreen">£19.99</span></span>
	</body></html>`

	rec, err := testExtractor().FromHTML(html, "https://www.amazon.co.uk/dp/B0EXAMPLE5")
	require.NoError(t, err)
	assert.Equal(t, "£9.99", rec.RegularPrice)
}

func TestPriceStrategiesRejectNonSterling(t *testing.T) {
	html := `
	<html><body>
		<span id="productTitle">Imported Widget</span>
		<span class="a-price"><span class="a-offscreen">$12.00</span></span>
	</body></html>`

	rec, err := testExtractor().FromHTML(html, "https://www.amazon.co.uk/dp/B0EXAMPLE6")
	require.NoError(t, err)
	assert.Empty(t, rec.RegularPrice)
}

func TestSubscribeSaveProximityFallback(t *testing.T) {
	// No dedicated subscription container, just the label near a price.
	html := `
	<html><body>
		<span id="productTitle">Coffee Beans 1kg</span>
		<div class="a-section">
			<span>Subscribe &amp; Save:</span>
			<span class="a-price"><span class="a-offscreen">£17.09</span></span>
		</div>
	</body></html>`

	rec, err := testExtractor().FromHTML(html, "https://www.amazon.co.uk/dp/B0EXAMPLE7")
	require.NoError(t, err)
	assert.Equal(t, "£17.09", rec.SubscribeSavePrice)
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Plain", "£12.99", "£12.99"},
		{"Surrounding whitespace", "  £12.99  ", "£12.99"},
		{"Internal newlines", "£12\n.99", "£12 .99"},
		{"Multiple spaces", "£12.99   per   pack", "£12.99 per pack"},
		{"Empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatPrice(tt.input); got != tt.expected {
				t.Errorf("formatPrice(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
