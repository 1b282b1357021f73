package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Strategy is one lookup rule for a field. Strategies are evaluated in
// order; the first non-empty trimmed result wins. They operate on a parsed
// snapshot so the ordering is testable without a live page.
type Strategy struct {
	Name  string
	Apply func(doc *goquery.Document) string
}

// selectorText builds a strategy that returns the trimmed text of the first
// element matching sel.
func selectorText(name, sel string) Strategy {
	return Strategy{
		Name: name,
		Apply: func(doc *goquery.Document) string {
			return strings.TrimSpace(doc.Find(sel).First().Text())
		},
	}
}

// selectorPrice is selectorText restricted to sterling amounts; anything
// without a pound sign is treated as a miss.
func selectorPrice(name, sel string) Strategy {
	return Strategy{
		Name: name,
		Apply: func(doc *goquery.Document) string {
			price := formatPrice(doc.Find(sel).First().Text())
			if !strings.Contains(price, "£") {
				return ""
			}
			return price
		},
	}
}

func titleStrategies() []Strategy {
	return []Strategy{
		selectorText("product-title-span", "#productTitle"),
		selectorText("title-h1", "h1#title"),
		selectorText("product-title-class", "h1.product-title"),
		selectorText("product-title-generic", "span#productTitle"),
	}
}

func regularPriceStrategies() []Strategy {
	return []Strategy{
		selectorPrice("text-price-offscreen", ".a-price.a-text-price .a-offscreen"),
		selectorPrice("reinvent-price", "span.a-price.reinventPricePriceToPayMargin span.a-offscreen"),
		selectorPrice("price-size-xl", ".a-price[data-a-size='xl'] .a-offscreen"),
		selectorPrice("price-size-l", ".a-price[data-a-size='l'] .a-offscreen"),
		selectorPrice("core-price-div", "#corePrice_feature_div .a-price .a-offscreen"),
		selectorPrice("core-price-desktop", "#corePriceDisplay_desktop_feature_div .a-price .a-offscreen"),
		selectorPrice("generic-offscreen", "span.a-price span.a-offscreen"),
		selectorPrice("buybox-price", "#price_inside_buybox"),
		selectorPrice("legacy-our-price", "#priceblock_ourprice"),
		selectorPrice("legacy-deal-price", "#priceblock_dealprice"),
		anyPriceNode(),
	}
}

// anyPriceNode is the last-resort sweep over every price node on the page.
func anyPriceNode() Strategy {
	return Strategy{
		Name: "any-price-node",
		Apply: func(doc *goquery.Document) string {
			var found string
			doc.Find(".a-price").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
				price := formatPrice(sel.Text())
				if strings.Contains(price, "£") {
					found = price
					return false
				}
				return true
			})
			return found
		},
	}
}

func subscribeSaveStrategies() []Strategy {
	return []Strategy{
		selectorPrice("sns-base", "#sns-base .a-price .a-offscreen"),
		selectorPrice("subscription-accordion", "#subscriptionAccordion .a-price .a-offscreen"),
		selectorPrice("sns-toggle", "#rcxsubsToggle .a-price .a-offscreen"),
		selectorPrice("sns-feature", "div[data-feature-name='subscribeAndSave'] .a-price .a-offscreen"),
		selectorPrice("sns-price-class", ".sns-price .a-offscreen"),
		selectorPrice("sns-base-price", "#sns-base-price"),
		subscribeSaveProximity(),
	}
}

// subscribeSaveProximity finds any element mentioning Subscribe & Save and
// looks for a price in its nearest enclosing section.
func subscribeSaveProximity() Strategy {
	return Strategy{
		Name: "sns-text-proximity",
		Apply: func(doc *goquery.Document) string {
			var found string
			doc.Find("span, legend, a, label, h2").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
				if !strings.Contains(sel.Text(), "Subscribe & Save") {
					return true
				}
				price := formatPrice(sel.Closest(".a-section, .a-box, div").Find(".a-price .a-offscreen").First().Text())
				if strings.Contains(price, "£") {
					found = price
					return false
				}
				return true
			})
			return found
		},
	}
}

// formatPrice collapses whitespace and newlines in raw price text.
func formatPrice(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// firstMatch evaluates strategies in priority order and returns the first
// non-empty result with the name of the strategy that produced it.
func firstMatch(doc *goquery.Document, strategies []Strategy) (string, string) {
	for _, s := range strategies {
		if value := s.Apply(doc); value != "" {
			return value, s.Name
		}
	}
	return "", ""
}
