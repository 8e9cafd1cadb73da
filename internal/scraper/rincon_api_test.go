package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRinconJSON(t *testing.T) {
	body := []byte(`{
		"products": [
			{
				"name": "Wooden Puzzle Safari",
				"reference": "RG-4421",
				"price": "24,95 €",
				"description_short": "<p>A  colourful\nwooden puzzle</p>",
				"url": "/en/puzzles/4421-safari.html",
				"manufacturer_name": "Genios",
				"category_name": "Puzzles",
				"cover": {
					"bySize": {
						"small_default": {"url": "https://cdn.example.com/small.jpg"},
						"thickbox_default": {"url": "https://cdn.example.com/large.jpg?v=2"}
					}
				}
			},
			{"name": "Second Product", "reference": "RG-0002"}
		]
	}`)

	product, err := parseRinconJSON(body, "4421")
	require.NoError(t, err)

	assert.Equal(t, "Wooden Puzzle Safari", product.Title)
	assert.Equal(t, "RG-4421", product.SKU)
	assert.Equal(t, "24,95 €", product.Price)
	assert.Equal(t, "A colourful wooden puzzle", product.Description)
	assert.Equal(t, "Brand: Genios | Category: Puzzles", product.Specifications)
	// thickbox beats small, query string stripped
	assert.Equal(t, []string{"https://cdn.example.com/large.jpg"}, product.Images)
	assert.Equal(t, "https://elrincondelosgenios.com/en/puzzles/4421-safari.html", product.URL)
}

func TestParseRinconJSONDefaults(t *testing.T) {
	body := []byte(`{"products": [{}]}`)

	product, err := parseRinconJSON(body, "XY-99")
	require.NoError(t, err)

	assert.Equal(t, "Product: XY-99", product.Title)
	assert.Equal(t, "N/A", product.SKU)
	assert.Equal(t, "Price not available", product.Price)
	assert.Equal(t, rinconBaseURL, product.URL)
	assert.Empty(t, product.Images)
}

func TestParseRinconJSONErrors(t *testing.T) {
	_, err := parseRinconJSON([]byte(`{"products": []}`), "q")
	assert.ErrorContains(t, err, "no products")

	_, err = parseRinconJSON([]byte(`<html>not json</html>`), "q")
	assert.ErrorContains(t, err, "not JSON")
}

func TestParseRinconHTML(t *testing.T) {
	body := []byte(`<html><body>
		<div class="search-results">
			<article class="product-miniature">
				<h3>Stacking Tower</h3>
				<a href="/en/toys/stacking-tower.html">Stacking Tower</a>
				<span class="product-price">19,90 €</span>
				<span class="sku-ref">RG-7001</span>
				<p class="short-desc">Classic  stacking toy</p>
				<img src="//cdn.example.com/tower.jpg?w=400">
			</article>
		</div>
	</body></html>`)

	product, err := parseRinconHTML(body, "tower")
	require.NoError(t, err)

	assert.Equal(t, "Stacking Tower", product.Title)
	assert.Equal(t, "19,90 €", product.Price)
	assert.Equal(t, "RG-7001", product.SKU)
	assert.Equal(t, "Classic stacking toy", product.Description)
	assert.Equal(t, []string{"https://cdn.example.com/tower.jpg"}, product.Images)
	assert.Equal(t, "https://elrincondelosgenios.com/en/toys/stacking-tower.html", product.URL)
}

func TestParseRinconHTMLNoProducts(t *testing.T) {
	_, err := parseRinconHTML([]byte(`<html><body><p>nothing here</p></body></html>`), "q")
	assert.ErrorContains(t, err, "no product elements")
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "plain text", NormalizeText(stripHTML("<p>plain <b>text</b></p>")))
	assert.Equal(t, "", stripHTML(""))
}
