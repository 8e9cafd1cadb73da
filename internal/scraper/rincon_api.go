package scraper

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/toyscout/product-scraper/internal/models"
)

const (
	rinconBaseURL   = "https://elrincondelosgenios.com/"
	rinconSearchAPI = "https://elrincondelosgenios.com/module/iqitsearch/searchiqit"
)

// RinconAPIScraper queries the elrincondelosgenios.com internal search API
// directly instead of driving a browser. It is the fast primary strategy for
// the brand; the page scraper is the fallback.
type RinconAPIScraper struct {
	client *http.Client
	logger *slog.Logger
}

func NewRinconAPIScraper(logger *slog.Logger) *RinconAPIScraper {
	return &RinconAPIScraper{
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger.With("scraper", "elrincondelosgenios_api"),
	}
}

func (s *RinconAPIScraper) Scrape(searchText string) (*models.Product, error) {
	const site = "elrincondelosgenios_api"
	log := s.logger.With("query", searchText)

	form := url.Values{
		"s":              {searchText},
		"resultsPerPage": {"10"},
		"ajax":           {"true"},
	}

	log.Info("calling search API")
	req, err := http.NewRequest(http.MethodPost, rinconSearchAPI, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, scrapeErr(site, "failed to build request", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json, text/html, */*")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, scrapeErr(site, "API request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, scrapeErr(site, fmt.Sprintf("API returned status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, scrapeErr(site, "failed to read API response", err)
	}

	log.Info("parsing API response", "bytes", len(body))
	product, err := parseRinconJSON(body, searchText)
	if err != nil {
		// Not JSON or no products in it; the API sometimes answers with an
		// HTML fragment instead.
		log.Info("JSON parse failed, trying HTML", "error", err)
		product, err = parseRinconHTML(body, searchText)
		if err != nil {
			return nil, scrapeErr(site, "no product found in API response", err)
		}
	}

	log.Info("scrape complete", "title", product.Title, "sku", product.SKU)
	return finishProduct(product), nil
}

// rinconAPIProduct mirrors the fields the search API returns per product.
type rinconAPIProduct struct {
	Name             string          `json:"name"`
	Reference        string          `json:"reference"`
	Price            string          `json:"price"`
	DescriptionShort string          `json:"description_short"`
	URL              string          `json:"url"`
	Link             string          `json:"link"`
	ManufacturerName string          `json:"manufacturer_name"`
	CategoryName     string          `json:"category_name"`
	Cover            json.RawMessage `json:"cover"`
}

type rinconCover struct {
	BySize map[string]struct {
		URL string `json:"url"`
	} `json:"bySize"`
	Large  *struct{ URL string `json:"url"` } `json:"large"`
	Medium *struct{ URL string `json:"url"` } `json:"medium"`
	Small  *struct{ URL string `json:"url"` } `json:"small"`
}

func parseRinconJSON(body []byte, searchText string) (*models.Product, error) {
	var envelope struct {
		Products []rinconAPIProduct `json:"products"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("response is not JSON: %w", err)
	}
	if len(envelope.Products) == 0 {
		return nil, fmt.Errorf("no products in API response")
	}

	first := envelope.Products[0]

	var specs []string
	if first.ManufacturerName != "" {
		specs = append(specs, "Brand: "+first.ManufacturerName)
	}
	if first.CategoryName != "" {
		specs = append(specs, "Category: "+first.CategoryName)
	}

	productURL := first.URL
	if productURL == "" {
		productURL = first.Link
	}
	productURL = absoluteURL(rinconBaseURL, productURL)
	if productURL == "" {
		productURL = rinconBaseURL
	}

	product := &models.Product{
		Title:          first.Name,
		SKU:            first.Reference,
		Price:          first.Price,
		Description:    NormalizeText(stripHTML(first.DescriptionShort)),
		Specifications: strings.Join(specs, " | "),
		Images:         coverImages(first.Cover),
		URL:            productURL,
	}

	if product.Title == "" {
		product.Title = "Product: " + searchText
	}
	if product.SKU == "" {
		product.SKU = "N/A"
	}
	if product.Price == "" {
		product.Price = "Price not available"
	}
	return product, nil
}

// coverImages picks the largest available image from the cover.bySize
// structure, falling back to the direct cover fields.
func coverImages(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var cover rinconCover
	if err := json.Unmarshal(raw, &cover); err != nil {
		return nil
	}

	collector := newImageCollector()
	for _, sizeKey := range []string{"thickbox_default", "large_default", "home_default", "medium_default", "small_default"} {
		if size, ok := cover.BySize[sizeKey]; ok && size.URL != "" {
			collector.add(size.URL)
			break
		}
	}
	if len(collector.urls) == 0 {
		for _, direct := range []*struct{ URL string `json:"url"` }{cover.Large, cover.Medium, cover.Small} {
			if direct != nil && direct.URL != "" {
				collector.add(direct.URL)
				break
			}
		}
	}
	return collector.urls
}

func parseRinconHTML(body []byte, searchText string) (*models.Product, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var first *goquery.Selection
	doc.Find("div, article, li").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		class, _ := sel.Attr("class")
		lower := strings.ToLower(class)
		if strings.Contains(lower, "product") || strings.Contains(lower, "item") {
			first = sel
			return false
		}
		return true
	})
	if first == nil {
		return nil, fmt.Errorf("no product elements in HTML response")
	}

	title := strings.TrimSpace(first.Find("h1, h2, h3, h4").First().Text())
	if title == "" {
		title = strings.TrimSpace(first.Find("a[href]").First().Text())
	}

	href, _ := first.Find("a[href]").First().Attr("href")
	productURL := absoluteURL(rinconBaseURL, href)
	if productURL == "" {
		productURL = rinconBaseURL
	}

	price := findByClassFragment(first, "price")
	sku := findByClassFragment(first, "sku")
	description := findByClassFragment(first, "desc")

	collector := newImageCollector()
	img := first.Find("img").First()
	if src, ok := img.Attr("src"); ok {
		collector.add(src)
	}
	if src, ok := img.Attr("data-src"); ok {
		collector.add(src)
	}

	if title == "" {
		title = "Product: " + searchText
	}
	if sku == "" {
		sku = "N/A"
	}
	if price == "" {
		price = "Price not available"
	}

	return &models.Product{
		Title:       title,
		SKU:         sku,
		Price:       price,
		Description: NormalizeText(description),
		Images:      collector.urls,
		URL:         productURL,
	}, nil
}

// findByClassFragment returns the text of the first descendant whose class
// attribute contains the fragment.
func findByClassFragment(sel *goquery.Selection, fragment string) string {
	var out string
	sel.Find("*").EachWithBreak(func(_ int, node *goquery.Selection) bool {
		class, _ := node.Attr("class")
		if strings.Contains(strings.ToLower(class), fragment) {
			out = strings.TrimSpace(node.Text())
			return false
		}
		return true
	})
	return out
}

func stripHTML(html string) string {
	if html == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	return doc.Text()
}
