package scraper

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/playwright-community/playwright-go"

	"github.com/toyscout/product-scraper/internal/browser"
	"github.com/toyscout/product-scraper/internal/models"
)

const liewoodBaseURL = "https://www.liewood.com"

// LiewoodScraper searches liewood.com by product name through the site's
// search URL. Product pages embed a JSON blob with the full product record,
// which is preferred over selector scraping when present.
type LiewoodScraper struct {
	browser *browser.Browser
	logger  *slog.Logger
}

func NewLiewoodScraper(b *browser.Browser, logger *slog.Logger) *LiewoodScraper {
	return &LiewoodScraper{browser: b, logger: logger.With("scraper", "liewood")}
}

func (s *LiewoodScraper) Scrape(searchText string) (*models.Product, error) {
	return runPageFlow(s.browser, s.logger, pageFlow{
		site:      "liewood",
		baseURL:   liewoodBaseURL + "/",
		search:    s.search,
		firstLink: s.firstProductLink,
		extract:   s.extractProduct,
	}, searchText)
}

func (s *LiewoodScraper) search(page playwright.Page, searchText string) error {
	searchURL := fmt.Sprintf("%s/search?q=%s", liewoodBaseURL, url.QueryEscape(searchText))

	s.logger.Info("navigating to search URL", "url", searchURL)
	if _, err := page.Goto(searchURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   playwright.Float(30000),
	}); err != nil {
		return fmt.Errorf("failed to load search page: %w", err)
	}

	// The results panel renders client-side; give the dynamic content a
	// moment before probing for cards.
	page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State: playwright.LoadStateDomcontentloaded,
	})
	page.WaitForTimeout(3000)
	return nil
}

func (s *LiewoodScraper) firstProductLink(page playwright.Page, searchText string) (string, error) {
	page.Locator("search-result-panel").First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(20000),
	})
	page.WaitForTimeout(2000)

	var card playwright.Locator
	for _, selector := range []string{
		"product-card.product-card",
		"product-card",
		"product-list product-card",
	} {
		cards := page.Locator(selector)
		if count, err := cards.Count(); err == nil && count > 0 {
			card = cards.First()
			break
		}
	}
	if card == nil {
		return "", fmt.Errorf("no product cards for %q", searchText)
	}

	for _, selector := range []string{"a[href*='/products/']", "a.product-card__link", "a[href]"} {
		link := card.Locator(selector).First()
		if count, err := link.Count(); err == nil && count > 0 {
			if href, err := link.GetAttribute("href"); err == nil && href != "" {
				return absoluteURL(liewoodBaseURL, href), nil
			}
		}
	}
	return "", fmt.Errorf("first product card has no link")
}

// liewoodProductJSON is the embedded #product-json blob on product pages.
type liewoodProductJSON struct {
	Title       string `json:"title"`
	Price       int64  `json:"price"` // cents
	Description string `json:"description"`
	Content     string `json:"content"`
	Variants    []struct {
		SKU string `json:"sku"`
	} `json:"variants"`
	Images []string `json:"images"`
}

func (s *LiewoodScraper) extractProduct(page playwright.Page, productURL string) (*models.Product, error) {
	var embedded *liewoodProductJSON
	script := page.Locator("#product-json")
	if count, err := script.Count(); err == nil && count > 0 {
		if text, err := script.InnerText(); err == nil {
			var parsed liewoodProductJSON
			if json.Unmarshal([]byte(text), &parsed) == nil && parsed.Title != "" {
				embedded = &parsed
			}
		}
	}

	product := &models.Product{URL: productURL}

	if embedded != nil {
		product.Title = embedded.Title
		product.Price = fmt.Sprintf("%.2f", float64(embedded.Price)/100)
		if embedded.Description != "" {
			product.Description = NormalizeText(stripHTML(embedded.Description))
		} else if embedded.Content != "" {
			product.Description = NormalizeText(stripHTML(embedded.Content))
		}
		if len(embedded.Variants) > 0 {
			product.SKU = embedded.Variants[0].SKU
		}
		collector := newImageCollector()
		for _, img := range embedded.Images {
			collector.add(img)
		}
		product.Images = collector.urls
	}

	if product.Title == "" {
		product.Title = firstInnerText(page, "h1.product-title", "h1[itemprop='name']", "h1")
	}
	if product.Title == "" {
		return nil, fmt.Errorf("product title not found")
	}

	if product.Price == "" || product.Price == "0.00" {
		product.Price = firstInnerText(page, ".price", ".product-price", "[itemprop='price']")
	}
	if product.SKU == "" {
		product.SKU = innerText(page, ".variant-sku, variant-sku")
	}
	if product.Description == "" {
		accordion := page.Locator("accordion-disclosure").Filter(playwright.LocatorFilterOptions{
			HasText: "DESCRIPTION",
		})
		if count, err := accordion.Count(); err == nil && count > 0 {
			if text, err := accordion.First().Locator(".accordion__content").InnerText(); err == nil {
				product.Description = NormalizeText(text)
			}
		}
	}
	if len(product.Images) == 0 {
		collector := newImageCollector()
		if imgs, err := page.Locator(".product-gallery__media img").All(); err == nil {
			collector.addLocators(imgs, "src", "data-src")
		}
		product.Images = collector.urls
	}

	// Materials accordion doubles as the specifications block.
	if specs := innerText(page, "details .accordion__content span.metafield-multi_line_text_field"); specs != "" {
		product.Specifications = NormalizeText(specs)
	}

	return product, nil
}
