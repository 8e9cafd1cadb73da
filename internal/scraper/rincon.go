package scraper

import (
	"fmt"
	"log/slog"

	"github.com/playwright-community/playwright-go"

	"github.com/toyscout/product-scraper/internal/browser"
	"github.com/toyscout/product-scraper/internal/models"
)

// RinconScraper drives the elrincondelosgenios.com storefront through its
// header search dropdown. Slower than the API scraper; registered as the
// brand's fallback.
type RinconScraper struct {
	browser *browser.Browser
	logger  *slog.Logger
}

func NewRinconScraper(b *browser.Browser, logger *slog.Logger) *RinconScraper {
	return &RinconScraper{browser: b, logger: logger.With("scraper", "elrincondelosgenios")}
}

func (s *RinconScraper) Scrape(searchText string) (*models.Product, error) {
	return runPageFlow(s.browser, s.logger, pageFlow{
		site:      "elrincondelosgenios",
		baseURL:   rinconBaseURL,
		search:    s.search,
		firstLink: s.firstProductLink,
		extract:   s.extractProduct,
	}, searchText)
}

func (s *RinconScraper) search(page playwright.Page, searchText string) error {
	var button playwright.Locator
	for _, selector := range []string{
		"#header-search-btn-drop",
		".header-search-btn",
		"a[data-toggle='dropdown'].header-search-btn",
	} {
		loc := page.Locator(selector)
		if count, err := loc.Count(); err == nil && count > 0 {
			button = loc
			break
		}
	}
	if button == nil {
		return fmt.Errorf("search button not found")
	}

	// The button is sometimes covered by a promo banner; force the click
	// first and retry normally if that fails.
	err := button.Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(10000),
		Force:   playwright.Bool(true),
	})
	if err != nil {
		if err := button.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(10000)}); err != nil {
			return fmt.Errorf("failed to open search dropdown: %w", err)
		}
	}
	page.WaitForTimeout(1000)

	input := page.Locator("#search_widget input[name='s']")
	if count, err := input.Count(); err != nil || count == 0 {
		return fmt.Errorf("search input not found")
	}

	// Typing triggers the live search; no submit needed.
	if err := input.PressSequentially(searchText, playwright.LocatorPressSequentiallyOptions{
		Delay: playwright.Float(100),
	}); err != nil {
		return fmt.Errorf("failed to type search text: %w", err)
	}
	page.WaitForTimeout(2000)
	return nil
}

func (s *RinconScraper) firstProductLink(page playwright.Page, searchText string) (string, error) {
	suggestions := page.Locator(".autocomplete-suggestion")
	suggestions.First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(15000),
	})

	count, err := suggestions.Count()
	if err != nil || count == 0 {
		return "", fmt.Errorf("no autocomplete suggestions for %q", searchText)
	}

	href, err := suggestions.First().GetAttribute("data-url")
	if err != nil || href == "" {
		return "", fmt.Errorf("first suggestion has no data-url attribute")
	}
	return absoluteURL(rinconBaseURL, href), nil
}

func (s *RinconScraper) extractProduct(page playwright.Page, productURL string) (*models.Product, error) {
	title := firstInnerText(page,
		"h1.product-title",
		"h1.product__title",
		"h1[itemprop='name']",
		".product-title h1",
		".product__title h1",
		"h1",
	)
	if title == "" {
		return nil, fmt.Errorf("product title not found")
	}

	price := firstInnerText(page,
		".price",
		".product-price",
		".product__price",
		"[itemprop='price']",
		".price-current",
		".current-price",
		"span.price",
	)
	if price == "" {
		price = "Price not available"
	}

	description := NormalizeText(firstInnerText(page,
		".product-description",
		".product__description",
		"[itemprop='description']",
		".description",
		"#description",
		".product-details",
	))

	specifications := NormalizeText(firstInnerText(page,
		".specifications",
		".product-specs",
		".specs",
		"[itemprop='additionalProperty']",
		".product-attributes",
	))

	sku := firstInnerText(page,
		".sku",
		".product-sku",
		"[itemprop='sku']",
		".product-code",
		"span.sku",
	)

	collector := newImageCollector()
	for _, selector := range []string{
		".product-images img",
		".product__images img",
		".product-gallery img",
		"[itemprop='image']",
		".product-photos img",
		".main-image img",
		"img.product-image",
	} {
		imgs, err := page.Locator(selector).All()
		if err != nil || len(imgs) == 0 {
			continue
		}
		collector.addLocators(imgs, "src", "data-src")
		if len(collector.urls) > 0 {
			break
		}
	}

	return &models.Product{
		Title:          title,
		SKU:            sku,
		Price:          price,
		Description:    description,
		Specifications: specifications,
		Images:         collector.urls,
		URL:            productURL,
	}, nil
}
