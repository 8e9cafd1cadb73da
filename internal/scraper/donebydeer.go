package scraper

import (
	"fmt"
	"log/slog"

	"github.com/playwright-community/playwright-go"

	"github.com/toyscout/product-scraper/internal/browser"
	"github.com/toyscout/product-scraper/internal/models"
)

const doneByDeerBaseURL = "https://www.donebydeer.com"

// DoneByDeerScraper searches donebydeer.com by barcode through the header
// search input.
type DoneByDeerScraper struct {
	browser *browser.Browser
	logger  *slog.Logger
}

func NewDoneByDeerScraper(b *browser.Browser, logger *slog.Logger) *DoneByDeerScraper {
	return &DoneByDeerScraper{browser: b, logger: logger.With("scraper", "donebydeer")}
}

func (s *DoneByDeerScraper) Scrape(searchText string) (*models.Product, error) {
	return runPageFlow(s.browser, s.logger, pageFlow{
		site:      "donebydeer",
		baseURL:   doneByDeerBaseURL + "/",
		search:    s.search,
		firstLink: s.firstProductLink,
		extract:   s.extractProduct,
	}, searchText)
}

func (s *DoneByDeerScraper) search(page playwright.Page, searchText string) error {
	// The desktop search button is hidden on narrow viewports.
	page.SetViewportSize(1920, 1080)
	page.WaitForTimeout(1000)

	dismissCookieConsent(page)

	button := page.Locator("button[aria-controls='search-drawer'], .header__search button, a[href='/search']").First()
	if count, err := button.Count(); err != nil || count == 0 {
		return fmt.Errorf("search button not found")
	}
	if err := button.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(10000)}); err != nil {
		return fmt.Errorf("failed to open search drawer: %w", err)
	}

	input := page.Locator("input[type='search'], input[name='q']").First()
	if err := input.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(10000),
	}); err != nil {
		return fmt.Errorf("search input never appeared: %w", err)
	}

	// Typing the barcode triggers the predictive search.
	if err := input.Clear(); err != nil {
		return fmt.Errorf("failed to clear search input: %w", err)
	}
	if err := input.PressSequentially(searchText, playwright.LocatorPressSequentiallyOptions{
		Delay: playwright.Float(50),
	}); err != nil {
		return fmt.Errorf("failed to type barcode: %w", err)
	}
	page.WaitForTimeout(2000)
	return nil
}

func (s *DoneByDeerScraper) firstProductLink(page playwright.Page, searchText string) (string, error) {
	results := page.Locator("#predictive-search-results a[href*='/products/'], .predictive-search a[href*='/products/']")
	if err := results.First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(15000),
	}); err != nil {
		return "", fmt.Errorf("no products found for barcode %q: %w", searchText, err)
	}

	href, err := results.First().GetAttribute("href")
	if err != nil || href == "" {
		return "", fmt.Errorf("product link has no href attribute")
	}
	return absoluteURL(doneByDeerBaseURL, href), nil
}

func (s *DoneByDeerScraper) extractProduct(page playwright.Page, productURL string) (*models.Product, error) {
	dismissCookieConsent(page)

	title := firstInnerText(page, "h1.product-meta__title", "h1.product__title", "h1")
	if title == "" {
		return nil, fmt.Errorf("product title not found")
	}

	sku := innerText(page, ".product-meta__sku-number")
	if sku == "" {
		sku = innerText(page, ".product-meta__sku")
	}

	price := firstInnerText(page, ".product-form__info-price .price", ".price--highlight", ".price")

	description := NormalizeText(firstInnerText(page,
		".product-tabs__tab-item-content.rte",
		"collapsible-content[open] .product-tabs__tab-item-content.rte",
		".product-tabs__tab-item-content p",
	))

	// Any tab mentioning materials is the closest thing to specifications.
	specifications := ""
	specsTab := page.Locator(".product-tabs__tab-item-content").Filter(playwright.LocatorFilterOptions{
		HasText: "material",
	})
	if count, err := specsTab.Count(); err == nil && count > 0 {
		if text, err := specsTab.First().InnerText(); err == nil {
			specifications = NormalizeText(text)
		}
	}

	collector := newImageCollector()
	if imgs, err := page.Locator(".product__media-item img, .product__media-image-wrapper img").All(); err == nil {
		collector.addLocators(imgs, "src", "data-src")
	}
	if len(collector.urls) == 0 {
		if imgs, err := page.Locator("product-media img, .product__media img").All(); err == nil {
			collector.addLocators(imgs, "src", "data-src")
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
