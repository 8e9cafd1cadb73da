package scraper

import (
	"fmt"
	"log/slog"

	"github.com/playwright-community/playwright-go"

	"github.com/toyscout/product-scraper/internal/browser"
	"github.com/toyscout/product-scraper/internal/models"
)

const rockahulaBaseURL = "https://www.rockahulakids.com"

// RockahulaScraper drives rockahulakids.com through its header search
// drawer.
type RockahulaScraper struct {
	browser *browser.Browser
	logger  *slog.Logger
}

func NewRockahulaScraper(b *browser.Browser, logger *slog.Logger) *RockahulaScraper {
	return &RockahulaScraper{browser: b, logger: logger.With("scraper", "rockahula")}
}

func (s *RockahulaScraper) Scrape(searchText string) (*models.Product, error) {
	return runPageFlow(s.browser, s.logger, pageFlow{
		site:      "rockahula",
		baseURL:   rockahulaBaseURL + "/",
		search:    s.search,
		firstLink: s.firstProductLink,
		extract:   s.extractProduct,
	}, searchText)
}

func (s *RockahulaScraper) search(page playwright.Page, searchText string) error {
	button := page.Locator("div.t4s-site-nav__search > a, a[href='/search']").First()
	if err := button.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(10000),
	}); err != nil {
		return fmt.Errorf("search button not found: %w", err)
	}
	if err := button.Click(); err != nil {
		return fmt.Errorf("failed to open search drawer: %w", err)
	}

	drawer := page.Locator("#t4s-search-hidden")
	if err := drawer.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(10000),
	}); err != nil {
		return fmt.Errorf("search drawer did not open: %w", err)
	}

	input := page.Locator("input[data-input-search], input.t4s-mini-search__input").First()
	if err := input.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(10000),
	}); err != nil {
		return fmt.Errorf("search input not visible: %w", err)
	}

	if err := input.PressSequentially(searchText, playwright.LocatorPressSequentiallyOptions{
		Delay: playwright.Float(100),
	}); err != nil {
		return fmt.Errorf("failed to type search text: %w", err)
	}

	results := page.Locator("div[data-results-search], div.t4s-mini-search__content")
	if err := results.First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(15000),
	}); err != nil {
		return fmt.Errorf("search results never appeared: %w", err)
	}

	products := page.Locator("div.t4s-widget__pr")
	if err := products.First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(15000),
	}); err != nil {
		return fmt.Errorf("no products found for %q: %w", searchText, err)
	}
	return nil
}

func (s *RockahulaScraper) firstProductLink(page playwright.Page, searchText string) (string, error) {
	results := page.Locator("div[data-results-search], div.t4s-mini-search__content")

	links := results.Locator("a.t4s-widget__pr-title")
	if count, err := links.Count(); err != nil || count == 0 {
		links = results.Locator("div.t4s-widget__pr a[href*='/products/']")
		if count, err := links.Count(); err != nil || count == 0 {
			return "", fmt.Errorf("no product links in search results")
		}
	}

	href, err := links.First().GetAttribute("href")
	if err != nil || href == "" {
		return "", fmt.Errorf("product link has no href attribute")
	}
	return absoluteURL(rockahulaBaseURL, href), nil
}

func (s *RockahulaScraper) extractProduct(page playwright.Page, productURL string) (*models.Product, error) {
	titleEl := page.Locator("h1.t4s-product__title")
	if err := titleEl.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(15000),
	}); err != nil {
		return nil, fmt.Errorf("product title never appeared: %w", err)
	}
	title := innerText(page, "h1.t4s-product__title")

	price := innerText(page, "div.t4s-product-price span.money")

	sku := innerText(page, "span.t4s-productMeta__value.t4s-sku-value, span.t4s-sku-value")
	if sku == "" {
		sku = innerText(page, "div.t4s-sku-wrapper")
	}

	description := NormalizeText(innerText(page, "div.t4s-product__description.t4s-rte"))

	// Master images carry the original resolution; lazy thumbnails are the
	// fallback.
	collector := newImageCollector()
	if imgs, err := page.Locator("img[data-master]").All(); err == nil {
		collector.addLocators(imgs, "data-master")
	}
	if len(collector.urls) == 0 {
		if imgs, err := page.Locator("div[data-product-single-media-wrapper] img, div.t4s-product__media img").All(); err == nil {
			collector.addLocators(imgs, "src", "data-src")
		}
	}

	return &models.Product{
		Title:       title,
		SKU:         sku,
		Price:       price,
		Description: description,
		Images:      collector.urls,
		URL:         productURL,
	}, nil
}
