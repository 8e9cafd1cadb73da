package scraper

import (
	"fmt"
	"log/slog"

	"github.com/playwright-community/playwright-go"

	"github.com/toyscout/product-scraper/internal/browser"
	"github.com/toyscout/product-scraper/internal/models"
)

const hapeBaseURL = "https://global.hape.com/"

// HapeScraper drives the global.hape.com storefront through its offcanvas
// search panel and autocomplete dropdown.
type HapeScraper struct {
	browser *browser.Browser
	logger  *slog.Logger
}

func NewHapeScraper(b *browser.Browser, logger *slog.Logger) *HapeScraper {
	return &HapeScraper{browser: b, logger: logger.With("scraper", "hape")}
}

func (s *HapeScraper) Scrape(searchText string) (*models.Product, error) {
	return runPageFlow(s.browser, s.logger, pageFlow{
		site:      "hape",
		baseURL:   hapeBaseURL,
		search:    s.search,
		firstLink: s.firstProductLink,
		extract:   s.extractProduct,
	}, searchText)
}

func (s *HapeScraper) search(page playwright.Page, searchText string) error {
	searchButton := page.Locator("button.header-action-search").First()
	if err := searchButton.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(10000),
	}); err != nil {
		return fmt.Errorf("search button not visible: %w", err)
	}
	if err := searchButton.Click(); err != nil {
		return fmt.Errorf("failed to open search panel: %w", err)
	}

	offcanvas := page.Locator("#offcanvas-search-content")
	if err := offcanvas.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(10000),
	}); err != nil {
		return fmt.Errorf("search panel did not open: %w", err)
	}

	input := page.Locator("#offcanvas-search-content #header-main-search-input, #offcanvas-search-content input[type='search']").First()
	if err := input.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(10000),
	}); err != nil {
		return fmt.Errorf("search input not visible: %w", err)
	}
	if err := input.Clear(); err != nil {
		return fmt.Errorf("failed to clear search input: %w", err)
	}

	// Type character by character so the autocomplete dropdown triggers.
	if err := input.PressSequentially(searchText, playwright.LocatorPressSequentiallyOptions{
		Delay: playwright.Float(100),
	}); err != nil {
		return fmt.Errorf("failed to type search text: %w", err)
	}

	// The input occasionally drops characters while the dropdown renders;
	// fall back to a direct fill.
	if value, err := input.InputValue(); err == nil && value != searchText {
		s.logger.Warn("search text mismatch, refilling", "expected", searchText, "got", value)
		input.Fill("")
		page.WaitForTimeout(100)
		if err := input.Fill(searchText); err != nil {
			return fmt.Errorf("failed to fill search text: %w", err)
		}
	}

	listbox := page.Locator("#search-suggest-listbox")
	if err := listbox.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(10000),
	}); err != nil {
		return fmt.Errorf("search suggestions did not appear: %w", err)
	}

	// Let the autocomplete debounce settle before trusting the results.
	page.WaitForTimeout(800)
	return nil
}

func (s *HapeScraper) firstProductLink(page playwright.Page, searchText string) (string, error) {
	links := page.Locator("li.search-suggest-product a.search-suggest-product-link")
	if err := links.First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(10000),
	}); err != nil {
		return "", fmt.Errorf("no product links in search suggestions: %w", err)
	}

	href, err := links.First().GetAttribute("href")
	if err != nil || href == "" {
		return "", fmt.Errorf("first suggestion has no href")
	}
	return absoluteURL(hapeBaseURL, href), nil
}

func (s *HapeScraper) extractProduct(page playwright.Page, productURL string) (*models.Product, error) {
	titleEl := page.Locator("h1.product-detail-name")
	if err := titleEl.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(15000),
	}); err != nil {
		return nil, fmt.Errorf("product title never appeared: %w", err)
	}

	title := innerText(page, "h1.product-detail-name")
	price := firstInnerText(page, "p.product-detail-price", "span.product-price")
	description := NormalizeText(innerText(page, ".description-accordion-content-description-text"))

	// The Features accordion doubles as the specifications block.
	specifications := ""
	features := page.Locator(".description-accordion-item").Filter(playwright.LocatorFilterOptions{
		HasText: "Features",
	})
	if count, err := features.Count(); err == nil && count > 0 {
		inner := features.First().Locator(".description-accordion-content-inner ul")
		if c, err := inner.Count(); err == nil && c > 0 {
			if text, err := inner.First().InnerText(); err == nil {
				specifications = NormalizeText(text)
			}
		}
		if specifications == "" {
			inner := features.First().Locator(".description-accordion-content-inner")
			if c, err := inner.Count(); err == nil && c > 0 {
				if text, err := inner.First().InnerText(); err == nil {
					specifications = NormalizeText(text)
				}
			}
		}
	}

	sku := innerText(page, "span.description-accordion-content-ordernumber")

	collector := newImageCollector()
	if imgs, err := page.Locator(".gallery-slider-image[src], .gallery-slider-image[data-src]").All(); err == nil {
		collector.addLocators(imgs, "src", "data-src")
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
