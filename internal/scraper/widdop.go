package scraper

import (
	"fmt"
	"log/slog"
	"net/url"

	"github.com/playwright-community/playwright-go"

	"github.com/toyscout/product-scraper/internal/browser"
	"github.com/toyscout/product-scraper/internal/models"
)

const widdopBaseURL = "https://www.widdop.co.uk"

// WiddopScraper searches widdop.co.uk by barcode through the site's direct
// search URL.
type WiddopScraper struct {
	browser *browser.Browser
	logger  *slog.Logger
}

func NewWiddopScraper(b *browser.Browser, logger *slog.Logger) *WiddopScraper {
	return &WiddopScraper{browser: b, logger: logger.With("scraper", "widdop")}
}

func (s *WiddopScraper) Scrape(searchText string) (*models.Product, error) {
	return runPageFlow(s.browser, s.logger, pageFlow{
		site:      "widdop",
		baseURL:   widdopBaseURL + "/",
		search:    s.search,
		firstLink: s.firstProductLink,
		extract:   s.extractProduct,
	}, searchText)
}

func (s *WiddopScraper) search(page playwright.Page, searchText string) error {
	searchURL := fmt.Sprintf("%s/search?term=%s", widdopBaseURL, url.QueryEscape(searchText))

	s.logger.Info("navigating to search URL", "url", searchURL)
	if _, err := page.Goto(searchURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
	}); err != nil {
		return fmt.Errorf("failed to load search page: %w", err)
	}

	grid := page.Locator(".product-list__grid")
	if err := grid.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(15000),
	}); err != nil {
		return fmt.Errorf("search results never appeared: %w", err)
	}

	items := page.Locator(".product-list__grid__product")
	if err := items.First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(15000),
	}); err != nil {
		return fmt.Errorf("no products found for barcode %q: %w", searchText, err)
	}
	return nil
}

func (s *WiddopScraper) firstProductLink(page playwright.Page, searchText string) (string, error) {
	first := page.Locator(".product-list__grid__product").First()
	if err := first.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(15000),
	}); err != nil {
		return "", fmt.Errorf("no product in search results: %w", err)
	}

	link := first.Locator(".product-summary__image a").First()
	if count, err := link.Count(); err != nil || count == 0 {
		link = first.Locator(".product-summary__name a").First()
		if count, err := link.Count(); err != nil || count == 0 {
			return "", fmt.Errorf("no product link in search results")
		}
	}

	href, err := link.GetAttribute("href")
	if err != nil || href == "" {
		return "", fmt.Errorf("product link has no href attribute")
	}
	return absoluteURL(widdopBaseURL, href), nil
}

func (s *WiddopScraper) extractProduct(page playwright.Page, productURL string) (*models.Product, error) {
	container := page.Locator("#product-page, [data-product-id]").First()
	if err := container.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(15000),
	}); err != nil {
		return nil, fmt.Errorf("product page never loaded: %w", err)
	}

	// Desktop and mobile render separate title elements; one of them exists.
	title := firstInnerText(page, "h1.product-information__name", ".product-information__name__mobile")
	if title == "" {
		return nil, fmt.Errorf("product title not found")
	}

	sku := innerText(page, ".product-information__product-code strong")
	if sku == "" {
		if gtmID, err := container.GetAttribute("data-gtm-id"); err == nil && gtmID != "" {
			sku = gtmID
		}
	}

	price := firstInnerText(page, ".product-information__price", ".product-price", ".price")
	description := NormalizeText(firstInnerText(page,
		".product-information__description",
		".product-description",
		"[itemprop='description']",
	))
	specifications := NormalizeText(firstInnerText(page,
		".product-information__specifications",
		".product-specifications",
	))

	collector := newImageCollector()
	if imgs, err := page.Locator(".product-gallery img, .product-images img").All(); err == nil {
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
