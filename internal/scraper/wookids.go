package scraper

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/toyscout/product-scraper/internal/browser"
	"github.com/toyscout/product-scraper/internal/models"
)

const wookidsBaseURL = "https://wookids.eu"

// WookidsScraper searches wookids.eu by catalog code through the site's
// direct search URL.
type WookidsScraper struct {
	browser *browser.Browser
	logger  *slog.Logger
}

func NewWookidsScraper(b *browser.Browser, logger *slog.Logger) *WookidsScraper {
	return &WookidsScraper{browser: b, logger: logger.With("scraper", "wookids")}
}

// NormalizeWookidsCode strips the catalog's "WK" prefix; the on-site search
// only matches the bare numeric code.
func NormalizeWookidsCode(code string) string {
	code = strings.TrimSpace(code)
	if len(code) >= 2 && strings.EqualFold(code[:2], "WK") {
		return strings.TrimSpace(code[2:])
	}
	return code
}

func (s *WookidsScraper) Scrape(searchText string) (*models.Product, error) {
	return runPageFlow(s.browser, s.logger, pageFlow{
		site:      "wookids",
		baseURL:   wookidsBaseURL,
		search:    s.search,
		firstLink: s.firstProductLink,
		extract:   s.extractProduct,
	}, searchText)
}

func (s *WookidsScraper) search(page playwright.Page, searchText string) error {
	code := NormalizeWookidsCode(searchText)
	searchURL := fmt.Sprintf("%s/en/search?query=%s", wookidsBaseURL, url.QueryEscape(code))

	s.logger.Info("navigating to search URL", "url", searchURL)
	if _, err := page.Goto(searchURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
	}); err != nil {
		return fmt.Errorf("failed to load search page: %w", err)
	}

	container := page.Locator("#searchkit-faceting-container")
	if err := container.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(15000),
	}); err != nil {
		return fmt.Errorf("search container never appeared: %w", err)
	}

	page.Locator(".euiFlexGrid.products-wrapper").WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(15000),
	})

	thumbnails := page.Locator(".product-thumbnail")
	if err := thumbnails.First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(15000),
	}); err != nil {
		return fmt.Errorf("no products found for product code %q: %w", code, err)
	}
	return nil
}

func (s *WookidsScraper) firstProductLink(page playwright.Page, searchText string) (string, error) {
	first := page.Locator(".product-thumbnail").First()
	if err := first.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(15000),
	}); err != nil {
		return "", fmt.Errorf("no product thumbnail in search results: %w", err)
	}

	link := first.Locator("a.lnk-product").First()
	if count, err := link.Count(); err != nil || count == 0 {
		link = first.Locator("a.euiLink").First()
		if count, err := link.Count(); err != nil || count == 0 {
			return "", fmt.Errorf("no product link in search results")
		}
	}

	href, err := link.GetAttribute("href")
	if err != nil || href == "" {
		return "", fmt.Errorf("product link has no href attribute")
	}
	return absoluteURL(wookidsBaseURL, href), nil
}

func (s *WookidsScraper) extractProduct(page playwright.Page, productURL string) (*models.Product, error) {
	dismissCookieConsent(page)

	info := page.Locator("#product-info").First()
	if err := info.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(15000),
	}); err != nil {
		return nil, fmt.Errorf("product page never loaded: %w", err)
	}

	title := innerText(page, "h1.product-model-name")
	if title == "" {
		return nil, fmt.Errorf("product title not found")
	}

	sku := innerText(page, ".price-sku")
	// The element reads "sku: 30175559".
	if i := strings.LastIndex(strings.ToLower(sku), ":"); i >= 0 {
		sku = strings.TrimSpace(sku[i+1:])
	}

	price := firstInnerText(page, `.currency-format[data-currency="EUR"]`, ".price_value")

	// The description lives in a Bootstrap accordion that starts collapsed;
	// expanding it via JS is more reliable than clicking the toggle.
	description := ""
	if count, err := page.Locator("#description").Count(); err == nil && count > 0 {
		page.Evaluate(`(() => {
			const accordion = document.querySelector('#description');
			if (accordion) {
				accordion.classList.remove('collapse');
				accordion.classList.add('show');
				accordion.style.display = 'block';
				accordion.style.height = 'auto';
			}
		})()`)
		page.WaitForTimeout(1000)
		description = NormalizeText(innerText(page, "#description"))
	}

	specifications := s.extractSpecifications(page)

	collector := newImageCollector()
	if imgs, err := page.Locator(".carousel-item img, .product-attr.product-image img").All(); err == nil {
		collector.addLocators(imgs, "data-src", "src")
	}
	if len(collector.urls) == 0 {
		if imgs, err := page.Locator(".product-image img, img[data-src], img[src]").All(); err == nil {
			collector.addLocators(imgs, "data-src", "src")
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

// extractSpecifications reads the characteristics table row by row into
// "key: value" lines.
func (s *WookidsScraper) extractSpecifications(page playwright.Page) string {
	accordion := page.Locator("#caracteristics").First()
	if count, err := accordion.Count(); err != nil || count == 0 {
		return ""
	}

	page.Evaluate(`(() => {
		const accordion = document.querySelector('#caracteristics');
		if (accordion && accordion.classList.contains('collapse')) {
			accordion.classList.add('show');
		}
	})()`)
	page.WaitForTimeout(500)

	table := accordion.Locator("table").First()
	if count, err := table.Count(); err != nil || count == 0 {
		return ""
	}

	rows, err := table.Locator("tbody tr").All()
	if err != nil {
		return ""
	}

	var lines []string
	for _, row := range rows {
		key, err1 := row.Locator("th").First().InnerText()
		value, err2 := row.Locator("td").First().InnerText()
		if err1 != nil || err2 != nil {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key != "" && value != "" {
			lines = append(lines, key+": "+value)
		}
	}
	return strings.Join(lines, "\n")
}
