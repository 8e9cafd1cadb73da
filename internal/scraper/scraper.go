package scraper

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/toyscout/product-scraper/internal/browser"
	"github.com/toyscout/product-scraper/internal/models"
)

// Scraper maps free-text search input to a normalized product record for one
// target site. Implementations fail with *ScrapeError when no matching
// product exists, required page elements never appear, or navigation errors.
type Scraper interface {
	Scrape(searchText string) (*models.Product, error)
}

// ScrapeError carries a human-readable diagnostic for a failed scrape
// attempt against a single site.
type ScrapeError struct {
	Site    string
	Message string
	Err     error
}

func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Site, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Site, e.Message)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

func scrapeErr(site, message string, err error) *ScrapeError {
	return &ScrapeError{Site: site, Message: message, Err: err}
}

// CleanImageURL normalizes an image URL: protocol-relative URLs become
// https, query strings are stripped.
func CleanImageURL(url string) string {
	if url == "" {
		return url
	}
	if strings.HasPrefix(url, "//") {
		url = "https:" + url
	}
	if i := strings.Index(url, "?"); i >= 0 {
		url = url[:i]
	}
	return url
}

// NormalizeText collapses all whitespace runs (including newlines) into
// single spaces.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// absoluteURL resolves href against a site base URL.
func absoluteURL(base, href string) string {
	base = strings.TrimSuffix(base, "/")
	switch {
	case href == "":
		return ""
	case strings.HasPrefix(href, "http"):
		return href
	case strings.HasPrefix(href, "/"):
		return base + href
	default:
		return base + "/" + href
	}
}

// imageCollector accumulates cleaned, de-duplicated image URLs in discovery
// order.
type imageCollector struct {
	urls []string
	seen map[string]bool
}

func newImageCollector() *imageCollector {
	return &imageCollector{seen: make(map[string]bool)}
}

func (c *imageCollector) add(rawURL string) {
	clean := CleanImageURL(rawURL)
	if clean == "" || c.seen[clean] {
		return
	}
	c.seen[clean] = true
	c.urls = append(c.urls, clean)
}

// addLocators pulls image URLs out of a set of <img> locators, preferring
// the listed attributes in order (lazy-loaded images keep the real URL in
// data-src or data-master).
func (c *imageCollector) addLocators(imgs []playwright.Locator, attrs ...string) {
	for _, img := range imgs {
		for _, attr := range attrs {
			src, err := img.GetAttribute(attr)
			if err == nil && src != "" {
				c.add(src)
				break
			}
		}
	}
}

// finishProduct fills the derived PrimaryImage field.
func finishProduct(p *models.Product) *models.Product {
	if len(p.Images) > 0 {
		p.PrimaryImage = p.Images[0]
	}
	return p
}

// pageFlow is the shared page-scrape sequence: navigate to the site, run the
// site's search, follow the first result, extract the product. Sites differ
// only in the three hooks.
type pageFlow struct {
	site      string
	baseURL   string
	search    func(page playwright.Page, query string) error
	firstLink func(page playwright.Page, query string) (string, error)
	extract   func(page playwright.Page, productURL string) (*models.Product, error)
}

func runPageFlow(b *browser.Browser, logger *slog.Logger, f pageFlow, query string) (*models.Product, error) {
	log := logger.With("site", f.site, "query", query)

	log.Info("opening page")
	page, err := b.NewPage()
	if err != nil {
		return nil, scrapeErr(f.site, "failed to open page", err)
	}
	defer page.Close()

	log.Info("navigating", "url", f.baseURL)
	if err := b.Navigate(page, f.baseURL, 2); err != nil {
		return nil, scrapeErr(f.site, "failed to load site", err)
	}

	log.Info("searching")
	if err := f.search(page, query); err != nil {
		return nil, scrapeErr(f.site, "search failed", err)
	}

	log.Info("locating first result")
	productURL, err := f.firstLink(page, query)
	if err != nil {
		return nil, scrapeErr(f.site, "no product found", err)
	}

	log.Info("opening product page", "url", productURL)
	if err := b.Navigate(page, productURL, 2); err != nil {
		return nil, scrapeErr(f.site, "failed to load product page", err)
	}

	log.Info("extracting product data")
	product, err := f.extract(page, productURL)
	if err != nil {
		return nil, scrapeErr(f.site, "extraction failed", err)
	}

	log.Info("scrape complete", "title", product.Title, "sku", product.SKU)
	return finishProduct(product), nil
}

// innerText returns the trimmed text of the first match, or "" when the
// selector matches nothing.
func innerText(page playwright.Page, selector string) string {
	loc := page.Locator(selector).First()
	count, err := loc.Count()
	if err != nil || count == 0 {
		return ""
	}
	text, err := loc.InnerText()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

// firstInnerText tries selectors in order and returns the first non-empty
// text.
func firstInnerText(page playwright.Page, selectors ...string) string {
	for _, sel := range selectors {
		if text := innerText(page, sel); text != "" {
			return text
		}
	}
	return ""
}
