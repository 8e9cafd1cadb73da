// Package registry maps site and brand identifiers to scraper instances.
// All lookups are case-insensitive against a static table built once at
// startup; the registry is safe for concurrent reads.
package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/toyscout/product-scraper/internal/browser"
	"github.com/toyscout/product-scraper/internal/scraper"
)

// UnknownSiteError reports a lookup for a site id that is not registered.
type UnknownSiteError struct {
	Site      string
	Available []string
}

func (e *UnknownSiteError) Error() string {
	return fmt.Sprintf("unknown site: %q. Available sites: %s", e.Site, strings.Join(e.Available, ", "))
}

// UnknownBrandError reports a lookup for a brand id that is not registered.
type UnknownBrandError struct {
	Brand     string
	Available []string
}

func (e *UnknownBrandError) Error() string {
	return fmt.Sprintf("unknown brand: %q. Available brands: %s", e.Brand, strings.Join(e.Available, ", "))
}

// Registry resolves site ids to scrapers and brand ids to ordered site
// fallback chains.
type Registry struct {
	scrapers map[string]scraper.Scraper
	brands   map[string][]string
}

// New builds the registry with every production scraper wired in. The brand
// table lists candidate sites in priority order; the resolver tries them
// sequentially and stops at the first success.
func New(b *browser.Browser, logger *slog.Logger) *Registry {
	hape := scraper.NewHapeScraper(b, logger)

	return &Registry{
		scrapers: map[string]scraper.Scraper{
			"hape":                   hape,
			"hape_global":            hape,
			"elrincondelosgenios":    scraper.NewRinconScraper(b, logger),
			"elrincondelosgenios_api": scraper.NewRinconAPIScraper(logger),
			"wookids":                scraper.NewWookidsScraper(b, logger),
			"liewood":                scraper.NewLiewoodScraper(b, logger),
			"widdop":                 scraper.NewWiddopScraper(b, logger),
			"donebydeer":             scraper.NewDoneByDeerScraper(b, logger),
			"rockahula":              scraper.NewRockahulaScraper(b, logger),
		},
		brands: map[string][]string{
			"hape":                {"hape", "hape_global"},
			"elrincondelosgenios": {"elrincondelosgenios_api", "elrincondelosgenios"},
			"wookids":             {"wookids"},
			"liewood":             {"liewood"},
			"widdop":              {"widdop"},
			"donebydeer":          {"donebydeer"},
			"rockahula":           {"rockahula"},
		},
	}
}

// NewWithScrapers builds a registry from explicit tables. Used by tests and
// by any caller that wants a reduced site set.
func NewWithScrapers(scrapers map[string]scraper.Scraper, brands map[string][]string) *Registry {
	normalized := make(map[string]scraper.Scraper, len(scrapers))
	for id, s := range scrapers {
		normalized[strings.ToLower(id)] = s
	}
	normalizedBrands := make(map[string][]string, len(brands))
	for id, sites := range brands {
		normalizedBrands[strings.ToLower(id)] = sites
	}
	return &Registry{scrapers: normalized, brands: normalizedBrands}
}

// ResolveSite returns the scraper registered for the site id.
func (r *Registry) ResolveSite(site string) (scraper.Scraper, error) {
	s, ok := r.scrapers[strings.ToLower(site)]
	if !ok {
		return nil, &UnknownSiteError{Site: site, Available: r.Sites()}
	}
	return s, nil
}

// ResolveBrand returns the brand's candidate sites in priority order
// (primary first, then fallbacks).
func (r *Registry) ResolveBrand(brand string) ([]string, error) {
	sites, ok := r.brands[strings.ToLower(brand)]
	if !ok {
		return nil, &UnknownBrandError{Brand: brand, Available: r.Brands()}
	}
	out := make([]string, len(sites))
	copy(out, sites)
	return out, nil
}

// Sites returns the registered site identifiers, sorted.
func (r *Registry) Sites() []string {
	out := make([]string, 0, len(r.scrapers))
	for id := range r.scrapers {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Brands returns the registered brand identifiers, sorted.
func (r *Registry) Brands() []string {
	out := make([]string, 0, len(r.brands))
	for id := range r.brands {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
