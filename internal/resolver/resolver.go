// Package resolver turns one ScrapeRequest into exactly one ScrapeResult.
// It never returns an error: every failure path is captured as an
// error-status result so one item can never abort its siblings in a batch.
package resolver

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/toyscout/product-scraper/internal/models"
	"github.com/toyscout/product-scraper/internal/registry"
	"github.com/toyscout/product-scraper/internal/scraper"
)

// queryField names the request field a brand searches by.
type queryField string

const (
	fieldName    queryField = "name"
	fieldCode    queryField = "code"
	fieldBarcode queryField = "barcode"
)

// brandPolicy is the per-brand special-case table: which field the query
// text comes from and whether the returned SKU must be cross-checked
// against the request code.
type brandPolicy struct {
	// requires forces a single field; empty means the default policy
	// (code if present, else name).
	requires    queryField
	validateSKU bool
	// transform rewrites the query text before it reaches the scraper.
	transform func(string) string
}

var brandPolicies = map[string]brandPolicy{
	"liewood":    {requires: fieldName},
	"widdop":     {requires: fieldBarcode},
	"donebydeer": {requires: fieldBarcode},
	"wookids": {
		requires:    fieldCode,
		validateSKU: true,
		transform:   scraper.NormalizeWookidsCode,
	},
}

// Resolver resolves single scrape requests against the registry.
type Resolver struct {
	registry *registry.Registry
	logger   *slog.Logger

	// RetryValidationFailure lets later fallback candidates be tried after
	// an SKU cross-check fails. Default false: a fetched-but-wrong product
	// is treated as authoritative and ends the chain.
	RetryValidationFailure bool
}

func New(reg *registry.Registry, logger *slog.Logger) *Resolver {
	return &Resolver{
		registry: reg,
		logger:   logger.With("component", "resolver"),
	}
}

// Validate checks the request shape without scraping: brand or site must be
// set, and the brand's required query field must be present. Used by the
// HTTP boundary for eager whole-batch validation.
func (r *Resolver) Validate(req models.ScrapeRequest) error {
	if req.Brand == "" && req.Site == "" {
		return fmt.Errorf("brand or site required")
	}
	if req.Brand != "" {
		if _, err := r.registry.ResolveBrand(req.Brand); err != nil {
			return err
		}
	} else if _, err := r.registry.ResolveSite(req.Site); err != nil {
		return err
	}
	if _, err := queryText(req); err != nil {
		return err
	}
	return nil
}

// Resolve runs the full search: candidate sites in registered order, first
// fetch-and-validate success wins. The returned result always carries the
// request's pass-through metadata.
func (r *Resolver) Resolve(req models.ScrapeRequest) models.ScrapeResult {
	sites, err := candidateSites(r.registry, req)
	if err != nil {
		return models.ErrorResult(req, err.Error())
	}

	query, err := queryText(req)
	if err != nil {
		return models.ErrorResult(req, err.Error())
	}

	policy := policyFor(req.Brand)
	lastError := ""

	for _, site := range sites {
		s, err := r.registry.ResolveSite(site)
		if err != nil {
			// Registry-level miss mid-chain is non-fatal; record and try the
			// next candidate.
			r.logger.Warn("candidate site unknown", "site", site, "error", err)
			lastError = err.Error()
			continue
		}

		r.logger.Info("trying candidate site", "site", site, "query", query)
		product, err := s.Scrape(query)
		if err != nil {
			var unknownSite *registry.UnknownSiteError
			if errors.As(err, &unknownSite) {
				lastError = err.Error()
			} else {
				lastError = fmt.Sprintf("scraping failed on %s: %s", site, err.Error())
			}
			r.logger.Warn("candidate site failed", "site", site, "error", err)
			continue
		}

		if policy.validateSKU {
			expected := req.Code
			if policy.transform != nil {
				// The scraped SKU matches the transformed catalog code, not
				// the raw request value.
				expected = policy.transform(expected)
			}
			if err := crossCheckSKU(expected, product.SKU); err != nil {
				r.logger.Warn("sku validation failed", "site", site, "error", err)
				if r.RetryValidationFailure {
					lastError = err.Error()
					continue
				}
				// The fetch nominally succeeded; the data is wrong for
				// business reasons, not availability. Do not try fallbacks.
				return models.ErrorResult(req, err.Error())
			}
		}

		r.logger.Info("resolved", "site", site, "title", product.Title)
		return models.SuccessResult(req, product)
	}

	if lastError == "" {
		lastError = fmt.Sprintf("all sites failed for %s", brandOrSite(req))
	}
	return models.ErrorResult(req, lastError)
}

// candidateSites builds the ordered fallback chain: the brand's registered
// chain when a brand is given, otherwise the single named site. Brand takes
// priority when both are present.
func candidateSites(reg *registry.Registry, req models.ScrapeRequest) ([]string, error) {
	if req.Brand != "" {
		return reg.ResolveBrand(req.Brand)
	}
	if req.Site != "" {
		return []string{req.Site}, nil
	}
	return nil, fmt.Errorf("brand or site required")
}

// queryText picks the search text per the brand policy. When the policy
// pins a field and that field is absent, this is a hard validation error;
// it never falls through to a different field.
func queryText(req models.ScrapeRequest) (string, error) {
	policy := policyFor(req.Brand)

	var text string
	switch policy.requires {
	case fieldName:
		text = req.Name
	case fieldCode:
		text = req.Code
	case fieldBarcode:
		text = req.Barcode
	default:
		if req.Code != "" {
			text = req.Code
		} else {
			text = req.Name
		}
		if text == "" {
			return "", fmt.Errorf("name or code required")
		}
		return text, nil
	}

	if text == "" {
		return "", fmt.Errorf("%s is required for brand %s", policy.requires, strings.ToLower(req.Brand))
	}
	if policy.transform != nil {
		text = policy.transform(text)
	}
	return text, nil
}

func policyFor(brand string) brandPolicy {
	return brandPolicies[strings.ToLower(brand)]
}

// crossCheckSKU verifies the scraped SKU case-insensitively contains the
// request code. Blank on either side fails: a missing SKU cannot confirm
// the match.
func crossCheckSKU(code, sku string) error {
	code = strings.TrimSpace(code)
	sku = strings.TrimSpace(sku)
	if code == "" || sku == "" {
		return fmt.Errorf("sku validation failed: request code %q, scraped sku %q", code, sku)
	}
	if !strings.Contains(strings.ToLower(sku), strings.ToLower(code)) {
		return fmt.Errorf("sku validation failed: scraped sku %q does not contain code %q", sku, code)
	}
	return nil
}

func brandOrSite(req models.ScrapeRequest) string {
	if req.Brand != "" {
		return req.Brand
	}
	return req.Site
}
