package scraper

import (
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"
)

// Selectors for the cookie-information consent overlays used by several of
// the target shops.
var consentSelectors = []string{
	"#coiOverlay",
	".coiOverlay-container",
	"#cookie-information-template-wrapper",
}

// dismissCookieConsent hides consent overlays programmatically. Clicking the
// accept button is unreliable across these shops; forcing the overlay out of
// the way via JS is what actually works.
func dismissCookieConsent(page playwright.Page, extraSelectors ...string) {
	selectors := append(append([]string{}, consentSelectors...), extraSelectors...)
	joined := strings.Join(selectors, ", ")

	overlay := page.Locator(joined)
	count, err := overlay.Count()
	if err != nil || count == 0 {
		return
	}

	// Best effort: wait briefly for it to render before hiding it.
	overlay.First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(3000),
	})

	script := fmt.Sprintf(`document.querySelectorAll('%s').forEach(el => {
		el.setAttribute('aria-hidden', 'true');
		el.style.display = 'none';
		el.style.pointerEvents = 'none';
		el.style.zIndex = '-1';
	});`, joined)
	page.Evaluate(script)
	page.WaitForTimeout(500)
}
