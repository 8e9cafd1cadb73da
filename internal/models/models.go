package models

// Product is the normalized output of a successful scrape. Every scraper
// returns this shape regardless of how the target site structures its data.
type Product struct {
	Title          string   `json:"title"`
	SKU            string   `json:"sku"`
	Price          string   `json:"price"`
	Description    string   `json:"description"`
	Specifications string   `json:"specifications"`
	Images         []string `json:"images"`
	PrimaryImage   string   `json:"primary_image"`
	URL            string   `json:"url"`
}

// ScrapeRequest is one item of a batch lookup. Exactly which query field is
// required depends on the resolved brand; Category, Barcode, Price and
// Quantity are opaque pass-through metadata echoed back in the result.
type ScrapeRequest struct {
	Name     string `json:"name,omitempty"`
	Code     string `json:"code,omitempty"`
	Barcode  string `json:"barcode,omitempty"`
	Brand    string `json:"brand,omitempty"`
	Site     string `json:"site,omitempty"`
	Category string `json:"category,omitempty"`
	Price    string `json:"price,omitempty"`
	Quantity string `json:"quantity,omitempty"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ScrapeResult is the outcome of resolving a single ScrapeRequest. Exactly
// one of Product/Error is set, keyed by Status.
type ScrapeResult struct {
	Status   string   `json:"status"`
	Product  *Product `json:"product,omitempty"`
	Error    string   `json:"error,omitempty"`
	Category string   `json:"category,omitempty"`
	Barcode  string   `json:"barcode,omitempty"`
	Price    string   `json:"price,omitempty"`
	Quantity string   `json:"quantity,omitempty"`
}

// SuccessResult builds a success-status result carrying the request's
// pass-through metadata.
func SuccessResult(req ScrapeRequest, product *Product) ScrapeResult {
	return ScrapeResult{
		Status:   StatusSuccess,
		Product:  product,
		Category: req.Category,
		Barcode:  req.Barcode,
		Price:    req.Price,
		Quantity: req.Quantity,
	}
}

// ErrorResult builds an error-status result carrying the request's
// pass-through metadata.
func ErrorResult(req ScrapeRequest, message string) ScrapeResult {
	return ScrapeResult{
		Status:   StatusError,
		Error:    message,
		Category: req.Category,
		Barcode:  req.Barcode,
		Price:    req.Price,
		Quantity: req.Quantity,
	}
}
