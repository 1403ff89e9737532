package domain

import "time"

// Product is the stock-relevant projection of a catalog product. The catalog
// subsystem owns the full document; this service reads price/vendor and
// mutates only Stock.
type Product struct {
	ID        string
	VendorID  string
	Name      string
	Price     int64
	Stock     int64
	UpdatedAt time.Time
}
