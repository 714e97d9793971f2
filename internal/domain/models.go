package domain

import "time"

// Item is the catalog record the watcher tracks and publishes.
type Item struct {
	ASIN          string    `json:"asin"`
	Title         string    `json:"title"`
	Authors       []string  `json:"authors,omitempty"`
	Manufacturer  string    `json:"manufacturer,omitempty"`
	ProductGroup  string    `json:"product_group,omitempty"`
	DetailPageURL string    `json:"detail_page_url,omitempty"`
	SmallImageURL string    `json:"small_image_url,omitempty"`
	LowestPrice   string    `json:"lowest_price,omitempty"`
	SalesRank     int       `json:"sales_rank,omitempty"`
	Country       string    `json:"country"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// Key identifies the item across searches. The same ASIN in two
// marketplaces is tracked separately.
func (i Item) Key() string {
	return i.Country + ":" + i.ASIN
}
