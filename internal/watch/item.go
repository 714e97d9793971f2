package watch

import (
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/jugend/amazon-ecs/internal/domain"
	"github.com/jugend/amazon-ecs/pkg/xmlview"
)

// ItemFromElement reads the fields the watcher tracks from an Item
// element. ok is false when the element carries no ASIN.
func ItemFromElement(el *xmlview.Element, country string, fetchedAt time.Time) (domain.Item, bool) {
	asin := value(el, "ASIN")
	if asin == "" {
		return domain.Item{}, false
	}

	item := domain.Item{
		ASIN:          asin,
		Title:         value(el, "ItemAttributes/Title"),
		Manufacturer:  value(el, "ItemAttributes/Manufacturer"),
		ProductGroup:  value(el, "ItemAttributes/ProductGroup"),
		DetailPageURL: value(el, "DetailPageURL"),
		LowestPrice:   value(el, "OfferSummary/LowestNewPrice/FormattedPrice"),
		Country:       country,
		FetchedAt:     fetchedAt.UTC(),
	}

	if authors, ok := el.GetArray("ItemAttributes/Author"); ok {
		item.Authors = make([]string, 0, len(authors))
		for _, a := range authors {
			item.Authors = append(item.Authors, unescape(a))
		}
	}
	if img, ok := el.GetRecord("SmallImage"); ok {
		item.SmallImageURL = unescape(img["URL"])
	}
	if rank, err := strconv.Atoi(value(el, "SalesRank")); err == nil {
		item.SalesRank = rank
	}
	return item, true
}

func value(el *xmlview.Element, path string) string {
	v, _ := el.GetUnescaped(path)
	return strings.TrimSpace(v)
}

func unescape(s string) string {
	return strings.TrimSpace(html.UnescapeString(s))
}
