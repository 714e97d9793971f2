package publishers

import (
	"time"

	"github.com/google/uuid"

	"github.com/jugend/amazon-ecs/internal/domain"
)

// Event is the payload published downstream for a newly seen item.
type Event struct {
	ID          string      `json:"id"`
	SearchID    string      `json:"search_id"`
	Item        domain.Item `json:"item"`
	CollectedAt time.Time   `json:"collected_at"`
}

// NewEvent constructs an Event for an item found by the given search.
func NewEvent(searchID string, item domain.Item) Event {
	return Event{
		ID:          uuid.NewString(),
		SearchID:    searchID,
		Item:        item,
		CollectedAt: time.Now().UTC(),
	}
}

// attributes are the routing fields copied into message attributes by the
// queue and topic sinks.
func (e Event) attributes() map[string]string {
	out := map[string]string{"search_id": e.SearchID}
	if e.Item.ASIN != "" {
		out["asin"] = e.Item.ASIN
	}
	if e.Item.Country != "" {
		out["country"] = e.Item.Country
	}
	return out
}
