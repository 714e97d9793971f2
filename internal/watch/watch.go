// Package watch runs saved searches and publishes catalog items that have
// not been seen before.
package watch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jugend/amazon-ecs/internal/domain"
	"github.com/jugend/amazon-ecs/internal/logger"
	"github.com/jugend/amazon-ecs/internal/storage"
	"github.com/jugend/amazon-ecs/pkg/publishers"
	"github.com/jugend/amazon-ecs/pkg/searches"
)

// EventPublisher delivers an event to every configured sink and reports how
// many accepted it.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// Summary counts what one pass did.
type Summary struct {
	Searches  int `json:"searches"`
	Failed    int `json:"failed"`
	Items     int `json:"items"`
	New       int `json:"new"`
	Published int `json:"published"`
}

// Service runs saved searches against the catalog client.
type Service struct {
	client         searches.Client
	publisher      EventPublisher
	store          storage.Store
	log            logger.Logger
	defaultCountry string
	now            func() time.Time
	sleep          func(ctx context.Context, d time.Duration) error
}

// NewService wires a watcher pass. A nil store publishes every item on
// every pass.
func NewService(client searches.Client, pub EventPublisher, store storage.Store, log logger.Logger, defaultCountry string) *Service {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Service{
		client:         client,
		publisher:      pub,
		store:          store,
		log:            log,
		defaultCountry: defaultCountry,
		now:            time.Now,
		sleep:          sleepContext,
	}
}

// Run executes every search once. A failing search is logged and joined
// into the returned error without stopping the others.
func (s *Service) Run(ctx context.Context, list []searches.Search) (Summary, error) {
	var sum Summary
	if s == nil || s.client == nil {
		return sum, fmt.Errorf("watch service is not initialized")
	}
	if len(list) == 0 {
		return sum, fmt.Errorf("no searches configured")
	}

	var errs []error
	for i, search := range list {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		sum.Searches++
		if err := s.runSearch(ctx, search, &sum); err != nil {
			sum.Failed++
			errs = append(errs, err)
			s.log.ErrorObj("search failed", "search_error", map[string]any{
				"search_id": search.ID,
				"error":     err.Error(),
			})
		}

		if i < len(list)-1 {
			if err := s.sleep(ctx, search.RequestDelay()); err != nil {
				errs = append(errs, err)
				break
			}
		}
	}
	return sum, errors.Join(errs...)
}

func (s *Service) runSearch(ctx context.Context, search searches.Search, sum *Summary) error {
	resp, err := search.Run(ctx, s.client)
	if err != nil {
		return fmt.Errorf("run search %s: %w", search.ID, err)
	}
	if !resp.IsValidRequest() {
		return fmt.Errorf("search %s: request not valid: %s", search.ID, resp.Error())
	}
	if resp.HasError() {
		return fmt.Errorf("search %s: %s: %s", search.ID, resp.ErrorCode(), resp.Error())
	}

	country := search.Country
	if country == "" {
		country = s.defaultCountry
	}

	fetchedAt := s.now()
	var errs []error
	found, fresh, published := 0, 0, 0
	for _, el := range resp.Items() {
		item, ok := ItemFromElement(el, country, fetchedAt)
		if !ok {
			continue
		}
		found++

		n, err := s.handleItem(ctx, search.ID, item)
		if err != nil {
			errs = append(errs, err)
		}
		if n >= 0 {
			fresh++
			published += n
		}
	}

	sum.Items += found
	sum.New += fresh
	sum.Published += published

	s.log.InfoObj("search completed", "search_result", map[string]any{
		"search_id":     search.ID,
		"total_results": resp.TotalResults(),
		"items":         found,
		"new_items":     fresh,
	})
	return errors.Join(errs...)
}

// handleItem publishes an unseen item and marks it. It returns -1 for an
// item that was already seen, otherwise the number of sinks that took it.
func (s *Service) handleItem(ctx context.Context, searchID string, item domain.Item) (int, error) {
	key := item.Key()
	if s.store != nil {
		seen, err := s.store.SeenItem(key)
		if err != nil {
			return -1, fmt.Errorf("check item %s: %w", key, err)
		}
		if seen {
			return -1, nil
		}
	}

	n := 0
	if s.publisher != nil {
		var err error
		n, err = s.publisher.Publish(ctx, publishers.NewEvent(searchID, item))
		if err != nil && n == 0 {
			return 0, fmt.Errorf("publish item %s: %w", key, err)
		}
		if err != nil {
			s.log.WarnObj("item partially published", "publish_error", map[string]any{
				"item":      key,
				"delivered": n,
				"error":     err.Error(),
			})
		}
	}

	if s.store != nil {
		if err := s.store.MarkItem(key); err != nil {
			return n, fmt.Errorf("mark item %s: %w", key, err)
		}
	}
	return n, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
