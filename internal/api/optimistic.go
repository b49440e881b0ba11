package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/miethe/family-shopping-dashboard-sub003/internal/cache"
	"github.com/miethe/family-shopping-dashboard-sub003/internal/model"
)

// Mutator pairs REST writes with the local cache so views see their
// own edits immediately. Each write marks the entry pending, calls the
// backend, and on success adopts the canonical response, which clears
// the marker. If the broadcast event for the write lands before the
// HTTP response, the event wins and the response is discarded.
type Mutator struct {
	client *Client
	store  *cache.Store
	logger *slog.Logger
}

// NewMutator creates a Mutator over the given client and cache.
func NewMutator(client *Client, store *cache.Store, logger *slog.Logger) *Mutator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mutator{
		client: client,
		store:  store,
		logger: logger.With("component", "mutator"),
	}
}

// adopt marks the entry pending and installs the canonical entity
// returned by the backend without touching the sequence counter.
func (m *Mutator) adopt(topic, entityID string, entity any) error {
	payload, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("marshal entity: %w", err)
	}
	m.store.MarkPending(topic, entityID)
	m.store.ConfirmLocal(topic, entityID, payload)
	return nil
}

// CreateGift creates a gift and seeds the cache with the response.
func (m *Mutator) CreateGift(ctx context.Context, req GiftCreate) (*model.Gift, error) {
	gift, err := m.client.CreateGift(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := m.adopt(model.GiftTopic(*gift), gift.ID, gift); err != nil {
		return nil, err
	}
	m.logger.Debug("gift created", "gift_id", gift.ID)
	return gift, nil
}

// UpdateGift applies a partial update optimistically. The entry is
// marked pending before the call; a failed call clears the marker so
// the next broadcast restores server state.
func (m *Mutator) UpdateGift(ctx context.Context, topic, id string, req GiftUpdate) (*model.Gift, error) {
	m.store.MarkPending(topic, id)

	gift, err := m.client.UpdateGift(ctx, id, req)
	if err != nil {
		m.store.ClearPending(topic, id)
		return nil, err
	}

	payload, merr := json.Marshal(gift)
	if merr != nil {
		m.store.ClearPending(topic, id)
		return nil, fmt.Errorf("marshal entity: %w", merr)
	}
	if !m.store.ConfirmLocal(topic, id, payload) {
		// A broadcast beat the response; the cache already holds
		// newer server state.
		m.logger.Debug("confirm skipped, event arrived first", "topic", topic, "gift_id", id)
	}
	return gift, nil
}

// UpdateGiftStatus moves a gift through its lifecycle optimistically.
func (m *Mutator) UpdateGiftStatus(ctx context.Context, topic, id string, status model.GiftStatus) (*model.Gift, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown gift status %q", status)
	}
	return m.UpdateGift(ctx, topic, id, GiftUpdate{Status: &status})
}

// DeleteGift removes a gift. The local entry stays visible until the
// server's DELETED broadcast removes it; a failed call clears the
// pending marker.
func (m *Mutator) DeleteGift(ctx context.Context, topic, id string) error {
	m.store.MarkPending(topic, id)

	err := m.client.DeleteGift(ctx, id)
	m.store.ClearPending(topic, id)
	if err != nil {
		return err
	}
	m.logger.Debug("gift deleted", "topic", topic, "gift_id", id)
	return nil
}

// UpdateList applies a partial list update optimistically.
func (m *Mutator) UpdateList(ctx context.Context, id string, req ListUpdate) (*model.GiftList, error) {
	m.store.MarkPending(model.TopicLists, id)

	list, err := m.client.UpdateList(ctx, id, req)
	if err != nil {
		m.store.ClearPending(model.TopicLists, id)
		return nil, err
	}

	payload, merr := json.Marshal(list)
	if merr != nil {
		m.store.ClearPending(model.TopicLists, id)
		return nil, fmt.Errorf("marshal entity: %w", merr)
	}
	m.store.ConfirmLocal(model.TopicLists, id, payload)
	return list, nil
}

// CreateList creates a gift list and seeds the cache.
func (m *Mutator) CreateList(ctx context.Context, req ListCreate) (*model.GiftList, error) {
	list, err := m.client.CreateList(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := m.adopt(model.TopicLists, list.ID, list); err != nil {
		return nil, err
	}
	return list, nil
}
