package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/miethe/family-shopping-dashboard-sub003/internal/model"
)

// GiftCreate is the request body for creating a gift.
type GiftCreate struct {
	ListID      string `json:"list_id,omitempty"`
	RecipientID string `json:"recipient_id,omitempty"`
	OccasionID  string `json:"occasion_id,omitempty"`
	Name        string `json:"name"`
	URL         string `json:"url,omitempty"`
	PriceCents  int64  `json:"price_cents,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// GiftUpdate is the request body for updating a gift. Nil fields are
// left unchanged by the backend.
type GiftUpdate struct {
	RecipientID *string           `json:"recipient_id,omitempty"`
	OccasionID  *string           `json:"occasion_id,omitempty"`
	Name        *string           `json:"name,omitempty"`
	URL         *string           `json:"url,omitempty"`
	PriceCents  *int64            `json:"price_cents,omitempty"`
	Status      *model.GiftStatus `json:"status,omitempty"`
	Notes       *string           `json:"notes,omitempty"`
}

// ListCreate is the request body for creating a gift list.
type ListCreate struct {
	Title      string `json:"title"`
	OccasionID string `json:"occasion_id,omitempty"`
}

// ListUpdate is the request body for updating a gift list.
type ListUpdate struct {
	Title      *string `json:"title,omitempty"`
	OccasionID *string `json:"occasion_id,omitempty"`
	Archived   *bool   `json:"archived,omitempty"`
}

// OccasionCreate is the request body for creating an occasion.
type OccasionCreate struct {
	Name      string `json:"name"`
	Date      string `json:"date,omitempty"`
	Recurring bool   `json:"recurring,omitempty"`
}

// PersonCreate is the request body for creating a person.
type PersonCreate struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship,omitempty"`
	Birthday     string `json:"birthday,omitempty"`
}

// CreateGift creates a gift and returns the canonical entity.
func (c *Client) CreateGift(ctx context.Context, req GiftCreate) (*model.Gift, error) {
	var gift model.Gift
	if err := c.call(ctx, http.MethodPost, "/gifts", req, &gift); err != nil {
		return nil, err
	}
	return &gift, nil
}

// UpdateGift applies a partial update and returns the canonical entity.
func (c *Client) UpdateGift(ctx context.Context, id string, req GiftUpdate) (*model.Gift, error) {
	var gift model.Gift
	if err := c.call(ctx, http.MethodPatch, "/gifts/"+url.PathEscape(id), req, &gift); err != nil {
		return nil, err
	}
	return &gift, nil
}

// UpdateGiftStatus moves a gift through its lifecycle.
func (c *Client) UpdateGiftStatus(ctx context.Context, id string, status model.GiftStatus) (*model.Gift, error) {
	return c.UpdateGift(ctx, id, GiftUpdate{Status: &status})
}

// DeleteGift removes a gift.
func (c *Client) DeleteGift(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/gifts/"+url.PathEscape(id), nil, nil)
}

// CreateList creates a gift list and returns the canonical entity.
func (c *Client) CreateList(ctx context.Context, req ListCreate) (*model.GiftList, error) {
	var list model.GiftList
	if err := c.call(ctx, http.MethodPost, "/lists", req, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// UpdateList applies a partial update and returns the canonical entity.
func (c *Client) UpdateList(ctx context.Context, id string, req ListUpdate) (*model.GiftList, error) {
	var list model.GiftList
	if err := c.call(ctx, http.MethodPatch, "/lists/"+url.PathEscape(id), req, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// DeleteList removes a gift list.
func (c *Client) DeleteList(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/lists/"+url.PathEscape(id), nil, nil)
}

// CreateOccasion creates an occasion and returns the canonical entity.
func (c *Client) CreateOccasion(ctx context.Context, req OccasionCreate) (*model.Occasion, error) {
	var occ model.Occasion
	if err := c.call(ctx, http.MethodPost, "/occasions", req, &occ); err != nil {
		return nil, err
	}
	return &occ, nil
}

// DeleteOccasion removes an occasion.
func (c *Client) DeleteOccasion(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/occasions/"+url.PathEscape(id), nil, nil)
}

// CreatePerson creates a person and returns the canonical entity.
func (c *Client) CreatePerson(ctx context.Context, req PersonCreate) (*model.Person, error) {
	var p model.Person
	if err := c.call(ctx, http.MethodPost, "/people", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeletePerson removes a person.
func (c *Client) DeletePerson(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/people/"+url.PathEscape(id), nil, nil)
}
