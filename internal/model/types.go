package model

// GiftStatus tracks a gift through its lifecycle.
type GiftStatus string

const (
	StatusIdea      GiftStatus = "idea"
	StatusPlanned   GiftStatus = "planned"
	StatusPurchased GiftStatus = "purchased"
	StatusWrapped   GiftStatus = "wrapped"
	StatusGiven     GiftStatus = "given"
)

// Valid reports whether s is a known gift status.
func (s GiftStatus) Valid() bool {
	switch s {
	case StatusIdea, StatusPlanned, StatusPurchased, StatusWrapped, StatusGiven:
		return true
	}
	return false
}

// Gift is one planned or purchased gift.
type Gift struct {
	ID          string     `json:"id"`
	ListID      string     `json:"list_id,omitempty"`
	RecipientID string     `json:"recipient_id,omitempty"`
	OccasionID  string     `json:"occasion_id,omitempty"`
	Name        string     `json:"name"`
	URL         string     `json:"url,omitempty"`
	PriceCents  int64      `json:"price_cents,omitempty"`
	Status      GiftStatus `json:"status"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   int64      `json:"created_at,omitempty"` // µs since epoch
	UpdatedAt   int64      `json:"updated_at,omitempty"` // µs since epoch
}

// GiftList groups gifts for one occasion or one recipient.
type GiftList struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	OccasionID string `json:"occasion_id,omitempty"`
	OwnerID    string `json:"owner_id,omitempty"`
	Archived   bool   `json:"archived,omitempty"`
	CreatedAt  int64  `json:"created_at,omitempty"`
	UpdatedAt  int64  `json:"updated_at,omitempty"`
}

// Occasion is a gift-giving event (birthday, holiday, anniversary).
type Occasion struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Date      string `json:"date,omitempty"` // ISO 8601 date, server-formatted
	Recurring bool   `json:"recurring,omitempty"`
	CreatedAt int64  `json:"created_at,omitempty"`
	UpdatedAt int64  `json:"updated_at,omitempty"`
}

// Person is a gift recipient or household member.
type Person struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Relationship string `json:"relationship,omitempty"`
	Birthday     string `json:"birthday,omitempty"` // ISO 8601 date
	CreatedAt    int64  `json:"created_at,omitempty"`
	UpdatedAt    int64  `json:"updated_at,omitempty"`
}
