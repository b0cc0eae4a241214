package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/feldrin/vtt-backend/pkg/types"
)

type User struct {
	ID        string `gorm:"primaryKey;size:36"`
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

type Campaign struct {
	ID          string `gorm:"primaryKey;size:36"`
	Name        string
	CreatedByID string `gorm:"size:36"`
	CreatedBy   *User
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (c *Campaign) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

type Media struct {
	ID        string `gorm:"primaryKey;size:36"`
	Name      string
	URL       string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (m *Media) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

type Character struct {
	ID          string `gorm:"primaryKey;size:36"`
	Name        string
	CampaignID  string `gorm:"size:36;index"`
	CreatedByID string `gorm:"size:36"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (c *Character) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// Map's list position within its campaign lives in order_index ("order"
// is reserved in SQL). The mutation service keeps order values unique
// and contiguous per campaign.
type Map struct {
	ID              string    `gorm:"primaryKey;size:36"`
	Name            string
	OrderIndex      int       `gorm:"index:idx_maps_campaign_order"`
	SelectedMediaID string    `gorm:"size:36"`
	CampaignID      string    `gorm:"size:36;index:idx_maps_campaign_order"`
	Campaign        *Campaign `gorm:"constraint:OnDelete:CASCADE"`
	CreatedByID     string    `gorm:"size:36"`
	CreatedBy       *User
	Media           []Media   `gorm:"many2many:map_media"`
	Tokens          []Token   `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (m *Map) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

type Token struct {
	ID          string `gorm:"primaryKey;size:36"`
	X           float64
	Y           float64
	Width       float64
	Height      float64
	MapID       string `gorm:"size:36;index"`
	CharacterID string `gorm:"size:36"`
	CreatedByID string `gorm:"size:36"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (t *Token) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// Wire converts the stored map into its wire representation.
func (m *Map) Wire() types.Map {
	w := types.Map{
		ID:              m.ID,
		Name:            m.Name,
		Order:           m.OrderIndex,
		SelectedMediaID: m.SelectedMediaID,
		CampaignID:      m.CampaignID,
		CreatedByID:     m.CreatedByID,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	for _, md := range m.Media {
		w.Media = append(w.Media, types.Media{ID: md.ID, Name: md.Name, URL: md.URL})
	}
	for _, t := range m.Tokens {
		w.Tokens = append(w.Tokens, t.Wire())
	}
	return w
}

func (t Token) Wire() types.Token {
	return types.Token{
		ID:          t.ID,
		X:           t.X,
		Y:           t.Y,
		Width:       t.Width,
		Height:      t.Height,
		MapID:       t.MapID,
		CharacterID: t.CharacterID,
		CreatedByID: t.CreatedByID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// WireMaps converts a slice in place-order.
func WireMaps(ms []Map) []types.Map {
	out := make([]types.Map, 0, len(ms))
	for i := range ms {
		out = append(out, ms[i].Wire())
	}
	return out
}
