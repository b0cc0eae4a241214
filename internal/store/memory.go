package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/feldrin/vtt-backend/internal/apperr"
	"github.com/feldrin/vtt-backend/internal/model"
)

// MemStore is an in-memory map store with the same contract as MapRepo.
// Used by tests and for running the server without a database.
type MemStore struct {
	mu        sync.Mutex
	campaigns map[string]model.Campaign
	media     map[string]model.Media
	maps      map[string]model.Map
}

func NewMemStore() *MemStore {
	return &MemStore{
		campaigns: make(map[string]model.Campaign),
		media:     make(map[string]model.Media),
		maps:      make(map[string]model.Map),
	}
}

// Seed helpers for the entities the map store only references.

func (s *MemStore) AddCampaign(c model.Campaign) model.Campaign {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	s.campaigns[c.ID] = c
	return c
}

func (s *MemStore) AddMedia(m model.Media) model.Media {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	s.media[m.ID] = m
	return m
}

func (s *MemStore) ListByCampaign(ctx context.Context, campaignID string) ([]model.Map, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ms []model.Map
	for _, m := range s.maps {
		if m.CampaignID == campaignID {
			ms = append(ms, cloneMap(m))
		}
	}
	sort.Slice(ms, func(i, j int) bool { return ms[i].OrderIndex < ms[j].OrderIndex })
	return ms, nil
}

func (s *MemStore) GetByID(ctx context.Context, mapID string) (*model.Map, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.maps[mapID]
	if !ok {
		return nil, apperr.NotFoundf("map %q", mapID)
	}
	c := cloneMap(m)
	return &c, nil
}

func (s *MemStore) ListByMediaID(ctx context.Context, mediaID string) ([]model.Map, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ms []model.Map
	for _, m := range s.maps {
		for _, md := range m.Media {
			if md.ID == mediaID {
				ms = append(ms, cloneMap(m))
				break
			}
		}
	}
	sort.Slice(ms, func(i, j int) bool { return ms[i].OrderIndex < ms[j].OrderIndex })
	return ms, nil
}

func (s *MemStore) Count(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.maps)), nil
}

// NextOrder is one past the highest current index, matching MapRepo: a
// count would hand out a colliding index after a delete.
func (s *MemStore) NextOrder(ctx context.Context, campaignID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := 0
	for _, m := range s.maps {
		if m.CampaignID == campaignID && m.OrderIndex >= next {
			next = m.OrderIndex + 1
		}
	}
	return next, nil
}

func (s *MemStore) Create(ctx context.Context, m *model.Map) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.campaigns[m.CampaignID]; !ok {
		return apperr.NotFoundf("campaign %q", m.CampaignID)
	}
	media := make([]model.Media, 0, len(m.Media))
	for _, ref := range m.Media {
		md, ok := s.media[ref.ID]
		if !ok {
			return apperr.NotFoundf("media %q", ref.ID)
		}
		media = append(media, md)
	}
	m.Media = media

	now := time.Now()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.CreatedAt = now
	m.UpdatedAt = now
	for i := range m.Tokens {
		if m.Tokens[i].ID == "" {
			m.Tokens[i].ID = uuid.NewString()
		}
		m.Tokens[i].MapID = m.ID
		m.Tokens[i].CreatedAt = now
		m.Tokens[i].UpdatedAt = now
	}
	s.maps[m.ID] = cloneMap(*m)
	return nil
}

func (s *MemStore) Update(ctx context.Context, m *model.Map, newMediaIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.maps[m.ID]; !ok {
		return apperr.NotFoundf("map %q", m.ID)
	}
	if newMediaIDs != nil {
		media := make([]model.Media, 0, len(newMediaIDs))
		for _, id := range newMediaIDs {
			md, ok := s.media[id]
			if !ok {
				return apperr.NotFoundf("media %q", id)
			}
			media = append(media, md)
		}
		m.Media = media
	}
	m.UpdatedAt = time.Now()
	s.maps[m.ID] = cloneMap(*m)
	return nil
}

func (s *MemStore) Delete(ctx context.Context, mapID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.maps[mapID]; !ok {
		return apperr.NotFoundf("map %q", mapID)
	}
	delete(s.maps, mapID)
	return nil
}

func (s *MemStore) Reorder(ctx context.Context, campaignID string, mapIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate before touching anything so the update is all-or-nothing.
	seen := make(map[string]struct{}, len(mapIDs))
	for _, id := range mapIDs {
		if _, dup := seen[id]; dup {
			return apperr.Validationf("duplicate map id %q", id)
		}
		seen[id] = struct{}{}
		m, ok := s.maps[id]
		if !ok || m.CampaignID != campaignID {
			return apperr.Internal("reorder maps", fmt.Errorf("map %q not in campaign %q", id, campaignID))
		}
	}
	total := 0
	for _, m := range s.maps {
		if m.CampaignID == campaignID {
			total++
		}
	}
	if total != len(mapIDs) {
		return apperr.Validationf("reorder must list all %d maps of campaign %q", total, campaignID)
	}
	for i, id := range mapIDs {
		m := s.maps[id]
		m.OrderIndex = i
		s.maps[id] = m
	}
	return nil
}

func cloneMap(m model.Map) model.Map {
	c := m
	c.Media = append([]model.Media(nil), m.Media...)
	c.Tokens = append([]model.Token(nil), m.Tokens...)
	return c
}
