package maps

import (
	"context"

	"go.uber.org/zap"

	"github.com/feldrin/vtt-backend/internal/apperr"
	"github.com/feldrin/vtt-backend/internal/model"
	"github.com/feldrin/vtt-backend/pkg/types"
)

// Store is the persistence contract the service depends on.
type Store interface {
	ListByCampaign(ctx context.Context, campaignID string) ([]model.Map, error)
	GetByID(ctx context.Context, mapID string) (*model.Map, error)
	ListByMediaID(ctx context.Context, mediaID string) ([]model.Map, error)
	Count(ctx context.Context) (int64, error)
	NextOrder(ctx context.Context, campaignID string) (int, error)
	Create(ctx context.Context, m *model.Map) error
	Update(ctx context.Context, m *model.Map, newMediaIDs []string) error
	Delete(ctx context.Context, mapID string) error
	Reorder(ctx context.Context, campaignID string, mapIDs []string) error
}

// Broadcaster fans a map lifecycle event out to a campaign's room.
// Implementations must never block and never return an error: a
// transport outage cannot fail a committed mutation.
type Broadcaster interface {
	BroadcastMap(campaignID, event string, m types.Map)
}

// Service performs the map mutations and notifies the gateway after
// each successful commit.
type Service struct {
	store Store
	bc    Broadcaster
	log   *zap.Logger
}

func NewService(store Store, bc Broadcaster, log *zap.Logger) *Service {
	return &Service{store: store, bc: bc, log: log}
}

type CreateInput struct {
	Name            string
	MediaIDs        []string
	SelectedMediaID string
	CampaignID      string
	CreatedByID     string
}

type UpdateInput struct {
	Name            *string
	MediaIDs        []string
	SelectedMediaID *string
}

func (s *Service) ListByCampaign(ctx context.Context, campaignID string) ([]types.Map, error) {
	ms, err := s.store.ListByCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	return model.WireMaps(ms), nil
}

func (s *Service) GetByID(ctx context.Context, mapID string) (types.Map, error) {
	m, err := s.store.GetByID(ctx, mapID)
	if err != nil {
		return types.Map{}, err
	}
	return m.Wire(), nil
}

func (s *Service) ListByMediaID(ctx context.Context, mediaID string) ([]types.Map, error) {
	ms, err := s.store.ListByMediaID(ctx, mediaID)
	if err != nil {
		return nil, err
	}
	return model.WireMaps(ms), nil
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.store.Count(ctx)
}

// Create validates the input, stores the map and broadcasts map.created.
// The selected media defaults to the first supplied media reference.
func (s *Service) Create(ctx context.Context, in CreateInput) (types.Map, error) {
	if in.Name == "" {
		return types.Map{}, apperr.Validationf("map name is required")
	}
	if len(in.MediaIDs) == 0 {
		return types.Map{}, apperr.Validationf("at least one media reference is required")
	}
	if in.CampaignID == "" {
		return types.Map{}, apperr.Validationf("campaign id is required")
	}
	if in.CreatedByID == "" {
		return types.Map{}, apperr.Validationf("creator id is required")
	}

	selected := in.SelectedMediaID
	if selected == "" {
		selected = in.MediaIDs[0]
	}

	order, err := s.store.NextOrder(ctx, in.CampaignID)
	if err != nil {
		return types.Map{}, err
	}

	m := &model.Map{
		Name:            in.Name,
		OrderIndex:      order,
		SelectedMediaID: selected,
		CampaignID:      in.CampaignID,
		CreatedByID:     in.CreatedByID,
		Media:           mediaRefs(in.MediaIDs),
	}
	if err := s.store.Create(ctx, m); err != nil {
		return types.Map{}, err
	}

	created, err := s.store.GetByID(ctx, m.ID)
	if err != nil {
		return types.Map{}, err
	}
	wire := created.Wire()
	s.log.Info("map created", zap.String("map", m.ID), zap.String("campaign", in.CampaignID))
	s.bc.BroadcastMap(in.CampaignID, types.EventMapCreated, wire)
	return wire, nil
}

// Duplicate copies a map and its tokens. The copy gets fresh identities
// and timestamps; token placement, size and character/creator references
// carry over.
func (s *Service) Duplicate(ctx context.Context, mapID string) (types.Map, error) {
	src, err := s.store.GetByID(ctx, mapID)
	if err != nil {
		return types.Map{}, err
	}

	order, err := s.store.NextOrder(ctx, src.CampaignID)
	if err != nil {
		return types.Map{}, err
	}

	copyTokens := make([]model.Token, 0, len(src.Tokens))
	for _, t := range src.Tokens {
		copyTokens = append(copyTokens, model.Token{
			X:           t.X,
			Y:           t.Y,
			Width:       t.Width,
			Height:      t.Height,
			CharacterID: t.CharacterID,
			CreatedByID: t.CreatedByID,
		})
	}

	dup := &model.Map{
		Name:            src.Name + " - Copy",
		OrderIndex:      order,
		SelectedMediaID: src.SelectedMediaID,
		CampaignID:      src.CampaignID,
		CreatedByID:     src.CreatedByID,
		Media:           mediaRefs(mapMediaIDs(src)),
		Tokens:          copyTokens,
	}
	if err := s.store.Create(ctx, dup); err != nil {
		return types.Map{}, err
	}

	created, err := s.store.GetByID(ctx, dup.ID)
	if err != nil {
		return types.Map{}, err
	}
	wire := created.Wire()
	s.log.Info("map duplicated",
		zap.String("source", mapID), zap.String("map", dup.ID))
	s.bc.BroadcastMap(src.CampaignID, types.EventMapCreated, wire)
	return wire, nil
}

// Update applies a partial patch; only supplied fields change.
func (s *Service) Update(ctx context.Context, mapID string, in UpdateInput) (types.Map, error) {
	m, err := s.store.GetByID(ctx, mapID)
	if err != nil {
		return types.Map{}, err
	}

	if in.Name != nil {
		if *in.Name == "" {
			return types.Map{}, apperr.Validationf("map name cannot be empty")
		}
		m.Name = *in.Name
	}
	if in.SelectedMediaID != nil {
		m.SelectedMediaID = *in.SelectedMediaID
	}

	if err := s.store.Update(ctx, m, in.MediaIDs); err != nil {
		return types.Map{}, err
	}

	updated, err := s.store.GetByID(ctx, mapID)
	if err != nil {
		return types.Map{}, err
	}
	wire := updated.Wire()
	s.log.Info("map updated", zap.String("map", mapID))
	s.bc.BroadcastMap(m.CampaignID, types.EventMapUpdated, wire)
	return wire, nil
}

// Delete removes the map (tokens cascade at the storage layer) and
// broadcasts the last-known record.
func (s *Service) Delete(ctx context.Context, mapID string) (types.Map, error) {
	m, err := s.store.GetByID(ctx, mapID)
	if err != nil {
		return types.Map{}, err
	}
	if err := s.store.Delete(ctx, mapID); err != nil {
		return types.Map{}, err
	}
	wire := m.Wire()
	s.log.Info("map deleted", zap.String("map", mapID))
	s.bc.BroadcastMap(m.CampaignID, types.EventMapDeleted, wire)
	return wire, nil
}

// Reorder assigns each map's order to its index in mapIDs, atomically,
// and returns the campaign's maps in the new order. mapIDs must name
// every map of the campaign exactly once.
func (s *Service) Reorder(ctx context.Context, campaignID string, mapIDs []string) ([]types.Map, error) {
	if len(mapIDs) == 0 {
		return nil, apperr.Validationf("map ids are required")
	}
	if err := s.store.Reorder(ctx, campaignID, mapIDs); err != nil {
		return nil, err
	}
	s.log.Info("maps reordered",
		zap.String("campaign", campaignID), zap.Int("count", len(mapIDs)))
	return s.ListByCampaign(ctx, campaignID)
}

func mediaRefs(ids []string) []model.Media {
	refs := make([]model.Media, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, model.Media{ID: id})
	}
	return refs
}

func mapMediaIDs(m *model.Map) []string {
	ids := make([]string, 0, len(m.Media))
	for _, md := range m.Media {
		ids = append(ids, md.ID)
	}
	return ids
}
