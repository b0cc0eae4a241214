package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/feldrin/vtt-backend/internal/apperr"
	"github.com/feldrin/vtt-backend/internal/model"
)

// MapRepo is the Postgres-backed map store.
type MapRepo struct {
	db *gorm.DB
}

func NewMapRepo(db *gorm.DB) *MapRepo {
	return &MapRepo{db: db}
}

func (r *MapRepo) ListByCampaign(ctx context.Context, campaignID string) ([]model.Map, error) {
	var ms []model.Map
	err := r.db.WithContext(ctx).
		Preload("Media").
		Where("campaign_id = ?", campaignID).
		Order("order_index asc").
		Find(&ms).Error
	if err != nil {
		return nil, apperr.Internal("list maps", err)
	}
	return ms, nil
}

func (r *MapRepo) GetByID(ctx context.Context, mapID string) (*model.Map, error) {
	var m model.Map
	err := r.db.WithContext(ctx).
		Preload("Media").
		Preload("Tokens").
		First(&m, "id = ?", mapID).Error
	switch {
	case err == nil:
		return &m, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperr.NotFoundf("map %q", mapID)
	default:
		return nil, apperr.Internal("get map", err)
	}
}

func (r *MapRepo) ListByMediaID(ctx context.Context, mediaID string) ([]model.Map, error) {
	var ms []model.Map
	err := r.db.WithContext(ctx).
		Joins("JOIN map_media ON map_media.map_id = maps.id").
		Where("map_media.media_id = ?", mediaID).
		Preload("Media").
		Order("order_index asc").
		Find(&ms).Error
	if err != nil {
		return nil, apperr.Internal("list maps by media", err)
	}
	return ms, nil
}

func (r *MapRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Map{}).Count(&n).Error; err != nil {
		return 0, apperr.Internal("count maps", err)
	}
	return n, nil
}

// NextOrder returns the next free order index for a campaign: one past
// the highest current index. The map count is not enough, a delete
// leaves a gap and count would collide with the surviving tail.
func (r *MapRepo) NextOrder(ctx context.Context, campaignID string) (int, error) {
	var next int64
	err := r.db.WithContext(ctx).Model(&model.Map{}).
		Where("campaign_id = ?", campaignID).
		Select("COALESCE(MAX(order_index) + 1, 0)").
		Scan(&next).Error
	if err != nil {
		return 0, apperr.Internal("next order", err)
	}
	return int(next), nil
}

// Create inserts the map together with its tokens and media references.
// The referenced campaign and media must already exist.
func (r *MapRepo) Create(ctx context.Context, m *model.Map) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var campaign model.Campaign
		err := tx.Select("id").First(&campaign, "id = ?", m.CampaignID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return apperr.NotFoundf("campaign %q", m.CampaignID)
		case err != nil:
			return apperr.Internal("create map", err)
		}

		media, err := r.fetchMedia(tx, mediaIDs(m.Media))
		if err != nil {
			return err
		}
		m.Media = media

		if err := tx.Create(m).Error; err != nil {
			return apperr.Internal("create map", err)
		}
		return nil
	})
}

// Update saves the map row and, when mediaIDs is non-nil, replaces the
// media set.
func (r *MapRepo) Update(ctx context.Context, m *model.Map, newMediaIDs []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if newMediaIDs != nil {
			media, err := r.fetchMedia(tx, newMediaIDs)
			if err != nil {
				return err
			}
			if err := tx.Model(m).Association("Media").Replace(&media); err != nil {
				return apperr.Internal("replace map media", err)
			}
			m.Media = media
		}
		if err := tx.Omit(clause.Associations).Save(m).Error; err != nil {
			return apperr.Internal("update map", err)
		}
		return nil
	})
}

// Delete removes the map and cascades its tokens and media references.
func (r *MapRepo) Delete(ctx context.Context, mapID string) error {
	res := r.db.WithContext(ctx).
		Select(clause.Associations).
		Delete(&model.Map{ID: mapID})
	if res.Error != nil {
		return apperr.Internal("delete map", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFoundf("map %q", mapID)
	}
	return nil
}

// Reorder assigns each map's order index to its position in mapIDs,
// inside a single transaction. The list must cover every map of the
// campaign exactly once; anything less would leave duplicate or
// non-contiguous order values behind. An id outside the campaign
// aborts the whole transaction, so a partial reorder is never visible.
func (r *MapRepo) Reorder(ctx context.Context, campaignID string, mapIDs []string) error {
	seen := make(map[string]struct{}, len(mapIDs))
	for _, id := range mapIDs {
		if _, dup := seen[id]; dup {
			return apperr.Validationf("duplicate map id %q", id)
		}
		seen[id] = struct{}{}
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, id := range mapIDs {
			res := tx.Model(&model.Map{}).
				Where("id = ? AND campaign_id = ?", id, campaignID).
				Update("order_index", i)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("map %q not in campaign %q", id, campaignID)
			}
		}
		var total int64
		if err := tx.Model(&model.Map{}).Where("campaign_id = ?", campaignID).Count(&total).Error; err != nil {
			return err
		}
		if int(total) != len(mapIDs) {
			return apperr.Validationf("reorder must list all %d maps of campaign %q", total, campaignID)
		}
		return nil
	})
	if err != nil {
		if apperr.IsValidation(err) {
			return err
		}
		return apperr.Internal("reorder maps", err)
	}
	return nil
}

func (r *MapRepo) fetchMedia(tx *gorm.DB, ids []string) ([]model.Media, error) {
	var media []model.Media
	if err := tx.Where("id IN ?", ids).Find(&media).Error; err != nil {
		return nil, apperr.Internal("fetch media", err)
	}
	if len(media) != len(ids) {
		return nil, apperr.NotFoundf("media %v", ids)
	}
	return media, nil
}

func mediaIDs(media []model.Media) []string {
	ids := make([]string, 0, len(media))
	for _, m := range media {
		ids = append(ids, m.ID)
	}
	return ids
}
