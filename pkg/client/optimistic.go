package client

import "github.com/feldrin/vtt-backend/pkg/types"

// Patch is a speculative local mutation. The previous cache entry is
// retained so a failed request can restore it; a confirmed request
// reconciles with the server's payload instead.
type Patch struct {
	cache      *MapCache
	campaignID string
	mapID      string
	prev       types.Map
	had        bool
}

// ApplyOptimistic writes m into the cache immediately and returns the
// handle used to resolve the speculation.
func (c *MapCache) ApplyOptimistic(m types.Map) *Patch {
	prev, had := c.Get(m.CampaignID, m.ID)
	c.Upsert(m)
	return &Patch{
		cache:      c,
		campaignID: m.CampaignID,
		mapID:      m.ID,
		prev:       prev,
		had:        had,
	}
}

// Rollback restores the snapshot taken when the patch was applied.
func (p *Patch) Rollback() {
	if p.had {
		p.cache.Upsert(p.prev)
		return
	}
	p.cache.Delete(p.campaignID, p.mapID)
}

// Confirm replaces the speculative entry with the server-confirmed one.
func (p *Patch) Confirm(server types.Map) {
	p.cache.Upsert(server)
}
