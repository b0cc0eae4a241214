package client

import (
	"sort"
	"sync"

	"github.com/feldrin/vtt-backend/pkg/types"
)

// MapCache holds the locally known maps per campaign, keyed by map id.
// Events merge into it last-applied-wins; it is a best-effort view, not
// a consistency-critical store.
type MapCache struct {
	mu         sync.RWMutex
	byCampaign map[string]map[string]types.Map
}

func NewMapCache() *MapCache {
	return &MapCache{byCampaign: make(map[string]map[string]types.Map)}
}

func (c *MapCache) Upsert(m types.Map) {
	c.mu.Lock()
	defer c.mu.Unlock()
	maps := c.byCampaign[m.CampaignID]
	if maps == nil {
		maps = make(map[string]types.Map)
		c.byCampaign[m.CampaignID] = maps
	}
	maps[m.ID] = m
}

func (c *MapCache) Delete(campaignID, mapID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byCampaign[campaignID], mapID)
}

func (c *MapCache) Get(campaignID, mapID string) (types.Map, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.byCampaign[campaignID][mapID]
	return m, ok
}

// List returns the campaign's maps in render order.
func (c *MapCache) List(campaignID string) []types.Map {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]types.Map, 0, len(c.byCampaign[campaignID]))
	for _, m := range c.byCampaign[campaignID] {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Replace swaps in the result of a full fetch for one campaign.
func (c *MapCache) Replace(campaignID string, ms []types.Map) {
	c.mu.Lock()
	defer c.mu.Unlock()
	maps := make(map[string]types.Map, len(ms))
	for _, m := range ms {
		maps[m.ID] = m
	}
	c.byCampaign[campaignID] = maps
}
