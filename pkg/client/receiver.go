package client

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/feldrin/vtt-backend/pkg/types"
)

// Receiver subscribes to the gateway's event stream and reconciles
// local view state with incoming events. It holds no durable queue:
// events missed while disconnected are not recovered here; only a full
// fetch (Replace on the cache) catches up.
type Receiver struct {
	url   string
	log   *zap.Logger
	maps  *MapCache
	pings *PingTracker

	mu        sync.Mutex
	conn      *websocket.Conn
	campaigns map[string]struct{}
}

func NewReceiver(url string, log *zap.Logger) *Receiver {
	return &Receiver{
		url:       url,
		log:       log,
		maps:      NewMapCache(),
		pings:     NewPingTracker(DefaultPingTTL),
		campaigns: make(map[string]struct{}),
	}
}

func (r *Receiver) Maps() *MapCache     { return r.maps }
func (r *Receiver) Pings() *PingTracker { return r.pings }

// Join subscribes to a campaign's room. The subscription is remembered
// and re-established after every reconnect.
func (r *Receiver) Join(ctx context.Context, campaignID string) error {
	r.mu.Lock()
	r.campaigns[campaignID] = struct{}{}
	conn := r.conn
	r.mu.Unlock()

	if conn == nil {
		return nil // sent on next (re)connect
	}
	return r.send(ctx, conn, types.ClientMessage{Type: types.MsgJoinCampaign, CampaignID: campaignID})
}

// Leave unsubscribes from a campaign's room.
func (r *Receiver) Leave(ctx context.Context, campaignID string) error {
	r.mu.Lock()
	delete(r.campaigns, campaignID)
	conn := r.conn
	r.mu.Unlock()

	if conn == nil {
		return nil
	}
	return r.send(ctx, conn, types.ClientMessage{Type: types.MsgLeaveCampaign, CampaignID: campaignID})
}

// Ping relays a cursor ping into a campaign's room.
func (r *Receiver) Ping(ctx context.Context, campaignID string, p types.PingLocation) error {
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn == nil {
		return nil
	}
	return r.send(ctx, conn, types.ClientMessage{
		Type:       types.MsgPingLocation,
		CampaignID: campaignID,
		Ping:       &p,
	})
}

// Run connects and processes events until ctx is cancelled, redialing
// with backoff after connection loss and re-joining all rooms.
func (r *Receiver) Run(ctx context.Context) error {
	backoff := 250 * time.Millisecond
	for {
		if err := r.connect(ctx); err != nil {
			r.log.Warn("dial failed", zap.Error(err))
		} else {
			backoff = 250 * time.Millisecond
			r.listen(ctx)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 5*time.Second {
			backoff *= 2
		}
	}
}

func (r *Receiver) connect(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, r.url, nil)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.conn = conn
	rooms := make([]string, 0, len(r.campaigns))
	for id := range r.campaigns {
		rooms = append(rooms, id)
	}
	r.mu.Unlock()

	for _, id := range rooms {
		if err := r.send(ctx, conn, types.ClientMessage{Type: types.MsgJoinCampaign, CampaignID: id}); err != nil {
			// Release the half-set-up connection, otherwise the next
			// dial would leak it.
			r.mu.Lock()
			r.conn = nil
			r.mu.Unlock()
			conn.Close(websocket.StatusNormalClosure, "bye")
			return err
		}
	}
	return nil
}

func (r *Receiver) listen(ctx context.Context) {
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn == nil {
		return
	}
	defer func() {
		r.mu.Lock()
		r.conn = nil
		r.mu.Unlock()
		conn.Close(websocket.StatusNormalClosure, "bye")
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var msg types.ServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			r.log.Debug("bad server message", zap.Error(err))
			continue
		}
		r.apply(msg)
	}
}

// apply dispatches one event to local state.
func (r *Receiver) apply(msg types.ServerMessage) {
	switch msg.Type {
	case types.EventMapCreated, types.EventMapUpdated:
		if msg.Map != nil {
			r.maps.Upsert(*msg.Map)
		}
	case types.EventMapDeleted:
		if msg.Map != nil {
			r.maps.Delete(msg.Map.CampaignID, msg.Map.ID)
		}
	case types.EventLocationPinged:
		if msg.Ping != nil {
			r.pings.Add(*msg.Ping)
		}
	case types.EventCampaignJoined:
		r.log.Debug("joined campaign", zap.String("campaign", msg.CampaignID))
	default:
		r.log.Debug("unknown event", zap.String("type", msg.Type))
	}
}

func (r *Receiver) send(ctx context.Context, conn *websocket.Conn, msg types.ClientMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, payload)
}
