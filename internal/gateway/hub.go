package gateway

import (
	"context"

	"go.uber.org/zap"

	"github.com/feldrin/vtt-backend/pkg/types"
)

type HubMsg interface{ isHubMsg() }

// Join adds a connection to a campaign's room. A connection may sit in
// several rooms at once; membership is a set.
type Join struct {
	CampaignID string
	ClientID   string
	Outbox     chan types.ServerMessage
}

type Leave struct {
	CampaignID string
	ClientID   string
}

// Disconnect removes the connection from every room and closes its outbox.
type Disconnect struct{ ClientID string }

type Broadcast struct {
	CampaignID string
	Msg        types.ServerMessage
}

type RelayPing struct {
	CampaignID string
	Ping       types.PingLocation
}

// GetView reflects internal state for tests without data races.
type GetView struct{ Reply chan View }

type View struct {
	Rooms   map[string]int // members per room
	Clients int
}

type Shutdown struct{}

func (Join) isHubMsg()       {}
func (Leave) isHubMsg()      {}
func (Disconnect) isHubMsg() {}
func (Broadcast) isHubMsg()  {}
func (RelayPing) isHubMsg()  {}
func (GetView) isHubMsg()    {}
func (Shutdown) isHubMsg()   {}

type member struct {
	outbox chan types.ServerMessage
	rooms  map[string]struct{}
}

// Hub owns campaign room membership and fans events out to current
// members. All state is touched only by the hub goroutine, so delivery
// within a room is FIFO and needs no locks.
type Hub struct {
	inbox   chan HubMsg
	rooms   map[string]map[string]*member // campaignID -> clientID -> member
	members map[string]*member
	ctx     context.Context
	cancel  context.CancelFunc
	log     *zap.Logger
}

func NewHub(parent context.Context, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 256),
		rooms:   make(map[string]map[string]*member),
		members: make(map[string]*member),
		ctx:     ctx,
		cancel:  cancel,
		log:     log,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// BroadcastMap implements the mutation service's Broadcaster contract.
// Fire-and-forget: if the hub is backed up the event is dropped and
// logged, never surfaced to the mutation that triggered it.
func (h *Hub) BroadcastMap(campaignID, event string, m types.Map) {
	msg := types.ServerMessage{Type: event, CampaignID: campaignID, Map: &m}
	select {
	case h.inbox <- Broadcast{CampaignID: campaignID, Msg: msg}:
	default:
		h.log.Warn("gateway inbox full, dropping event",
			zap.String("event", event), zap.String("campaign", campaignID))
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Join:
				h.join(msg)

			case Leave:
				h.leave(msg.CampaignID, msg.ClientID)

			case Disconnect:
				h.drop(msg.ClientID)

			case Broadcast:
				h.fanout(msg.CampaignID, msg.Msg)

			case RelayPing:
				// Echoed to every member, the sender included, so all
				// clients render pings through the same path.
				ping := msg.Ping
				h.fanout(msg.CampaignID, types.ServerMessage{
					Type:       types.EventLocationPinged,
					CampaignID: msg.CampaignID,
					Ping:       &ping,
				})

			case GetView:
				view := View{Rooms: make(map[string]int, len(h.rooms)), Clients: len(h.members)}
				for id, room := range h.rooms {
					view.Rooms[id] = len(room)
				}
				msg.Reply <- view

			case Shutdown:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) join(msg Join) {
	mb := h.members[msg.ClientID]
	if mb == nil {
		mb = &member{outbox: msg.Outbox, rooms: make(map[string]struct{})}
		h.members[msg.ClientID] = mb
	}
	room := h.rooms[msg.CampaignID]
	if room == nil {
		room = make(map[string]*member)
		h.rooms[msg.CampaignID] = room
	}
	room[msg.ClientID] = mb
	mb.rooms[msg.CampaignID] = struct{}{}

	h.send(msg.ClientID, mb, types.ServerMessage{
		Type:       types.EventCampaignJoined,
		CampaignID: msg.CampaignID,
	})
}

func (h *Hub) leave(campaignID, clientID string) {
	mb := h.members[clientID]
	if mb == nil {
		return
	}
	delete(mb.rooms, campaignID)
	if room := h.rooms[campaignID]; room != nil {
		delete(room, clientID)
		if len(room) == 0 {
			delete(h.rooms, campaignID)
		}
	}
}

// evict removes the member from every room but leaves its outbox open:
// the connection may still be alive (slow consumer) and could re-join
// with the same channel.
func (h *Hub) evict(clientID string) *member {
	mb := h.members[clientID]
	if mb == nil {
		return nil
	}
	for campaignID := range mb.rooms {
		h.leave(campaignID, clientID)
	}
	delete(h.members, clientID)
	return mb
}

// drop is evict plus closing the outbox. Only safe once the connection
// is gone: the ws handler sends Disconnect after its read loop exits,
// so no Join for this client can follow it.
func (h *Hub) drop(clientID string) {
	if mb := h.evict(clientID); mb != nil {
		close(mb.outbox)
	}
}

func (h *Hub) fanout(campaignID string, msg types.ServerMessage) {
	for clientID, mb := range h.rooms[campaignID] {
		h.send(clientID, mb, msg)
	}
}

func (h *Hub) send(clientID string, mb *member, msg types.ServerMessage) {
	select {
	case mb.outbox <- msg:
	default:
		// Slow or dead client: cut it loose rather than block the room.
		// The outbox stays open because the connection may still be
		// alive; it is closed on Disconnect.
		h.log.Warn("client outbox full, evicting client", zap.String("client", clientID))
		h.evict(clientID)
	}
}

func (h *Hub) shutdown() {
	for clientID := range h.members {
		h.drop(clientID)
	}
	h.cancel()
}
