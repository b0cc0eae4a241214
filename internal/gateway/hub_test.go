package gateway

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/feldrin/vtt-backend/pkg/types"
)

// helper: receive one message with a timeout so tests never hang
func recvMsg(t *testing.T, ch <-chan types.ServerMessage, within time.Duration) types.ServerMessage {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatalf("outbox closed unexpectedly")
		}
		return msg
	case <-time.After(within):
		t.Fatalf("timed out waiting for message")
		return types.ServerMessage{} // unreachable
	}
}

func recvNoMsg(t *testing.T, ch <-chan types.ServerMessage, within time.Duration) {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			// closed channel: no further messages possible
			return
		}
		t.Fatalf("expected no message within %v, but got: %+v", within, msg)
	case <-time.After(within):
	}
}

func recvView(t *testing.T, h *Hub, within time.Duration) View {
	t.Helper()
	reply := make(chan View, 1)
	h.Inbox() <- GetView{Reply: reply}
	select {
	case v := <-reply:
		return v
	case <-time.After(within):
		t.Fatalf("timed out waiting for view")
		return View{} // unreachable
	}
}

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewHub(ctx, zap.NewNop())
}

func TestHub_JoinAckAndBroadcastOrder(t *testing.T) {
	h := newTestHub(t)

	out := make(chan types.ServerMessage, 8)
	h.Inbox() <- Join{CampaignID: "c1", ClientID: "a", Outbox: out}

	ack := recvMsg(t, out, 100*time.Millisecond)
	if ack.Type != types.EventCampaignJoined || ack.CampaignID != "c1" {
		t.Fatalf("want join ack for c1, got %+v", ack)
	}

	for _, name := range []string{"one", "two", "three"} {
		h.BroadcastMap("c1", types.EventMapUpdated, types.Map{ID: name, CampaignID: "c1"})
	}
	for _, want := range []string{"one", "two", "three"} {
		msg := recvMsg(t, out, 100*time.Millisecond)
		if msg.Map == nil || msg.Map.ID != want {
			t.Fatalf("FIFO violated: want map %q, got %+v", want, msg)
		}
	}
}

func TestHub_LeaveStopsDeliveryAndDiscardsEmptyRoom(t *testing.T) {
	h := newTestHub(t)

	out := make(chan types.ServerMessage, 8)
	h.Inbox() <- Join{CampaignID: "c1", ClientID: "a", Outbox: out}
	_ = recvMsg(t, out, 100*time.Millisecond) // ack

	h.Inbox() <- Leave{CampaignID: "c1", ClientID: "a"}
	h.BroadcastMap("c1", types.EventMapCreated, types.Map{ID: "m1", CampaignID: "c1"})

	recvNoMsg(t, out, 100*time.Millisecond)

	view := recvView(t, h, 100*time.Millisecond)
	if len(view.Rooms) != 0 {
		t.Fatalf("empty room should be discarded; rooms=%v", view.Rooms)
	}
	if view.Clients != 1 {
		t.Fatalf("connection should survive leaving its last room; clients=%d", view.Clients)
	}
}

func TestHub_MembershipIsASet(t *testing.T) {
	h := newTestHub(t)

	out := make(chan types.ServerMessage, 8)
	h.Inbox() <- Join{CampaignID: "c1", ClientID: "a", Outbox: out}
	_ = recvMsg(t, out, 100*time.Millisecond)
	// joining the same room twice must not duplicate delivery
	h.Inbox() <- Join{CampaignID: "c1", ClientID: "a", Outbox: out}
	_ = recvMsg(t, out, 100*time.Millisecond)

	h.BroadcastMap("c1", types.EventMapCreated, types.Map{ID: "m1", CampaignID: "c1"})
	msg := recvMsg(t, out, 100*time.Millisecond)
	if msg.Map == nil || msg.Map.ID != "m1" {
		t.Fatalf("want m1, got %+v", msg)
	}
	recvNoMsg(t, out, 100*time.Millisecond)
}

func TestHub_MultiRoomConnection(t *testing.T) {
	h := newTestHub(t)

	out := make(chan types.ServerMessage, 8)
	h.Inbox() <- Join{CampaignID: "c1", ClientID: "a", Outbox: out}
	_ = recvMsg(t, out, 100*time.Millisecond)
	h.Inbox() <- Join{CampaignID: "c2", ClientID: "a", Outbox: out}
	_ = recvMsg(t, out, 100*time.Millisecond)

	h.BroadcastMap("c1", types.EventMapCreated, types.Map{ID: "m1", CampaignID: "c1"})
	h.BroadcastMap("c2", types.EventMapCreated, types.Map{ID: "m2", CampaignID: "c2"})

	first := recvMsg(t, out, 100*time.Millisecond)
	second := recvMsg(t, out, 100*time.Millisecond)
	if first.Map.ID != "m1" || second.Map.ID != "m2" {
		t.Fatalf("want m1 then m2, got %q then %q", first.Map.ID, second.Map.ID)
	}

	// Disconnect removes the connection from every room.
	h.Inbox() <- Disconnect{ClientID: "a"}
	view := recvView(t, h, 100*time.Millisecond)
	if len(view.Rooms) != 0 || view.Clients != 0 {
		t.Fatalf("disconnect should empty the hub; view=%+v", view)
	}
}

func TestHub_LeftConnectionMissesLaterEvents(t *testing.T) {
	h := newTestHub(t)

	stay := make(chan types.ServerMessage, 8)
	gone := make(chan types.ServerMessage, 8)
	h.Inbox() <- Join{CampaignID: "c1", ClientID: "stay", Outbox: stay}
	_ = recvMsg(t, stay, 100*time.Millisecond)
	h.Inbox() <- Join{CampaignID: "c1", ClientID: "gone", Outbox: gone}
	_ = recvMsg(t, gone, 100*time.Millisecond)

	h.Inbox() <- Disconnect{ClientID: "gone"}
	h.BroadcastMap("c1", types.EventMapDeleted, types.Map{ID: "m1", CampaignID: "c1"})

	msg := recvMsg(t, stay, 100*time.Millisecond)
	if msg.Type != types.EventMapDeleted {
		t.Fatalf("remaining member should still receive events, got %+v", msg)
	}
	recvNoMsg(t, gone, 100*time.Millisecond)
}

func TestHub_EvictSlowClient(t *testing.T) {
	h := newTestHub(t)

	out := make(chan types.ServerMessage, 1)
	h.Inbox() <- Join{CampaignID: "c1", ClientID: "slow", Outbox: out}
	// Do not drain: the ack fills the buffer, the next event cannot be
	// delivered and the client is evicted instead of blocking the room.
	h.BroadcastMap("c1", types.EventMapCreated, types.Map{ID: "m1", CampaignID: "c1"})

	view := recvView(t, h, 100*time.Millisecond)
	if view.Clients != 0 {
		t.Fatalf("expected slow client to be evicted; clients=%d", view.Clients)
	}

	// The connection may still be alive, so the outbox stays open: the
	// buffered ack is readable and no close follows.
	msg := recvMsg(t, out, 100*time.Millisecond)
	if msg.Type != types.EventCampaignJoined {
		t.Fatalf("want buffered join ack, got %+v", msg)
	}
	h.BroadcastMap("c1", types.EventMapUpdated, types.Map{ID: "m2", CampaignID: "c1"})
	recvNoMsg(t, out, 100*time.Millisecond)
}

func TestHub_PingEchoesToSender(t *testing.T) {
	h := newTestHub(t)

	sender := make(chan types.ServerMessage, 8)
	other := make(chan types.ServerMessage, 8)
	h.Inbox() <- Join{CampaignID: "c1", ClientID: "sender", Outbox: sender}
	_ = recvMsg(t, sender, 100*time.Millisecond)
	h.Inbox() <- Join{CampaignID: "c1", ClientID: "other", Outbox: other}
	_ = recvMsg(t, other, 100*time.Millisecond)

	ping := types.PingLocation{
		MapID:    "m1",
		UserID:   "u1",
		Color:    "#ff0000",
		Position: types.Position{X: 12, Y: 34},
	}
	h.Inbox() <- RelayPing{CampaignID: "c1", Ping: ping}

	for name, ch := range map[string]chan types.ServerMessage{"sender": sender, "other": other} {
		msg := recvMsg(t, ch, 100*time.Millisecond)
		if msg.Type != types.EventLocationPinged {
			t.Fatalf("%s: want %s, got %+v", name, types.EventLocationPinged, msg)
		}
		if msg.Ping == nil || *msg.Ping != ping {
			t.Fatalf("%s: ping payload mangled: %+v", name, msg.Ping)
		}
	}
}

func TestHub_Shutdown_ClosesOutboxes(t *testing.T) {
	h := newTestHub(t)

	out := make(chan types.ServerMessage, 8)
	h.Inbox() <- Join{CampaignID: "c1", ClientID: "a", Outbox: out}
	_ = recvMsg(t, out, 100*time.Millisecond)

	h.Inbox() <- Shutdown{}

	select {
	case _, ok := <-out:
		if ok {
			t.Fatalf("expected closed outbox after shutdown")
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("timed out waiting for outbox close")
	}
}
