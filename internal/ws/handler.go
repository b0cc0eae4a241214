package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/feldrin/vtt-backend/internal/gateway"
	"github.com/feldrin/vtt-backend/pkg/types"
)

// Handler upgrades the connection and relays messages between the
// client and the hub. One connection may join any number of campaign
// rooms; the hub tracks membership per client id. originPatterns
// widens the accept beyond same-origin; empty keeps the default.
func Handler(h *gateway.Hub, originPatterns []string, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		outbox := make(chan types.ServerMessage, 32)

		// The hub owns the outbox and closes it on Disconnect, which is
		// sent only after the read loop below has exited.
		defer func() { h.Inbox() <- gateway.Disconnect{ClientID: clientID} }()

		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				select {
				case <-writeCtx.Done():
					return
				case msg, ok := <-outbox:
					if !ok {
						return
					}
					payload, err := json.Marshal(msg)
					if err != nil {
						continue
					}
					ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
					_ = conn.Write(ctx, websocket.MessageText, payload)
					cancel()
				}
			}
		}()

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				log.Debug("bad client message", zap.String("client", clientID), zap.Error(err))
				continue
			}

			switch cm.Type {
			case types.MsgJoinCampaign:
				if cm.CampaignID == "" {
					continue
				}
				h.Inbox() <- gateway.Join{
					CampaignID: cm.CampaignID,
					ClientID:   clientID,
					Outbox:     outbox,
				}

			case types.MsgLeaveCampaign:
				h.Inbox() <- gateway.Leave{CampaignID: cm.CampaignID, ClientID: clientID}

			case types.MsgPingLocation:
				if cm.CampaignID == "" || cm.Ping == nil {
					continue
				}
				h.Inbox() <- gateway.RelayPing{CampaignID: cm.CampaignID, Ping: *cm.Ping}

			default:
				log.Debug("unknown message type",
					zap.String("client", clientID), zap.String("type", cm.Type))
				select {
				case outbox <- types.ServerMessage{Error: "unknown message type: " + cm.Type}:
				default:
				}
			}
		}
	}
}
