package types

import "time"

// Event names emitted by the gateway into campaign rooms.
// Consumers dispatch on ServerMessage.Type.
const (
	EventMapCreated     = "map.created"
	EventMapUpdated     = "map.updated"
	EventMapDeleted     = "map.deleted"
	EventLocationPinged = "location.pinged"

	// Acknowledgement sent to a connection after it joins a room.
	EventCampaignJoined = "campaign.joined"
)

// Message types accepted from clients over the websocket.
const (
	MsgJoinCampaign  = "campaign.join"
	MsgLeaveCampaign = "campaign.leave"
	MsgPingLocation  = "location.ping"
)

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PingLocation is the ephemeral cursor-ping payload. Never persisted.
type PingLocation struct {
	MapID    string   `json:"mapId"`
	UserID   string   `json:"userId"`
	Color    string   `json:"color"`
	Position Position `json:"position"`
}

type Media struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
}

type Token struct {
	ID          string    `json:"id"`
	X           float64   `json:"x"`
	Y           float64   `json:"y"`
	Width       float64   `json:"width"`
	Height      float64   `json:"height"`
	MapID       string    `json:"mapId"`
	CharacterID string    `json:"characterId"`
	CreatedByID string    `json:"createdById"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Map is the full map record as it crosses the wire, both in HTTP
// responses and in map.* broadcast events.
type Map struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Order           int       `json:"order"`
	SelectedMediaID string    `json:"selectedMediaId"`
	CampaignID      string    `json:"campaignId"`
	CreatedByID     string    `json:"createdById"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
	Media           []Media   `json:"media,omitempty"`
	Tokens          []Token   `json:"tokens,omitempty"`
}

// ClientMessage is the envelope for everything a client sends over /ws.
type ClientMessage struct {
	Type       string        `json:"type"`
	CampaignID string        `json:"campaignId,omitempty"`
	Ping       *PingLocation `json:"ping,omitempty"`
}

// ServerMessage is the envelope for everything the gateway pushes to a
// client. Exactly one payload field is set, matching Type.
type ServerMessage struct {
	Type       string        `json:"type"`
	CampaignID string        `json:"campaignId,omitempty"`
	Map        *Map          `json:"map,omitempty"`
	Ping       *PingLocation `json:"ping,omitempty"`
	Error      string        `json:"error,omitempty"`
}
