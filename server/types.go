package server

import (
	"encoding/json"

	"github.com/stormyfocus/gamehub/comms"
)

// wire payloads, client to server

type JoinRoomRequest struct {
	RoomID     string `json:"roomId"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName,omitempty"`
}

type PlayerListRequest struct {
	RoomID string `json:"roomId"`
}

type PushStateRequest struct {
	RoomID string          `json:"roomId"`
	State  json.RawMessage `json:"state"`
}

type LeaveRoomRequest struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
}

// wire payloads, server to client

type JoinedData struct {
	RoomID   string   `json:"roomId"`
	PlayerID string   `json:"playerId"`
	Players  []string `json:"players"`
}

type GameStateData struct {
	State json.RawMessage `json:"state"`
}

type PlayersUpdateData struct {
	PlayerIDs []string `json:"playerIds"`
}

type JoinErrorData struct {
	Err *comms.CommsError `json:"error"`
}

type PushErrorData struct {
	Err *comms.CommsError `json:"error"`
}

// session messages

type joinMsg struct {
	PlayerID   string
	PlayerName string
	Client     clientBundle
	Rep        chan joinReply
}

type joinReply struct {
	Players []string
	State   json.RawMessage
}

type playerListMsg struct {
	Rep chan []string
}

type stateMsg struct {
	Rep chan json.RawMessage
}

type pushMsg struct {
	PlayerID string
	State    json.RawMessage
	Rep      chan error
}

type leaveMsg struct {
	PlayerID string
	Rep      chan struct{}
}

// clientBundle is one connection's write side. Sends are non-blocking;
// a full channel means the client is lagging and drops the message.
type clientBundle struct {
	downCh chan comms.Message
}
