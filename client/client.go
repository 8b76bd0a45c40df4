// Package client is a console client for the relay, used to poke at
// rooms by hand: join by code, watch the traffic, push fresh game
// states, leave.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	rl "github.com/chzyer/readline"
	"nhooyr.io/websocket"

	"github.com/stormyfocus/gamehub/comms"
	"github.com/stormyfocus/gamehub/fishing"
	"github.com/stormyfocus/gamehub/kniffel"
	"github.com/stormyfocus/gamehub/nim"
	"github.com/stormyfocus/gamehub/server"
)

type Config struct {
	// ServerURL is the relay's http base, e.g. http://localhost:1235.
	ServerURL  string
	RoomCode   string
	PlayerName string
}

type Client interface {
	Run() error
}

func NewClient(cfg Config) Client {
	return &client{
		cfg:   cfg,
		locCh: make(chan string),
	}
}

type client struct {
	cfg   Config
	locCh chan string

	roomID   string
	playerID string

	players []string
	state   json.RawMessage
}

func (c *client) Run() error {
	playerID, roomID, err := restJoin(c.cfg.ServerURL, c.cfg.RoomCode, c.cfg.PlayerName)
	if err != nil {
		return err
	}
	c.playerID = playerID
	c.roomID = roomID
	fmt.Printf("room %s, playing as %s\n", roomID, playerID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wsAddr := "ws" + strings.TrimPrefix(c.cfg.ServerURL, "http") + "/ws"
	socket, _, err := websocket.Dial(ctx, wsAddr, nil)
	if err != nil {
		return err
	}
	defer socket.Close(websocket.StatusInternalError, "the sky is falling")

	upCh := make(chan comms.Message, 1)
	defer close(upCh)
	downCh := make(chan comms.Message, 1)

	go func() {
		// read upCh, write to conn
		for msg := range upCh {
			if err := sendWs(ctx, socket, msg); err != nil {
				fmt.Printf("send error: %v\n", err)
				return
			}
		}
	}()

	go func() {
		defer close(downCh)

		// read conn, write to downCh
		for {
			msg, err := readWs(ctx, socket)
			if err != nil {
				if websocket.CloseStatus(err) != websocket.StatusNormalClosure && err != io.EOF {
					fmt.Printf("read error: %v\n", err)
				}
				return
			}
			downCh <- msg
		}
	}()

	join, err := comms.Encode("joinRoom", server.JoinRoomRequest{
		RoomID:     roomID,
		PlayerID:   playerID,
		PlayerName: c.cfg.PlayerName,
	})
	if err != nil {
		return err
	}
	upCh <- join

	stopUI, err := c.startUI()
	if err != nil {
		return err
	}
	defer stopUI()

	// this is the client's main loop
	for {
		select {
		case line, ok := <-c.locCh:
			if !ok {
				c.sendLeave(upCh)
				return nil
			}
			if quit := c.handleCommand(line, upCh); quit {
				return nil
			}
		case msg, ok := <-downCh:
			if !ok {
				fmt.Printf("connection lost\n")
				return nil
			}
			c.handleDown(msg)
		}
	}
}

func (c *client) handleDown(msg comms.Message) {
	switch string(msg.Head) {
	case "joined":
		var d server.JoinedData
		if err := comms.Decode(msg, &d); err != nil {
			return
		}
		c.players = d.Players
		fmt.Printf("> joined, members: %v\n", d.Players)
	case "playersUpdate":
		var d server.PlayersUpdateData
		if err := comms.Decode(msg, &d); err != nil {
			return
		}
		c.players = d.PlayerIDs
		fmt.Printf("> members: %v\n", d.PlayerIDs)
	case "gameState":
		var d server.GameStateData
		if err := comms.Decode(msg, &d); err != nil {
			return
		}
		c.state = d.State
		fmt.Printf("> new state (%d bytes)\n", len(d.State))
	case "joinError":
		var d server.JoinErrorData
		comms.Decode(msg, &d)
		fmt.Printf("> join error: %v\n", comms.ReError(d.Err))
	case "pushError":
		var d server.PushErrorData
		comms.Decode(msg, &d)
		fmt.Printf("> push error: %v\n", comms.ReError(d.Err))
	default:
		fmt.Printf("> %s %s\n", msg.Head, string(msg.Data))
	}
}

func (c *client) handleCommand(line string, upCh chan comms.Message) bool {
	parts := strings.SplitN(strings.TrimSpace(line), " ", 2)
	cmd := parts[0]
	rest := ""
	if len(parts) == 2 {
		rest = parts[1]
	}

	switch cmd {
	case "players":
		msg, _ := comms.Encode("requestPlayerList", server.PlayerListRequest{RoomID: c.roomID})
		upCh <- msg
	case "state":
		if c.state == nil {
			fmt.Printf("no state yet\n")
			return false
		}
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, c.state, "", "  "); err != nil {
			fmt.Printf("%s\n", c.state)
			return false
		}
		fmt.Printf("%s\n", pretty.String())
	case "newgame":
		raw, err := c.freshState(rest)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return false
		}
		c.push(upCh, raw)
	case "push":
		c.push(upCh, json.RawMessage(rest))
	case "leave":
		c.sendLeave(upCh)
		return true
	case "":
		fmt.Printf("members: %v\n", c.players)
	default:
		fmt.Printf("unknown\n")
	}
	return false
}

// freshState builds a starting snapshot of the given kind from the
// current member list.
func (c *client) freshState(kind string) (json.RawMessage, error) {
	switch kind {
	case "nim":
		return json.Marshal(nim.NewState(nil))
	case "kniffel":
		return json.Marshal(kniffel.NewState(c.players))
	case "fishing":
		ps := make([]fishing.Player, len(c.players))
		for i, id := range c.players {
			ps[i] = fishing.Player{ID: id, Name: id}
		}
		return json.Marshal(fishing.Deal(ps))
	}
	return nil, fmt.Errorf("newgame nim|kniffel|fishing")
}

func (c *client) push(upCh chan comms.Message, raw json.RawMessage) {
	msg, err := comms.Encode("pushState", server.PushStateRequest{RoomID: c.roomID, State: raw})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	upCh <- msg
}

func (c *client) sendLeave(upCh chan comms.Message) {
	msg, _ := comms.Encode("leaveRoom", server.LeaveRoomRequest{RoomID: c.roomID, PlayerID: c.playerID})
	upCh <- msg
}

func (c *client) startUI() (func() error, error) {
	completer := rl.NewPrefixCompleter(
		rl.PcItem("players"),
		rl.PcItem("state"),
		rl.PcItem("newgame",
			rl.PcItem("nim"),
			rl.PcItem("kniffel"),
			rl.PcItem("fishing"),
		),
		rl.PcItem("push"),
		rl.PcItem("leave"),
	)

	l, err := rl.NewEx(&rl.Config{
		Prompt:            "» ",
		HistoryFile:       "hist.txt",
		AutoComplete:      completer,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return nil, err
	}

	go func() {
		defer l.Close()
		defer close(c.locCh)

		for {
			line, err := l.Readline()
			if err == rl.ErrInterrupt {
				if len(line) == 0 {
					return
				}
				continue
			} else if err == io.EOF {
				return
			}
			c.locCh <- line
		}
	}()

	return l.Close, nil
}

func restJoin(serverURL, roomCode, playerName string) (playerID, roomID string, err error) {
	body, err := json.Marshal(map[string]string{
		"roomCode":   roomCode,
		"playerName": playerName,
	})
	if err != nil {
		return "", "", err
	}

	res, err := http.Post(serverURL+"/api/rooms/join", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", "", err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("join failed: %s", res.Status)
	}

	var out struct {
		PlayerID string `json:"playerId"`
		RoomID   string `json:"roomId"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", "", err
	}
	return out.PlayerID, out.RoomID, nil
}

func sendWs(ctx context.Context, ws *websocket.Conn, msg comms.Message) error {
	data, err := json.Marshal(server.WsJSONMessage{Head: string(msg.Head), Data: msg.Data})
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageText, data)
}

func readWs(ctx context.Context, ws *websocket.Conn) (comms.Message, error) {
	typ, data, err := ws.Read(ctx)
	if err != nil {
		return comms.Message{}, err
	}
	if typ != websocket.MessageText {
		return comms.Message{}, fmt.Errorf("server sent a %v", typ)
	}

	jmsg := server.WsJSONMessage{}
	if err := json.Unmarshal(data, &jmsg); err != nil {
		return comms.Message{}, err
	}
	return comms.Message{Head: comms.Head(jmsg.Head), Data: jmsg.Data}, nil
}
