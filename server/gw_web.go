package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/stormyfocus/gamehub/comms"
	"github.com/stormyfocus/gamehub/game"
)

type WsJSONMessage struct {
	Head string          `json:"head"`
	Data json.RawMessage `json:"data"`
}

func (s *Server) buildRouter() *gin.Engine {
	rh := restHandler{server: s, log: s.log.With().Str("gw", "rest").Logger()}
	ch := commsHandler{server: s, log: s.log.With().Str("gw", "ws").Logger()}

	r := gin.Default()
	a := r.Group("/api")
	a.POST("/rooms", rh.createRoom)
	a.POST("/rooms/join", rh.joinRoom)
	a.GET("/rooms/:id/players", rh.getPlayers)
	a.GET("/rooms/:id/code", rh.getRoomCode)
	a.GET("/rooms/:id/state", rh.getRoomState)
	a.GET("/roomcode/:code", rh.getRoomID)
	r.GET("/ws", ch.serveWS)
	return r
}

type restHandler struct {
	server *Server
	log    zerolog.Logger
}

type createRoomRequest struct {
	GameKind string `json:"gameKind"`
	HostName string `json:"hostName"`
}

func (rh *restHandler) createRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.BindJSON(&req); err != nil {
		return
	}

	kind, err := game.ParseKind(req.GameKind)
	if err != nil {
		c.String(http.StatusBadRequest, "error: %v", err)
		return
	}

	room, err := rh.server.rooms.CreateRoom(kind, req.HostName)
	if err != nil {
		rh.log.Error().Err(err).Msg("create room error")
		c.String(http.StatusInternalServerError, "error: %v", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"roomId": room.ID, "roomCode": room.Code})
}

type joinRoomRequest struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

func (rh *restHandler) joinRoom(c *gin.Context) {
	var req joinRoomRequest
	if err := c.BindJSON(&req); err != nil {
		return
	}

	p, err := rh.server.rooms.JoinRoom(req.RoomCode, req.PlayerName)
	if err == ErrRoomNotFound {
		c.String(http.StatusNotFound, "no such room code")
		return
	}
	if err != nil {
		rh.log.Error().Err(err).Msg("join room error")
		c.String(http.StatusInternalServerError, "error: %v", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"playerId": p.ID, "roomId": p.RoomID})
}

func (rh *restHandler) getPlayers(c *gin.Context) {
	players, err := rh.server.rooms.Players(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, nil)
		return
	}
	c.JSON(http.StatusOK, players)
}

func (rh *restHandler) getRoomCode(c *gin.Context) {
	room, err := rh.server.rooms.Room(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"roomCode": room.Code})
}

func (rh *restHandler) getRoomID(c *gin.Context) {
	room, err := rh.server.rooms.RoomByCode(c.Param("code"))
	if err != nil {
		c.JSON(http.StatusNotFound, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"roomId": room.ID})
}

func (rh *restHandler) getRoomState(c *gin.Context) {
	id := c.Param("id")
	players, err := rh.server.rooms.Players(id)
	if err != nil {
		c.JSON(http.StatusNotFound, nil)
		return
	}

	var state json.RawMessage
	if sess, ok := rh.server.registry.Get(id); ok {
		state = sess.State()
	}

	c.JSON(http.StatusOK, gin.H{"players": players, "state": state})
}

type commsHandler struct {
	server *Server
	log    zerolog.Logger
}

func (ch *commsHandler) serveWS(c *gin.Context) {
	addr := c.Request.RemoteAddr

	log := ch.log.With().Str("client", addr).Logger()
	log.Info().Msg("connecting")

	socket, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Info().Err(err).Msg("websocket accept error")
		return
	}
	defer socket.Close(websocket.StatusInternalError, "the sky is falling")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	downCh := make(chan comms.Message, 100)

	go func() {
		// read downCh, write to conn
		for {
			select {
			case msg := <-downCh:
				if err := sendDownWs(ctx, socket, msg); err != nil {
					log.Info().Err(err).Msg("send error")
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		// heartbeat; a dead peer gets its read loop torn down
		t := time.NewTicker(20 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				pctx, pcancel := context.WithTimeout(ctx, 5*time.Second)
				err := socket.Ping(pctx)
				pcancel()
				if err != nil {
					log.Info().Err(err).Msg("heartbeat failed")
					socket.Close(websocket.StatusGoingAway, "heartbeat failed")
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// one player per connection for its whole lifetime
	var sess *session
	var playerID string

	defer func() {
		if sess != nil {
			sess.Leave(playerID)
			ch.server.rooms.DeletePlayer(sess.roomID, playerID)
		}
	}()

	for {
		msg, err := readMessageWs(ctx, socket)
		if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
			return
		}
		if err != nil {
			log.Info().Err(err).Msgf("client read error: %v", addr)
			return
		}

		switch string(msg.Head) {
		case "joinRoom":
			var req JoinRoomRequest
			if err := comms.Decode(msg, &req); err != nil {
				trySend(downCh, "joinError", JoinErrorData{Err: comms.WrapError(err)})
				continue
			}
			if req.RoomID == "" || req.PlayerID == "" {
				trySend(downCh, "joinError", JoinErrorData{Err: comms.WrapError(errors.New("missing roomId or playerId"))})
				continue
			}
			if sess != nil && (sess.roomID != req.RoomID || playerID != req.PlayerID) {
				trySend(downCh, "joinError", JoinErrorData{Err: comms.WrapError(errors.New("connection already in a room"))})
				continue
			}

			room, err := ch.server.rooms.Room(req.RoomID)
			if err != nil {
				trySend(downCh, "joinError", JoinErrorData{Err: comms.WrapError(err)})
				continue
			}

			for {
				s := ch.server.registry.GetOrCreate(req.RoomID, room.Kind)
				reply, err := s.Join(req.PlayerID, req.PlayerName, clientBundle{downCh})
				if err == errSessionClosed {
					// lost a race with the room closing, take the fresh one
					continue
				}
				sess, playerID = s, req.PlayerID
				log = log.With().Str("room", req.RoomID).Str("player", playerID).Logger()
				trySend(downCh, "joined", JoinedData{RoomID: req.RoomID, PlayerID: playerID, Players: reply.Players})
				if reply.State != nil {
					trySend(downCh, "gameState", GameStateData{State: reply.State})
				}
				break
			}
		case "requestPlayerList":
			if sess == nil {
				continue
			}
			trySend(downCh, "playersUpdate", PlayersUpdateData{PlayerIDs: sess.Players()})
		case "pushState":
			var req PushStateRequest
			if err := comms.Decode(msg, &req); err != nil {
				trySend(downCh, "pushError", PushErrorData{Err: comms.WrapError(err)})
				continue
			}
			if sess == nil || sess.roomID != req.RoomID {
				log.Info().Msg("push from unjoined connection dropped")
				continue
			}
			err := sess.Push(playerID, req.State)
			if err == errNotMember {
				log.Info().Msg("push from non-member dropped")
				continue
			}
			if err != nil {
				trySend(downCh, "pushError", PushErrorData{Err: comms.WrapError(err)})
			}
		case "leaveRoom":
			if sess != nil {
				sess.Leave(playerID)
				ch.server.rooms.DeletePlayer(sess.roomID, playerID)
				sess = nil
			}
			socket.Close(websocket.StatusNormalClosure, "bye")
			return
		default:
			log.Info().Msgf("junk from client: %v", msg.Head)
		}
	}
}

func trySend(downCh chan comms.Message, head string, payload interface{}) {
	msg, err := comms.Encode(head, payload)
	if err != nil {
		return
	}
	select {
	case downCh <- msg:
	default:
	}
}

func sendDownWs(ctx context.Context, ws *websocket.Conn, msg comms.Message) error {
	w, err := ws.Writer(ctx, websocket.MessageText)
	if err != nil {
		return err
	}
	defer w.Close()

	jmsg := WsJSONMessage{
		Head: string(msg.Head),
		Data: msg.Data,
	}

	tmsg, err := json.Marshal(jmsg)
	if err != nil {
		return err
	}

	if _, err := w.Write(tmsg); err != nil {
		return err
	}

	return w.Close()
}

func readMessageWs(ctx context.Context, c *websocket.Conn) (comms.Message, error) {
	typ, r, err := c.Reader(ctx)
	if err != nil {
		return comms.Message{}, err
	}

	if typ != websocket.MessageText {
		return comms.Message{}, fmt.Errorf("client sent a %v", typ)
	}

	bytes, err := io.ReadAll(r)
	if err != nil {
		return comms.Message{}, err
	}
	msg := WsJSONMessage{}
	if err := json.Unmarshal(bytes, &msg); err != nil {
		return comms.Message{}, err
	}

	return comms.Message{Head: comms.Head(msg.Head), Data: msg.Data}, nil
}
