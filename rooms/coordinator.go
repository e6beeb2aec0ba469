package rooms

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gofiber/websocket/v2"

	"github.com/seralyne/cardex/database/models"
)

// room holds one live session: its connected clients and each party's
// current card selection, replayed to late joiners.
type room struct {
	clients    map[*Client]bool
	selections map[string]int64
}

// Coordinator is the in-memory hub for live trade rooms. Rooms are keyed by
// code and exist only while at least one client is connected; nothing here
// is persisted or restored.
type Coordinator struct {
	mu    sync.RWMutex
	rooms map[string]*room
}

func NewCoordinator() *Coordinator {
	return &Coordinator{
		rooms: make(map[string]*room),
	}
}

// Serve runs one client's session and blocks until the connection closes.
// The caller has already authenticated the user and checked room membership.
func (co *Coordinator) Serve(conn *websocket.Conn, userID, roomCode string) {
	client := newClient(conn, userID, roomCode)
	co.register(client)
	go client.writePump()
	client.readPump(co)
}

// UserIDs returns the distinct users currently connected to a room.
func (co *Coordinator) UserIDs(roomCode string) []string {
	co.mu.RLock()
	defer co.mu.RUnlock()
	return co.userIDsLocked(roomCode)
}

// TradeCompleted pushes the terminal completion event into the room, then
// tears the session down.
func (co *Coordinator) TradeCompleted(roomCode string, trade *models.Trade) {
	co.broadcast(roomCode, encode(TypeTradeCompleted, TradeEventPayload{Trade: trade}))
	co.closeRoom(roomCode)
}

// TradeRejected pushes the terminal rejection or cancellation event into the
// room, then tears the session down.
func (co *Coordinator) TradeRejected(roomCode string, trade *models.Trade) {
	co.broadcast(roomCode, encode(TypeTradeRejected, TradeEventPayload{Trade: trade}))
	co.closeRoom(roomCode)
}

func (co *Coordinator) register(client *Client) {
	co.mu.Lock()
	r, ok := co.rooms[client.RoomCode]
	if !ok {
		r = &room{
			clients:    make(map[*Client]bool),
			selections: make(map[string]int64),
		}
		co.rooms[client.RoomCode] = r
	}
	r.clients[client] = true
	users := co.userIDsLocked(client.RoomCode)
	selections := make(map[string]int64, len(r.selections))
	for userID, userCardID := range r.selections {
		selections[userID] = userCardID
	}
	co.mu.Unlock()

	slog.Info("Room joined",
		slog.String("room_code", client.RoomCode),
		slog.String("user_id", client.UserID),
		slog.Int("users", len(users)))

	co.broadcast(client.RoomCode, encode(TypeRoomUsers, RoomUsersPayload{
		RoomCode: client.RoomCode,
		UserIDs:  users,
	}))

	// Replay current selections so a late or reconnecting party sees the
	// session state, not just future events.
	for userID, userCardID := range selections {
		client.enqueue(encode(TypeCardSelected, CardSelectedPayload{
			UserID:     userID,
			UserCardID: userCardID,
		}))
	}
}

func (co *Coordinator) unregister(client *Client) {
	co.mu.Lock()
	r, ok := co.rooms[client.RoomCode]
	if ok {
		delete(r.clients, client)
		if len(r.clients) == 0 {
			delete(co.rooms, client.RoomCode)
		}
	}
	users := co.userIDsLocked(client.RoomCode)
	co.mu.Unlock()

	if !ok {
		return
	}
	client.shutdown()

	slog.Info("Room left",
		slog.String("room_code", client.RoomCode),
		slog.String("user_id", client.UserID))

	co.broadcast(client.RoomCode, encode(TypeRoomUsers, RoomUsersPayload{
		RoomCode: client.RoomCode,
		UserIDs:  users,
	}))
}

// handleInbound routes a decoded client frame. Unknown types answer with an
// error frame instead of dropping the connection.
func (co *Coordinator) handleInbound(client *Client, env *Envelope) {
	switch env.Type {
	case TypeSelectCard:
		var p SelectCardPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			client.enqueue(encode(TypeError, ErrorPayload{Message: "malformed selectCard payload"}))
			return
		}
		co.mu.Lock()
		if r, ok := co.rooms[client.RoomCode]; ok {
			r.selections[client.UserID] = p.UserCardID
		}
		co.mu.Unlock()
		co.broadcast(client.RoomCode, encode(TypeCardSelected, CardSelectedPayload{
			UserID:     client.UserID,
			UserCardID: p.UserCardID,
		}))
	case TypeSendMessage:
		var p ChatPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.Text == "" {
			client.enqueue(encode(TypeError, ErrorPayload{Message: "malformed sendMessage payload"}))
			return
		}
		co.broadcast(client.RoomCode, encode(TypeReceiveMessage, ReceiveMessagePayload{
			UserID: client.UserID,
			Text:   p.Text,
		}))
	default:
		client.enqueue(encode(TypeError, ErrorPayload{Message: "unknown message type: " + env.Type}))
	}
}

// broadcast fans a frame out to every client in the room. Clients whose
// buffers are full miss the frame rather than stall the room.
func (co *Coordinator) broadcast(roomCode string, msg []byte) {
	if msg == nil {
		return
	}
	co.mu.RLock()
	var clients []*Client
	if r, ok := co.rooms[roomCode]; ok {
		clients = make([]*Client, 0, len(r.clients))
		for c := range r.clients {
			clients = append(clients, c)
		}
	}
	co.mu.RUnlock()

	for _, c := range clients {
		if !c.enqueue(msg) {
			slog.Warn("Room frame dropped, client buffer full",
				slog.String("room_code", roomCode),
				slog.String("client_id", c.ID))
		}
	}
}

// closeRoom drops the room entry and disconnects every client in it. Called
// after a terminal trade event; the session is over, nothing more relays.
func (co *Coordinator) closeRoom(roomCode string) {
	co.mu.Lock()
	r, ok := co.rooms[roomCode]
	delete(co.rooms, roomCode)
	co.mu.Unlock()

	if !ok {
		return
	}
	for c := range r.clients {
		c.shutdown()
	}

	slog.Info("Room closed",
		slog.String("room_code", roomCode),
		slog.Int("clients", len(r.clients)))
}

func (co *Coordinator) userIDsLocked(roomCode string) []string {
	r, ok := co.rooms[roomCode]
	if !ok {
		return []string{}
	}
	seen := make(map[string]bool)
	users := make([]string, 0, len(r.clients))
	for c := range r.clients {
		if !seen[c.UserID] {
			seen[c.UserID] = true
			users = append(users, c.UserID)
		}
	}
	return users
}
