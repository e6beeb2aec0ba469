package rooms

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seralyne/cardex/database/models"
)

func testClient(userID, roomCode string) *Client {
	return &Client{
		ID:       userID + "-client",
		UserID:   userID,
		RoomCode: roomCode,
		send:     make(chan []byte, sendBuffer),
	}
}

func drain(t *testing.T, c *Client) []Envelope {
	t.Helper()
	var out []Envelope
	for {
		select {
		case raw, ok := <-c.send:
			if !ok {
				return out
			}
			var env Envelope
			require.NoError(t, json.Unmarshal(raw, &env))
			out = append(out, env)
		default:
			return out
		}
	}
}

func selectCard(t *testing.T, co *Coordinator, c *Client, userCardID int64) {
	t.Helper()
	raw, err := json.Marshal(SelectCardPayload{UserCardID: userCardID})
	require.NoError(t, err)
	co.handleInbound(c, &Envelope{Type: TypeSelectCard, Payload: raw})
}

func lastOfType(envs []Envelope, msgType string) *Envelope {
	for i := len(envs) - 1; i >= 0; i-- {
		if envs[i].Type == msgType {
			return &envs[i]
		}
	}
	return nil
}

func TestCoordinatorRegisterBroadcastsRoomUsers(t *testing.T) {
	co := NewCoordinator()
	a := testClient("100", "ROOM1")
	b := testClient("200", "ROOM1")

	co.register(a)
	co.register(b)

	envs := drain(t, a)
	env := lastOfType(envs, TypeRoomUsers)
	require.NotNil(t, env)

	var p RoomUsersPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "ROOM1", p.RoomCode)
	assert.ElementsMatch(t, []string{"100", "200"}, p.UserIDs)
}

func TestCoordinatorRoomsAreIsolated(t *testing.T) {
	co := NewCoordinator()
	a := testClient("100", "ROOM1")
	b := testClient("200", "ROOM2")

	co.register(a)
	co.register(b)
	drain(t, a)
	drain(t, b)

	co.TradeCompleted("ROOM1", &models.Trade{TradeID: "t-1"})

	assert.NotNil(t, lastOfType(drain(t, a), TypeTradeCompleted))
	assert.Nil(t, lastOfType(drain(t, b), TypeTradeCompleted))
}

func TestCoordinatorSelectCardFansOut(t *testing.T) {
	co := NewCoordinator()
	a := testClient("100", "ROOM1")
	b := testClient("200", "ROOM1")
	co.register(a)
	co.register(b)
	drain(t, a)
	drain(t, b)

	selectCard(t, co, a, 42)

	env := lastOfType(drain(t, b), TypeCardSelected)
	require.NotNil(t, env)
	var p CardSelectedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "100", p.UserID)
	assert.Equal(t, int64(42), p.UserCardID)

	// The sender sees the selection too.
	assert.NotNil(t, lastOfType(drain(t, a), TypeCardSelected))
}

func TestCoordinatorReplaysSelectionsToLateJoiner(t *testing.T) {
	co := NewCoordinator()
	a := testClient("100", "ROOM1")
	co.register(a)
	selectCard(t, co, a, 42)
	drain(t, a)

	// A party connecting after the selection still sees it.
	b := testClient("200", "ROOM1")
	co.register(b)

	env := lastOfType(drain(t, b), TypeCardSelected)
	require.NotNil(t, env)
	var p CardSelectedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "100", p.UserID)
	assert.Equal(t, int64(42), p.UserCardID)

	// A dropped connection coming back gets the same replay.
	a2 := testClient("100", "ROOM1")
	co.register(a2)
	assert.NotNil(t, lastOfType(drain(t, a2), TypeCardSelected))
}

func TestCoordinatorCompletionTearsDownRoom(t *testing.T) {
	co := NewCoordinator()
	a := testClient("100", "ROOM1")
	b := testClient("200", "ROOM1")
	co.register(a)
	co.register(b)
	drain(t, a)
	drain(t, b)

	co.TradeCompleted("ROOM1", &models.Trade{TradeID: "t-1", Status: models.TradeCompleted})

	// Both parties get the terminal event, then their sessions end.
	assert.NotNil(t, lastOfType(drain(t, a), TypeTradeCompleted))
	assert.NotNil(t, lastOfType(drain(t, b), TypeTradeCompleted))
	_, open := <-a.send
	assert.False(t, open)
	_, open = <-b.send
	assert.False(t, open)

	co.mu.RLock()
	_, exists := co.rooms["ROOM1"]
	co.mu.RUnlock()
	assert.False(t, exists)

	// Nothing relays into a closed room.
	raw, err := json.Marshal(ChatPayload{Text: "still there?"})
	require.NoError(t, err)
	co.handleInbound(a, &Envelope{Type: TypeSendMessage, Payload: raw})
	assert.Nil(t, lastOfType(drain(t, b), TypeReceiveMessage))
}

func TestCoordinatorChatRelay(t *testing.T) {
	co := NewCoordinator()
	a := testClient("100", "ROOM1")
	b := testClient("200", "ROOM1")
	co.register(a)
	co.register(b)
	drain(t, a)
	drain(t, b)

	raw, err := json.Marshal(ChatPayload{Text: "deal?"})
	require.NoError(t, err)
	co.handleInbound(a, &Envelope{Type: TypeSendMessage, Payload: raw})

	env := lastOfType(drain(t, b), TypeReceiveMessage)
	require.NotNil(t, env)
	var p ReceiveMessagePayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "100", p.UserID)
	assert.Equal(t, "deal?", p.Text)
}

func TestCoordinatorUnknownTypeAnswersError(t *testing.T) {
	co := NewCoordinator()
	a := testClient("100", "ROOM1")
	co.register(a)
	drain(t, a)

	co.handleInbound(a, &Envelope{Type: "bogus"})

	env := lastOfType(drain(t, a), TypeError)
	require.NotNil(t, env)
}

func TestTradeRejectedEvent(t *testing.T) {
	co := NewCoordinator()
	a := testClient("100", "ROOM1")
	co.register(a)
	drain(t, a)

	co.TradeRejected("ROOM1", &models.Trade{TradeID: "t-9", Status: models.TradeRejected})

	env := lastOfType(drain(t, a), TypeTradeRejected)
	require.NotNil(t, env)
	var p TradeEventPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "t-9", p.Trade.TradeID)
	assert.Equal(t, models.TradeRejected, p.Trade.Status)

	// Rejection ends the session like completion does.
	_, open := <-a.send
	assert.False(t, open)
	co.mu.RLock()
	_, exists := co.rooms["ROOM1"]
	co.mu.RUnlock()
	assert.False(t, exists)
}
