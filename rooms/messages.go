package rooms

import (
	"encoding/json"

	"github.com/seralyne/cardex/database/models"
)

// Wire message types. Client-to-server types are the imperative forms,
// server-to-client types are the event forms.
const (
	TypeSelectCard     = "selectCard"
	TypeSendMessage    = "sendMessage"
	TypeRoomUsers      = "roomUsers"
	TypeCardSelected   = "cardSelected"
	TypeReceiveMessage = "receiveMessage"
	TypeTradeCompleted = "tradeCompleted"
	TypeTradeRejected  = "tradeRejected"
	TypeError          = "error"
)

// Envelope is the frame every room message travels in.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type SelectCardPayload struct {
	UserCardID int64 `json:"user_card_id"`
}

type ChatPayload struct {
	Text string `json:"text"`
}

type RoomUsersPayload struct {
	RoomCode string   `json:"room_code"`
	UserIDs  []string `json:"user_ids"`
}

type CardSelectedPayload struct {
	UserID     string `json:"user_id"`
	UserCardID int64  `json:"user_card_id"`
}

type ReceiveMessagePayload struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

type TradeEventPayload struct {
	Trade *models.Trade `json:"trade"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func encode(msgType string, payload any) []byte {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	out, err := json.Marshal(Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil
	}
	return out
}
