package trade

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	roomCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	roomCodeLength   = 8
)

// generateRoomCode returns a short opaque base36 code correlating a live room
// to one trade. The unique index on trades.room_code catches the (vanishing)
// collision case at insert time.
func generateRoomCode() (string, error) {
	var b strings.Builder
	b.Grow(roomCodeLength)
	max := big.NewInt(int64(len(roomCodeAlphabet)))
	for i := 0; i < roomCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate room code: %w", err)
		}
		b.WriteByte(roomCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}
