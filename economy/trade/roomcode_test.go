package trade

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRoomCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := generateRoomCode()
		require.NoError(t, err)
		assert.Len(t, code, roomCodeLength)
		for _, ch := range code {
			assert.True(t, strings.ContainsRune(roomCodeAlphabet, ch), "unexpected character %q", ch)
		}
		seen[code] = true
	}
	// Collisions over 100 draws from a 36^8 space would point at a broken
	// generator.
	assert.Len(t, seen, 100)
}
