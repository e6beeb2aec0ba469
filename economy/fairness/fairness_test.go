package fairness_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seralyne/cardex/database/models"
	"github.com/seralyne/cardex/economy/fairness"
)

func TestDiffPct(t *testing.T) {
	tests := []struct {
		name string
		a, b int64
		want float64
	}{
		{name: "Equal", a: 100, b: 100, want: 0},
		{name: "FivePercent", a: 100, b: 95, want: 5.0},
		{name: "TwentyPercent", a: 100, b: 80, want: 20.0},
		{name: "Symmetric", a: 80, b: 100, want: 20.0},
		{name: "BothZero", a: 0, b: 0, want: 0},
		{name: "OneZero", a: 100, b: 0, want: 100.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, fairness.DiffPct(tt.a, tt.b), 1e-9)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		initiator  int64
		receiver   int64
		kind       models.TradeKind
		wantPct    float64
		wantErr    error
	}{
		{
			name:      "PublicWithinLimit",
			initiator: 100, receiver: 95,
			kind:    models.TradePublic,
			wantPct: 5.0,
		},
		{
			name:      "PublicAtLimit",
			initiator: 100, receiver: 90,
			kind:    models.TradePublic,
			wantPct: 10.0,
		},
		{
			name:      "PublicOverLimit",
			initiator: 100, receiver: 80,
			kind:    models.TradePublic,
			wantPct: 20.0,
			wantErr: fairness.ErrValueDiffTooHigh,
		},
		{
			name:      "PrivateOverLimit",
			initiator: 1000, receiver: 1,
			kind:    models.TradePrivate,
			wantPct: 99.9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pct, err := fairness.Validate(tt.initiator, tt.receiver, tt.kind)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.InDelta(t, tt.wantPct, pct, 1e-9)
		})
	}
}
