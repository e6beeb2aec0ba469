package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/seralyne/cardex/database/models"
)

func TestTradeSideOf(t *testing.T) {
	tr := &models.Trade{InitiatorID: "100", ReceiverID: "200"}
	assert.Equal(t, models.SideInitiator, tr.SideOf("100"))
	assert.Equal(t, models.SideReceiver, tr.SideOf("200"))
	assert.Equal(t, models.SideNone, tr.SideOf("300"))
	assert.Equal(t, "200", tr.Counterparty("100"))
	assert.Equal(t, "100", tr.Counterparty("200"))
}

func TestTradeTotals(t *testing.T) {
	tr := &models.Trade{
		InitiatorCards: []models.TradeCard{
			{UserCardID: 1, EstimatedValue: 60},
			{UserCardID: 2, EstimatedValue: 40},
		},
		ReceiverCards: []models.TradeCard{
			{UserCardID: 3, EstimatedValue: 95},
		},
	}
	init, recv := tr.OfferedTotals()
	assert.Equal(t, int64(100), init)
	assert.Equal(t, int64(95), recv)

	init, recv = tr.PickTotals()
	assert.Zero(t, init)
	assert.Zero(t, recv)

	tr.InitiatorPick = &models.TradeCard{UserCardID: 1, EstimatedValue: 60}
	tr.ReceiverPick = &models.TradeCard{UserCardID: 3, EstimatedValue: 95}
	init, recv = tr.PickTotals()
	assert.Equal(t, int64(60), init)
	assert.Equal(t, int64(95), recv)
}

func TestStatusTerminality(t *testing.T) {
	assert.False(t, models.TradePending.IsTerminal())
	assert.True(t, models.TradeCompleted.IsTerminal())
	assert.True(t, models.TradeRejected.IsTerminal())
	assert.True(t, models.TradeCancelled.IsTerminal())

	assert.False(t, models.RequestPending.IsTerminal())
	assert.True(t, models.RequestAccepted.IsTerminal())
	assert.True(t, models.RequestCompleted.IsTerminal())
}
