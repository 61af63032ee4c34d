package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	allowed := map[[2]Status]bool{
		{StatusTemp, StatusValidated}:      true,
		{StatusTemp, StatusCancelled}:      true,
		{StatusValidated, StatusPaid}:      true,
		{StatusValidated, StatusCancelled}: true,
		{StatusPaid, StatusPrepared}:       true,
		{StatusPaid, StatusRetrieved}:      true,
		{StatusPrepared, StatusRetrieved}:  true,
	}

	all := []Status{StatusTemp, StatusValidated, StatusPaid, StatusPrepared, StatusRetrieved, StatusCancelled}
	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]Status{from, to}]
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusRetrieved.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusTemp.Terminal())
	assert.False(t, StatusValidated.Terminal())
	assert.False(t, StatusPaid.Terminal())
	assert.False(t, StatusPrepared.Terminal())
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusTemp.Valid())
	assert.False(t, Status("shipped").Valid())
	assert.False(t, Status("").Valid())
}

func TestOrderTotals(t *testing.T) {
	o := Order{
		LineItems: []LineItem{
			{ItemType: ItemTypePhoto, UnitPrice: 2, Quantity: 3},
			{ItemType: ItemTypePhoto, UnitPrice: 2.5, Quantity: 1},
			{ItemType: ItemTypeUSB, UnitPrice: 15, Quantity: 2},
		},
	}
	assert.InDelta(t, 38.5, o.TotalAmount(), 0.001)
	assert.Equal(t, 4, o.PhotoCount())
	assert.Equal(t, 2, o.USBCount())
}
