package bids

import (
	"testing"

	"skyfuel-backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to models.BidStatus
		want     bool
	}{
		{models.BidDraft, models.BidPendingApproval, true},
		{models.BidDraft, models.BidSubmitted, true},
		{models.BidDraft, models.BidWithdrawn, true},
		{models.BidDraft, models.BidWon, false},
		{models.BidPendingApproval, models.BidSubmitted, true},
		{models.BidPendingApproval, models.BidDraft, true},
		{models.BidSubmitted, models.BidWon, true},
		{models.BidSubmitted, models.BidLost, true},
		{models.BidSubmitted, models.BidDraft, false},
		{models.BidWon, models.BidLost, false},
		{models.BidLost, models.BidSubmitted, false},
		{models.BidWithdrawn, models.BidDraft, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTransition_IllegalEdgeLeavesStatus(t *testing.T) {
	bid := &models.Bid{Status: models.BidWon}
	err := transition(bid, models.BidSubmitted)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, models.BidWon, bid.Status)
}
