package auction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/starbids/starbids/starbids/database/models"
)

func TestValidateRoundsConfig(t *testing.T) {
	tests := []struct {
		name    string
		rounds  []models.RoundConfig
		wantErr bool
	}{
		{
			name:    "empty",
			rounds:  nil,
			wantErr: true,
		},
		{
			name:   "single round",
			rounds: []models.RoundConfig{{RoundNumber: 1, DurationSeconds: 60, ItemsCount: 3}},
		},
		{
			name: "contiguous rounds",
			rounds: []models.RoundConfig{
				{RoundNumber: 1, DurationSeconds: 60, ItemsCount: 2},
				{RoundNumber: 2, DurationSeconds: 120, ItemsCount: 1},
			},
		},
		{
			name: "gap in numbering",
			rounds: []models.RoundConfig{
				{RoundNumber: 1, DurationSeconds: 60, ItemsCount: 2},
				{RoundNumber: 3, DurationSeconds: 60, ItemsCount: 1},
			},
			wantErr: true,
		},
		{
			name:    "starts at zero",
			rounds:  []models.RoundConfig{{RoundNumber: 0, DurationSeconds: 60, ItemsCount: 1}},
			wantErr: true,
		},
		{
			name:    "zero duration",
			rounds:  []models.RoundConfig{{RoundNumber: 1, DurationSeconds: 0, ItemsCount: 1}},
			wantErr: true,
		},
		{
			name:    "zero items",
			rounds:  []models.RoundConfig{{RoundNumber: 1, DurationSeconds: 60, ItemsCount: 0}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRoundsConfig(tt.rounds)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTotalItems(t *testing.T) {
	rounds := []models.RoundConfig{
		{RoundNumber: 1, DurationSeconds: 60, ItemsCount: 2},
		{RoundNumber: 2, DurationSeconds: 60, ItemsCount: 3},
	}
	assert.Equal(t, 5, TotalItems(rounds))
}

func TestValidBidAmount(t *testing.T) {
	minBid := dec("100")
	step := dec("10")

	tests := []struct {
		amount string
		want   bool
	}{
		{"100", true},
		{"110", true},
		{"250", true},
		{"105", false}, // not aligned to step
		{"99", false},  // below min
		{"0", false},
		{"-10", false},
		{"100.5", false}, // not an integer
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidBidAmount(dec(tt.amount), minBid, step))
		})
	}
}

func TestValidBidIncrease(t *testing.T) {
	step := dec("10")
	assert.True(t, ValidBidIncrease(dec("100"), dec("110"), step))
	assert.True(t, ValidBidIncrease(dec("100"), dec("200"), step))
	assert.False(t, ValidBidIncrease(dec("100"), dec("105"), step))
	assert.False(t, ValidBidIncrease(dec("100"), dec("100"), step))
	assert.False(t, ValidBidIncrease(dec("150"), dec("110"), step))
}

func TestShouldExtendRound(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Inside the threshold window.
	assert.True(t, ShouldExtendRound(now.Add(20*time.Second), now, 30, 0, 0))
	// Exactly at the threshold boundary.
	assert.True(t, ShouldExtendRound(now.Add(30*time.Second), now, 30, 0, 0))
	// Outside the window.
	assert.False(t, ShouldExtendRound(now.Add(31*time.Second), now, 30, 0, 0))
	// Round already over.
	assert.False(t, ShouldExtendRound(now, now, 30, 0, 0))
	assert.False(t, ShouldExtendRound(now.Add(-time.Second), now, 30, 0, 0))
	// Extension cap.
	assert.False(t, ShouldExtendRound(now.Add(20*time.Second), now, 30, 2, 2))
	// Cap of zero means unlimited.
	assert.True(t, ShouldExtendRound(now.Add(20*time.Second), now, 30, 50, 0))
}
