package settlement

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quizbattle/server/internal/model"
)

func TestEloDelta_EqualRatingsSplitKEvenly(t *testing.T) {
	winnerDelta := EloDelta(32, 1000, 1000, 1)
	loserDelta := EloDelta(32, 1000, 1000, 0)

	assert.Equal(t, 16, winnerDelta)
	assert.Equal(t, -16, loserDelta)
}

func TestEloDelta_UnderdogWinGainsMoreThanFavoriteWin(t *testing.T) {
	underdogGain := EloDelta(32, 900, 1100, 1)
	favoriteGain := EloDelta(32, 1100, 900, 1)

	assert.Greater(t, underdogGain, favoriteGain)
}

func TestDeriveTierChange_DetectsPromotion(t *testing.T) {
	tc := DeriveTierChange(990, 1010)
	assert.Equal(t, model.TierBronze, tc.OldTier)
	assert.Equal(t, model.TierSilver, tc.NewTier)
	assert.True(t, tc.Promoted)
	assert.False(t, tc.Demoted)
}

func TestDeriveTierChange_DetectsDemotion(t *testing.T) {
	tc := DeriveTierChange(1510, 1490)
	assert.True(t, tc.Demoted)
	assert.False(t, tc.Promoted)
}

func TestDeriveTierChange_NoTierMoveWithinABand(t *testing.T) {
	tc := DeriveTierChange(1100, 1150)
	assert.False(t, tc.Promoted)
	assert.False(t, tc.Demoted)
	assert.Equal(t, tc.OldTier, tc.NewTier)
}
