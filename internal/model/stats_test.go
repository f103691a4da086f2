package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quizbattle/server/internal/model"
)

func TestTierOf_BandBoundaries(t *testing.T) {
	cases := []struct {
		rating int
		tier   model.RatingTier
	}{
		{0, model.TierBronze},
		{999, model.TierBronze},
		{1000, model.TierSilver},
		{1499, model.TierSilver},
		{1500, model.TierGold},
		{1999, model.TierGold},
		{2000, model.TierPlatinum},
		{2499, model.TierPlatinum},
		{2500, model.TierDiamond},
		{2999, model.TierDiamond},
		{3000, model.TierMaster},
		{3499, model.TierMaster},
		{3500, model.TierGrandmaster},
		{5000, model.TierGrandmaster},
	}

	for _, c := range cases {
		tier, division := model.TierOf(c.rating)
		assert.Equalf(t, c.tier, tier, "rating %d", c.rating)
		assert.GreaterOrEqual(t, division, 1)
		assert.LessOrEqual(t, division, 4)
	}
}

func TestTierOf_DivisionDecreasesAsRatingApproachesBandTop(t *testing.T) {
	_, lowDivision := model.TierOf(1000)
	_, highDivision := model.TierOf(1499)

	assert.Greater(t, lowDivision, highDivision,
		"division 1 is the top of the band, so the highest rating in a band must have the lowest division number")
}
