// Package settlement implements the Settlement Pipeline of spec §4.6: it
// runs once per match on the first finished transition, updating
// persistent counters and Elo-style rating, then broadcasting game.over.
//
// Grounded on udisondev/la2go's olympiad rating/point adjustment (a
// fixed-K point-transfer ladder keyed on match outcome), generalized from
// a flat point swap into the Elo expectation formula the spec requires.
package settlement

import (
	"math"

	"github.com/quizbattle/server/internal/model"
)

// EloDelta computes the rating change for a player with rating self
// facing an opponent rated opp, given score in {1, 0} (win/loss). A draw
// (score 0.5) is supported for completeness even though the Match Engine
// never produces one (spec §4.5 tie-breaks always pick a winner).
func EloDelta(k, self, opp int, score float64) int {
	expected := 1 / (1 + math.Pow(10, float64(opp-self)/400))
	return int(math.Round(float64(k) * (score - expected)))
}

// TierChange describes how a rating update moved a player between tiers.
type TierChange struct {
	OldTier  model.RatingTier
	NewTier  model.RatingTier
	Promoted bool
	Demoted  bool
}

// DeriveTierChange compares the tiers of oldRating and newRating.
func DeriveTierChange(oldRating, newRating int) TierChange {
	oldTier, _ := model.TierOf(oldRating)
	newTier, _ := model.TierOf(newRating)
	return TierChange{
		OldTier:  oldTier,
		NewTier:  newTier,
		Promoted: tierRank(newTier) > tierRank(oldTier),
		Demoted:  tierRank(newTier) < tierRank(oldTier),
	}
}

func tierRank(t model.RatingTier) int {
	order := []model.RatingTier{
		model.TierBronze, model.TierSilver, model.TierGold, model.TierPlatinum,
		model.TierDiamond, model.TierMaster, model.TierGrandmaster,
	}
	for i, tier := range order {
		if tier == t {
			return i
		}
	}
	return -1
}
