package model

// UserStats is the persistent per-user counter and rating record
// (spec §3). Mutated only by the Settlement Pipeline.
type UserStats struct {
	UserID        string
	Rating        int
	Wins          int
	Losses        int
	Draws         int
	TotalGames    int
	CurrentStreak int
	BestStreak    int
	Correct       int
	TotalAnswered int
	Level         int
	XP            int
	Coins         int
}

// RatingTier buckets a rating into a human-readable band (spec §4.6 step 4).
type RatingTier string

const (
	TierBronze     RatingTier = "Bronze"
	TierSilver     RatingTier = "Silver"
	TierGold       RatingTier = "Gold"
	TierPlatinum   RatingTier = "Platinum"
	TierDiamond    RatingTier = "Diamond"
	TierMaster     RatingTier = "Master"
	TierGrandmaster RatingTier = "Grandmaster"
)

// TierOf derives the tier and division (1-4, 1 is the highest) for a rating.
func TierOf(rating int) (RatingTier, int) {
	bands := []struct {
		tier RatingTier
		max  int
	}{
		{TierBronze, 1000},
		{TierSilver, 1500},
		{TierGold, 2000},
		{TierPlatinum, 2500},
		{TierDiamond, 3000},
		{TierMaster, 3500},
	}

	for _, b := range bands {
		if rating < b.max {
			return b.tier, divisionWithin(rating, b.max)
		}
	}
	return TierGrandmaster, divisionWithin(rating, rating+500)
}

// divisionWithin splits a 500-point band into 4 divisions, division 1 being
// the top of the band (closest to max).
func divisionWithin(rating, bandMax int) int {
	bandMin := bandMax - 500
	span := bandMax - bandMin
	step := span / 4
	if step == 0 {
		return 1
	}
	offset := rating - bandMin
	division := 4 - offset/step
	if division < 1 {
		division = 1
	}
	if division > 4 {
		division = 4
	}
	return division
}
