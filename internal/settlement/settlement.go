package settlement

import (
	"context"
	"log/slog"

	"github.com/quizbattle/server/internal/model"
	"github.com/quizbattle/server/internal/store"
)

// Rewards is the credited points/xp/coins for one side of a finished
// match (spec §4.6 step 3).
type Rewards struct {
	Points int
	XP     int
	Coins  int
}

// rewardTable is keyed by mode and outcome. The casual/loser numbers are
// the literal values from the worked S1 scenario; ranked doubles xp/coins
// as an incentive to queue ranked (a settlement design choice, not a
// spec-mandated number).
var rewardTable = map[model.Mode]struct{ winner, loser Rewards }{
	model.ModeCasual: {
		winner: Rewards{Points: 100, XP: 150, Coins: 50},
		loser:  Rewards{Points: 30, XP: 50, Coins: 10},
	},
	model.ModeFriend: {
		winner: Rewards{Points: 100, XP: 150, Coins: 50},
		loser:  Rewards{Points: 30, XP: 50, Coins: 10},
	},
	model.ModeRanked: {
		winner: Rewards{Points: 100, XP: 300, Coins: 100},
		loser:  Rewards{Points: 30, XP: 100, Coins: 20},
	},
}

func rewardsFor(mode model.Mode) (winner, loser Rewards) {
	r, ok := rewardTable[mode]
	if !ok {
		r = rewardTable[model.ModeCasual]
	}
	return r.winner, r.loser
}

// Notifier is the settlement-specific subset of outbound events.
type Notifier interface {
	GameOver(ctx context.Context, m *model.MatchState, winnerRewards, loserRewards Rewards)
	RankedMMRChanged(ctx context.Context, userID string, oldRating, newRating int, tier TierChange)
}

// SessionCleanup clears the in-memory session/queue bookkeeping after a
// match ends (spec §4.6 step 7: clear currentMatchId, status online,
// schedule removal).
type SessionCleanup interface {
	OnMatchFinished(ctx context.Context, playerA, playerB string)
}

// Pipeline is the Settlement Pipeline. Process is wired as the Match
// Engine's SettlementHook and runs exactly once per match, on its first
// finished transition.
type Pipeline struct {
	stats         store.Stats
	matchAnswers  store.MatchAnswers
	achievements  store.Achievements
	missions      store.Missions
	notifications store.Notifications
	notifier      Notifier
	cleanup       SessionCleanup
	ratingK       int
}

// Config bundles the Pipeline's tunables.
type Config struct {
	RatingK int
}

// New constructs a Pipeline.
func New(st store.Store, notifier Notifier, cleanup SessionCleanup, cfg Config) *Pipeline {
	return &Pipeline{
		stats:         st.Stats(),
		matchAnswers:  st.MatchAnswers(),
		achievements:  st.Achievements(),
		missions:      st.Missions(),
		notifications: st.Notifications(),
		notifier:      notifier,
		cleanup:       cleanup,
		ratingK:       cfg.RatingK,
	}
}

// Process implements match.SettlementHook (spec §4.6).
func (p *Pipeline) Process(ctx context.Context, m *model.MatchState) {
	p.persistAnswers(ctx, m)

	winner, loser := m.Winner, m.Loser
	if winner == "" || loser == "" {
		// insufficient_questions: no participants to settle.
		p.finalizeNoContest(ctx, m)
		return
	}

	winnerStatsBefore, err := p.stats.GetByUser(ctx, winner)
	if err != nil {
		slog.Error("settlement: loading winner stats failed", "matchId", m.ID, "userId", winner, "err", err)
	}
	loserStatsBefore, err := p.stats.GetByUser(ctx, loser)
	if err != nil {
		slog.Error("settlement: loading loser stats failed", "matchId", m.ID, "userId", loser, "err", err)
	}

	winnerRewards, loserRewards := rewardsFor(m.Settings.Mode)

	winnerDelta := store.StatsDelta{
		Win:      true,
		Correct:  m.CorrectCount(winner),
		Answered: len(m.Questions),
		XP:       winnerRewards.XP,
		Coins:    winnerRewards.Coins,
	}
	loserDelta := store.StatsDelta{
		Loss:     true,
		Correct:  m.CorrectCount(loser),
		Answered: len(m.Questions),
		XP:       loserRewards.XP,
		Coins:    loserRewards.Coins,
	}

	if m.Settings.Mode == model.ModeRanked {
		winnerDelta.RatingDelta = EloDelta(p.ratingK, winnerStatsBefore.Rating, loserStatsBefore.Rating, 1)
		loserDelta.RatingDelta = EloDelta(p.ratingK, loserStatsBefore.Rating, winnerStatsBefore.Rating, 0)
	}

	winnerStatsAfter, err := p.stats.ApplyDelta(ctx, winner, winnerDelta)
	if err != nil {
		slog.Error("settlement: applying winner delta failed", "matchId", m.ID, "err", err)
	}
	loserStatsAfter, err := p.stats.ApplyDelta(ctx, loser, loserDelta)
	if err != nil {
		slog.Error("settlement: applying loser delta failed", "matchId", m.ID, "err", err)
	}

	if m.Settings.Mode == model.ModeRanked {
		p.notifier.RankedMMRChanged(ctx, winner, winnerStatsBefore.Rating, winnerStatsAfter.Rating,
			DeriveTierChange(winnerStatsBefore.Rating, winnerStatsAfter.Rating))
		p.notifier.RankedMMRChanged(ctx, loser, loserStatsBefore.Rating, loserStatsAfter.Rating,
			DeriveTierChange(loserStatsBefore.Rating, loserStatsAfter.Rating))
	}

	p.notifier.GameOver(ctx, m, winnerRewards, loserRewards)

	if p.cleanup != nil {
		p.cleanup.OnMatchFinished(ctx, winner, loser)
	}

	// Achievement/mission/notification fan-out is concurrent with
	// game.over delivery (spec §4.6 step 5): it must never block or fail
	// the broadcast above, and the happens-before between the counter
	// update and achievement detection above (winnerStatsAfter already
	// reflects the new counters) avoids the stale-read bug noted in
	// spec §9.
	go p.fireHooks(context.WithoutCancel(ctx), winner, winnerStatsAfter)
	go p.fireHooks(context.WithoutCancel(ctx), loser, loserStatsAfter)
}

// persistAnswers writes the engine's graded AnswersLog (spec §3: an
// AnswerRecord is persisted at settlement time, not on submission). A
// failed insert is logged and skipped, not fatal to settlement.
func (p *Pipeline) persistAnswers(ctx context.Context, m *model.MatchState) {
	for _, rec := range m.AnswersLog {
		if err := p.matchAnswers.Insert(ctx, rec); err != nil {
			slog.Error("settlement: persisting answer record failed",
				"matchId", m.ID, "userId", rec.UserID, "questionIndex", rec.QuestionIndex, "err", err)
		}
	}
}

func (p *Pipeline) finalizeNoContest(ctx context.Context, m *model.MatchState) {
	p.notifier.GameOver(ctx, m, Rewards{}, Rewards{})
	if p.cleanup != nil {
		p.cleanup.OnMatchFinished(ctx, m.PlayerA, m.PlayerB)
	}
}

func (p *Pipeline) fireHooks(ctx context.Context, userID string, stats model.UserStats) {
	if _, err := p.achievements.CheckAndAward(ctx, userID, stats); err != nil {
		slog.Warn("settlement: achievement check failed", "userId", userID, "err", err)
	}
	if err := p.missions.RecordProgress(ctx, userID, stats); err != nil {
		slog.Warn("settlement: mission progress failed", "userId", userID, "err", err)
	}
	if err := p.notifications.Notify(ctx, userID, "match_complete", "Your match has finished."); err != nil {
		slog.Warn("settlement: notification failed", "userId", userID, "err", err)
	}
}
