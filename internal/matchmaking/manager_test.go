package matchmaking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizbattle/server/internal/clock"
	"github.com/quizbattle/server/internal/model"
)

type recordingNotifier struct {
	searching      []string
	confirmReqs    []string
	confirmStatus  map[string]model.ConfirmStatus
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{confirmStatus: make(map[string]model.ConfirmStatus)}
}

func (n *recordingNotifier) MatchmakingSearching(ctx context.Context, userID string, playersInQueue, estimatedWait int) {
	n.searching = append(n.searching, userID)
}

func (n *recordingNotifier) MatchmakingCancelled(ctx context.Context, userID, matchID string) {}

func (n *recordingNotifier) MatchmakingConfirmRequest(ctx context.Context, userID, matchID, opponentID string, settings model.MatchSettings, deadlineSeconds int) {
	n.confirmReqs = append(n.confirmReqs, userID)
}

func (n *recordingNotifier) MatchmakingConfirmStatus(ctx context.Context, userA, userB, matchID string, status model.ConfirmStatus) {
	n.confirmStatus[userA] = status
	n.confirmStatus[userB] = status
}

type recordingStarter struct {
	started []string
}

func (s *recordingStarter) StartMatch(ctx context.Context, matchID, playerA, playerB string, settings model.MatchSettings) {
	s.started = append(s.started, matchID)
}

func newTestManager(fc *clock.Fake) (*Manager, *recordingNotifier, *recordingStarter) {
	notifier := newRecordingNotifier()
	starter := &recordingStarter{}
	m := New(fc, Config{RatingWindow: 200, ConfirmTimeout: 30 * time.Second}, notifier, starter)
	return m, notifier, starter
}

func TestFind_FirstCallerWaitsInQueue(t *testing.T) {
	fc := clock.NewFake(time.Now())
	m, notifier, _ := newTestManager(fc)

	m.Find(context.Background(), &model.QueueEntry{UserID: "alice", Mode: model.ModeCasual, Difficulty: "easy", Category: "all", EnqueuedAt: fc.Now()})

	assert.Contains(t, notifier.searching, "alice")
	assert.Equal(t, 1, m.QueueLen())
}

func TestFind_SecondCallerPairsAndRemovesBothFromQueue(t *testing.T) {
	fc := clock.NewFake(time.Now())
	m, notifier, _ := newTestManager(fc)

	m.Find(context.Background(), &model.QueueEntry{UserID: "alice", Mode: model.ModeCasual, Difficulty: "easy", Category: "all", EnqueuedAt: fc.Now()})
	m.Find(context.Background(), &model.QueueEntry{UserID: "bob", Mode: model.ModeCasual, Difficulty: "easy", Category: "all", EnqueuedAt: fc.Now()})

	assert.Equal(t, 0, m.QueueLen())
	assert.ElementsMatch(t, []string{"alice", "bob"}, notifier.confirmReqs)
}

func TestConfirm_BothConfirmStartsMatchAfterDelay(t *testing.T) {
	fc := clock.NewFake(time.Now())
	m, notifier, starter := newTestManager(fc)

	m.Find(context.Background(), &model.QueueEntry{UserID: "alice", Mode: model.ModeCasual, Difficulty: "easy", Category: "all", EnqueuedAt: fc.Now()})
	m.Find(context.Background(), &model.QueueEntry{UserID: "bob", Mode: model.ModeCasual, Difficulty: "easy", Category: "all", EnqueuedAt: fc.Now()})

	firstRequested := notifier.confirmReqs[0]
	require.NotEmpty(t, firstRequested)

	// The notifier records userIDs, not matchIds, so read the pending
	// matchId straight from the Manager's pending map.
	var pendingID string
	m.mu.Lock()
	for id := range m.pending {
		pendingID = id
	}
	m.mu.Unlock()
	require.NotEmpty(t, pendingID)

	require.NoError(t, m.Confirm(context.Background(), "alice", pendingID, true))
	assert.Empty(t, starter.started)

	require.NoError(t, m.Confirm(context.Background(), "bob", pendingID, true))
	assert.Equal(t, model.ConfirmBothConfirmed, notifier.confirmStatus["alice"])

	fc.Advance(startDelay)
	assert.Equal(t, []string{pendingID}, starter.started)
}

func TestConfirm_DeclineCancelsPendingMatch(t *testing.T) {
	fc := clock.NewFake(time.Now())
	m, notifier, starter := newTestManager(fc)

	m.Find(context.Background(), &model.QueueEntry{UserID: "alice", Mode: model.ModeCasual, Difficulty: "easy", Category: "all", EnqueuedAt: fc.Now()})
	m.Find(context.Background(), &model.QueueEntry{UserID: "bob", Mode: model.ModeCasual, Difficulty: "easy", Category: "all", EnqueuedAt: fc.Now()})

	var pendingID string
	m.mu.Lock()
	for id := range m.pending {
		pendingID = id
	}
	m.mu.Unlock()

	require.NoError(t, m.Confirm(context.Background(), "bob", pendingID, false))
	assert.Equal(t, model.ConfirmDeclined, notifier.confirmStatus["alice"])

	err := m.Confirm(context.Background(), "alice", pendingID, true)
	assert.Error(t, err)
	assert.Empty(t, starter.started)
}

func TestConfirm_TimeoutFiresWhenDeadlinePasses(t *testing.T) {
	fc := clock.NewFake(time.Now())
	m, notifier, _ := newTestManager(fc)

	m.Find(context.Background(), &model.QueueEntry{UserID: "alice", Mode: model.ModeCasual, Difficulty: "easy", Category: "all", EnqueuedAt: fc.Now()})
	m.Find(context.Background(), &model.QueueEntry{UserID: "bob", Mode: model.ModeCasual, Difficulty: "easy", Category: "all", EnqueuedAt: fc.Now()})

	fc.Advance(31 * time.Second)

	assert.Equal(t, model.ConfirmTimeout, notifier.confirmStatus["alice"])
	assert.Equal(t, model.ConfirmTimeout, notifier.confirmStatus["bob"])
}

func TestConfirm_UnknownMatchReturnsMatchNotFound(t *testing.T) {
	fc := clock.NewFake(time.Now())
	m, _, _ := newTestManager(fc)

	err := m.Confirm(context.Background(), "alice", "nonexistent", true)
	assert.Error(t, err)
}

func TestFindMatch_RankedPrefersClosestRatingWithinWindow(t *testing.T) {
	q := NewQueue()
	q.Enqueue(&model.QueueEntry{UserID: "far", Mode: model.ModeRanked, Rating: 2200, EnqueuedAt: time.Now()})
	q.Enqueue(&model.QueueEntry{UserID: "near", Mode: model.ModeRanked, Rating: 1550, EnqueuedAt: time.Now()})

	caller := &model.QueueEntry{UserID: "caller", Mode: model.ModeRanked, Rating: 1500}
	match, ok := q.FindMatch(caller, 200)

	require.True(t, ok)
	assert.Equal(t, "near", match.UserID)
}

func TestFindMatch_RankedFallsBackToClosestOverallWhenNoneInWindow(t *testing.T) {
	q := NewQueue()
	q.Enqueue(&model.QueueEntry{UserID: "distant", Mode: model.ModeRanked, Rating: 3000, EnqueuedAt: time.Now()})

	caller := &model.QueueEntry{UserID: "caller", Mode: model.ModeRanked, Rating: 1500}
	match, ok := q.FindMatch(caller, 200)

	require.True(t, ok)
	assert.Equal(t, "distant", match.UserID)
}

func TestFindMatch_CasualWildcardCategory(t *testing.T) {
	q := NewQueue()
	q.Enqueue(&model.QueueEntry{UserID: "bob", Mode: model.ModeCasual, Difficulty: "easy", Category: "science", EnqueuedAt: time.Now()})

	caller := &model.QueueEntry{UserID: "alice", Mode: model.ModeCasual, Difficulty: "easy", Category: "all"}
	match, ok := q.FindMatch(caller, 200)

	require.True(t, ok)
	assert.Equal(t, "bob", match.UserID)
}
