// Package match implements the Match Engine of spec §4.5: an
// actor-per-match state machine (waiting -> playing -> finished) driven
// by a command channel, with per-question timeout scheduling via the
// clock abstraction.
//
// Grounded on udisondev/la2go's per-player actor goroutines in
// internal/game (one goroutine per live character reading from an inbox
// channel), adapted from per-connection to per-match ownership: the spec
// calls for "actor-per-match (command channel) ... since it owns a state
// machine" (§9 Design Notes).
package match

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/quizbattle/server/internal/apperr"
	"github.com/quizbattle/server/internal/clock"
	"github.com/quizbattle/server/internal/model"
)

// Notifier is every outbound event the engine emits (spec §4.5). The app
// layer implements this by encoding wire frames and fanning them out.
type Notifier interface {
	GameStarted(ctx context.Context, m *model.MatchState, serverTime time.Time)
	GameQuestionsAll(ctx context.Context, m *model.MatchState)
	GameAnswerReceived(ctx context.Context, m *model.MatchState, userID string, correctIndex int, correct bool, points int)
	GameOpponentAnswered(ctx context.Context, m *model.MatchState, answererID string, correct bool)
	GameBattleUpdate(ctx context.Context, m *model.MatchState)
	GameQuestionTimeout(ctx context.Context, m *model.MatchState, correctIndex int, damaged []string, damage int)
	GamePlayerDisconnected(ctx context.Context, m *model.MatchState, userID string)
	GamePlayerReconnected(ctx context.Context, m *model.MatchState, userID string)
}

// SettlementHook is invoked exactly once, when a match transitions to
// finished, handing the terminal state to the Settlement Pipeline. Its
// implementation, not the engine, owns the game.over broadcast: rewards
// and rating changes have to be computed first, and only the pipeline
// has that data. It runs synchronously on the engine goroutine; the app
// wires settlement.Pipeline.Process in directly, without a goroutine of
// its own, so slow persistence holds up the engine until settlement returns.
type SettlementHook func(ctx context.Context, m *model.MatchState)

// interQuestionDelay is the pause between a timeout/answered round and the
// next question (spec §4.5: "3 s inter-question delay").
const interQuestionDelay = 3 * time.Second

// timeoutGrace is added to the configured per-question time limit before
// the timer fires (spec §4.5: "timePerQuestionSec + 1s grace").
const timeoutGrace = 1 * time.Second

// Config bundles the engine's tunables, sourced from internal/config.
type Config struct {
	DamagePerAnswer int
	DamageOnTimeout int
}

// Engine owns one MatchState and serializes every mutation through its
// command channel, so there is never a data race on MatchState even
// though commands can arrive concurrently from different sockets.
type Engine struct {
	state    *model.MatchState
	clock    clock.Clock
	notifier Notifier
	onFinish SettlementHook
	cfg      Config

	cmds         chan command
	currentTimer clock.Timer
	done         chan struct{}
}

type command struct {
	kind commandKind
	// answer fields
	userID        string
	questionIndex int
	chosenIndex   int
	answerTimeMs  int
	// timeout fields
	forIndex int
	// reply carries the handler error back to the caller, if any.
	reply chan error
}

type commandKind int

const (
	cmdAnswer commandKind = iota
	cmdTimeout
	cmdDisconnect
	cmdReconnect
	cmdAdvance
	cmdStop
)

// NewEngine constructs an Engine for an already-paired match. Run must be
// called (typically in its own goroutine) to start processing commands.
func NewEngine(state *model.MatchState, clk clock.Clock, notifier Notifier, onFinish SettlementHook, cfg Config) *Engine {
	return &Engine{
		state:    state,
		clock:    clk,
		notifier: notifier,
		onFinish: onFinish,
		cfg:      cfg,
		cmds:     make(chan command, 16),
		done:     make(chan struct{}),
	}
}

// MatchID returns the engine's match id.
func (e *Engine) MatchID() string { return e.state.ID }

// Participants returns the two player user-ids.
func (e *Engine) Participants() (string, string) { return e.state.PlayerA, e.state.PlayerB }

// Run is the actor loop: it starts the match and then blocks processing
// commands until the match finishes or Stop is called. Callers should run
// this in its own goroutine.
func (e *Engine) Run(ctx context.Context, questions []model.Question) {
	e.start(ctx, questions)
	if e.state.Status == model.MatchFinished {
		close(e.done)
		return
	}
	for {
		select {
		case cmd := <-e.cmds:
			err := e.handle(ctx, cmd)
			if cmd.reply != nil {
				cmd.reply <- err
			}
			if cmd.kind == cmdStop {
				return
			}
			if e.state.Status == model.MatchFinished {
				close(e.done)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// Done is closed once the engine reaches MatchFinished.
func (e *Engine) Done() <-chan struct{} { return e.done }

// SubmitAnswer enqueues a graded-answer command and waits for it to be
// processed (spec §4.5 per-question lifecycle).
func (e *Engine) SubmitAnswer(ctx context.Context, userID, questionID string, questionIndex, chosenIndex, answerTimeMs int) error {
	return e.send(ctx, command{kind: cmdAnswer, userID: userID, questionIndex: questionIndex, chosenIndex: chosenIndex, answerTimeMs: answerTimeMs})
}

// Disconnect notifies the engine that userID's socket dropped mid-game
// (spec §4.7: unconditional loss for the disconnecting player).
func (e *Engine) Disconnect(ctx context.Context, userID string) error {
	return e.send(ctx, command{kind: cmdDisconnect, userID: userID})
}

// Reconnect notifies the engine that userID re-attached while the match
// is still waiting (spec §4.7 / §9 "no replay, only attachment during
// waiting"). In any other phase it returns INVALID_REQUEST and no notice
// is sent.
func (e *Engine) Reconnect(ctx context.Context, userID string) error {
	return e.send(ctx, command{kind: cmdReconnect, userID: userID})
}

// Stop forces the actor loop to exit without transitioning to finished;
// used only for process shutdown.
func (e *Engine) Stop(ctx context.Context) {
	_ = e.send(ctx, command{kind: cmdStop})
}

func (e *Engine) send(ctx context.Context, cmd command) error {
	cmd.reply = make(chan error, 1)
	select {
	case e.cmds <- cmd:
	case <-e.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-e.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) start(ctx context.Context, questions []model.Question) {
	if len(questions) == 0 {
		e.finish(ctx, "", "", model.ReasonInsufficientQ)
		return
	}

	e.state.Questions = questions
	e.state.Status = model.MatchPlaying
	e.state.StartedAt = e.clock.Now()

	e.notifier.GameStarted(ctx, e.state, e.state.StartedAt)
	e.notifier.GameQuestionsAll(ctx, e.state)

	e.scheduleQuestion(ctx)
}

func (e *Engine) scheduleQuestion(ctx context.Context) {
	e.state.QuestionStartedAt = e.clock.Now()
	deadline := time.Duration(e.state.Settings.TimePerQuestionSec)*time.Second + timeoutGrace
	forIndex := e.state.CurrentIndex

	e.currentTimer = e.clock.AfterFunc(deadline, func() {
		_ = e.send(context.Background(), command{kind: cmdTimeout, forIndex: forIndex})
	})
}

func (e *Engine) handle(ctx context.Context, cmd command) error {
	switch cmd.kind {
	case cmdAnswer:
		return e.handleAnswer(ctx, cmd)
	case cmdTimeout:
		e.handleTimeout(ctx, cmd.forIndex)
		return nil
	case cmdDisconnect:
		e.handleDisconnect(ctx, cmd.userID)
		return nil
	case cmdReconnect:
		if e.state.Status != model.MatchWaiting {
			return apperr.New(apperr.CodeInvalidRequest, "reconnect is only supported while the match is waiting")
		}
		e.notifier.GamePlayerReconnected(ctx, e.state, cmd.userID)
		return nil
	case cmdAdvance:
		if cmd.forIndex == e.state.CurrentIndex {
			e.scheduleQuestion(ctx)
		}
		return nil
	case cmdStop:
		return nil
	default:
		return nil
	}
}

func (e *Engine) handleAnswer(ctx context.Context, cmd command) error {
	if e.state.Status != model.MatchPlaying {
		return nil
	}
	if cmd.questionIndex != e.state.CurrentIndex {
		// Stale submission for an already-advanced question; ignore.
		return nil
	}
	if e.state.HasAnswered(cmd.userID) {
		// Duplicate submission for (match,user,index): silently ignored
		// to preserve I5.
		return nil
	}

	question, ok := e.state.CurrentQuestion()
	if !ok {
		return nil
	}

	correct := cmd.chosenIndex == question.CorrectIndex
	points := displayPoints(correct, cmd.answerTimeMs, e.state.Settings.TimePerQuestionSec)

	e.state.AnswersLog = append(e.state.AnswersLog, model.AnswerRecord{
		MatchID:       e.state.ID,
		UserID:        cmd.userID,
		QuestionIndex: cmd.questionIndex,
		ChosenIndex:   cmd.chosenIndex,
		Correct:       correct,
		AnswerTimeMs:  cmd.answerTimeMs,
		Points:        points,
	})

	// Damage is symmetric with the timeout rule: a wrong answer costs its
	// own answerer 10 HP. A correct answer never applies damage directly
	// — it only keeps its answerer's opponent from gaining ground, since
	// the opponent's own mistakes are what cost them health (spec §4.5
	// step 4, reconciled against the worked S1 example).
	if !correct {
		e.state.ApplyDamage(cmd.userID, e.cfg.DamagePerAnswer)
	}

	e.notifier.GameAnswerReceived(ctx, e.state, cmd.userID, question.CorrectIndex, correct, points)
	e.notifier.GameOpponentAnswered(ctx, e.state, cmd.userID, correct)
	e.notifier.GameBattleUpdate(ctx, e.state)

	if e.state.HealthDepleted() {
		e.endByHealth(ctx)
		return nil
	}

	bothAnswered := e.state.MarkAnswered(cmd.userID)
	if bothAnswered {
		e.advanceOrFinish(ctx)
	}
	return nil
}

func (e *Engine) handleTimeout(ctx context.Context, forIndex int) {
	if e.state.Status != model.MatchPlaying || forIndex != e.state.CurrentIndex {
		return
	}

	question, ok := e.state.CurrentQuestion()
	if !ok {
		return
	}

	damaged := []string{e.state.PlayerA, e.state.PlayerB}
	e.state.ApplyDamage(e.state.PlayerA, e.cfg.DamageOnTimeout)
	e.state.ApplyDamage(e.state.PlayerB, e.cfg.DamageOnTimeout)

	e.notifier.GameQuestionTimeout(ctx, e.state, question.CorrectIndex, damaged, e.cfg.DamageOnTimeout)

	if e.state.HealthDepleted() {
		e.endByHealth(ctx)
		return
	}

	e.advanceOrFinish(ctx)
}

func (e *Engine) handleDisconnect(ctx context.Context, userID string) {
	if e.state.Status == model.MatchFinished {
		return
	}
	opponent := e.state.Opponent(userID)
	e.notifier.GamePlayerDisconnected(ctx, e.state, userID)

	if e.currentTimer != nil {
		e.currentTimer.Stop()
	}
	e.finish(ctx, opponent, userID, model.ReasonDisconnected)
}

func (e *Engine) endByHealth(ctx context.Context) {
	if e.currentTimer != nil {
		e.currentTimer.Stop()
	}
	winner, loser := e.healthWinner()
	e.finish(ctx, winner, loser, model.ReasonHealthDepleted)
}

func (e *Engine) healthWinner() (winner, loser string) {
	if e.state.HealthA >= e.state.HealthB {
		return e.state.PlayerA, e.state.PlayerB
	}
	return e.state.PlayerB, e.state.PlayerA
}

// advanceOrFinish moves to the next question, or finishes the match if
// that was the last one (spec §4.5 end-of-game determination,
// all_questions_answered branch).
func (e *Engine) advanceOrFinish(ctx context.Context) {
	if e.currentTimer != nil {
		e.currentTimer.Stop()
	}

	if e.state.CurrentIndex+1 >= len(e.state.Questions) {
		winner, loser := e.aggregateWinner()
		e.finish(ctx, winner, loser, model.ReasonAllAnswered)
		return
	}

	e.state.AdvanceQuestion()
	nextIndex := e.state.CurrentIndex

	// The 3s inter-question delay is modeled as a deferred command rather
	// than blocking the actor loop, so other commands (e.g. a disconnect)
	// are still processed promptly during the pause.
	e.clock.AfterFunc(interQuestionDelay, func() {
		_ = e.send(context.Background(), command{kind: cmdAdvance, forIndex: nextIndex})
	})
}

// aggregateWinner applies the all_questions_answered tie-break ladder:
// higher correct-count, then higher summed display points, then player A
// (spec §4.5).
func (e *Engine) aggregateWinner() (winner, loser string) {
	correctA := e.state.CorrectCount(e.state.PlayerA)
	correctB := e.state.CorrectCount(e.state.PlayerB)
	if correctA != correctB {
		if correctA > correctB {
			return e.state.PlayerA, e.state.PlayerB
		}
		return e.state.PlayerB, e.state.PlayerA
	}

	pointsA := e.state.PointsSum(e.state.PlayerA)
	pointsB := e.state.PointsSum(e.state.PlayerB)
	if pointsA >= pointsB {
		return e.state.PlayerA, e.state.PlayerB
	}
	return e.state.PlayerB, e.state.PlayerA
}

func (e *Engine) finish(ctx context.Context, winner, loser string, reason model.EndReason) {
	if !e.state.Finish(winner, loser, reason, e.clock.Now()) {
		return
	}
	if e.onFinish != nil {
		e.onFinish(ctx, e.state)
	}
}

// displayPoints computes per-answer telemetry points (spec §4.5
// "Scoring-for-display"): zero when incorrect, otherwise
// round(100 * (1 + remaining/timeLimit)).
func displayPoints(correct bool, answerTimeMs, timeLimitSec int) int {
	if !correct || timeLimitSec <= 0 {
		return 0
	}
	timeLimitMs := float64(timeLimitSec) * 1000
	remaining := timeLimitMs - float64(answerTimeMs)
	if remaining < 0 {
		remaining = 0
	}
	return int(math.Round(100 * (1 + remaining/timeLimitMs)))
}

// shuffle returns a uniformly-random permutation of questions with no
// duplicates (spec §4.5 Start).
func shuffle(questions []model.Question) []model.Question {
	out := make([]model.Question, len(questions))
	copy(out, questions)
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
