package wire

import "time"

// AuthConnectedPayload acks a successful authentication.
type AuthConnectedPayload struct {
	SessionID   string `json:"sessionId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

// ConnectionPongPayload answers a connection.ping.
type ConnectionPongPayload struct {
	ServerTime time.Time `json:"serverTime"`
}

// ConnectionReconnectedPayload confirms a socket re-attached to a live
// waiting match (spec §4.7).
type ConnectionReconnectedPayload struct {
	MatchID string `json:"matchId"`
}

// ConnectionDisconnectPayload is sent to an evicted or force-closed
// session (spec §4.1 duplicate login, §4.7).
type ConnectionDisconnectPayload struct {
	Reason string `json:"reason"`
}

// MatchmakingSearchingPayload acks an enqueue (spec §4.3).
type MatchmakingSearchingPayload struct {
	PlayersInQueue    int `json:"playersInQueue"`
	EstimatedWaitTime int `json:"estimatedWaitTime"`
}

// MatchmakingCancelledPayload acks a matchmaking.cancel.
type MatchmakingCancelledPayload struct {
	MatchID string `json:"matchId,omitempty"`
}

// MatchmakingConfirmRequestPayload invites both paired players to confirm.
type MatchmakingConfirmRequestPayload struct {
	MatchID         string        `json:"matchId"`
	OpponentUserID  string        `json:"opponentUserId"`
	Settings        MatchSettings `json:"settings"`
	DeadlineSeconds int           `json:"deadlineSeconds"`
}

// MatchmakingConfirmStatusPayload reports the outcome of the two-phase
// handshake (spec §4.3).
type MatchmakingConfirmStatusPayload struct {
	MatchID string `json:"matchId"`
	Status  string `json:"status"`
}

// MatchSettings is the wire shape of model.MatchSettings.
type MatchSettings struct {
	Mode               string `json:"mode"`
	Difficulty         string `json:"difficulty"`
	Category           string `json:"category"`
	TotalQuestions     int    `json:"totalQuestions"`
	TimePerQuestionSec int    `json:"timePerQuestionSec"`
}

// LobbyCreatedPayload acks lobby creation with its join code.
type LobbyCreatedPayload struct {
	LobbyID string        `json:"lobbyId"`
	Code    string        `json:"code"`
	Host    LobbyMember   `json:"host"`
	Members []LobbyMember `json:"members"`
}

// LobbyMember is the wire shape of model.LobbyMember.
type LobbyMember struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	IsHost      bool   `json:"isHost"`
	IsReady     bool   `json:"isReady"`
}

// LobbyPlayerJoinedPayload broadcasts a new member to the lobby.
type LobbyPlayerJoinedPayload struct {
	LobbyID string        `json:"lobbyId"`
	Member  LobbyMember   `json:"member"`
	Members []LobbyMember `json:"members"`
}

// LobbyPlayerReadyPayload broadcasts a ready-state toggle.
type LobbyPlayerReadyPayload struct {
	LobbyID string `json:"lobbyId"`
	UserID  string `json:"userId"`
	Ready   bool   `json:"ready"`
}

// LobbyGameStartingPayload announces the match created from a lobby.
type LobbyGameStartingPayload struct {
	LobbyID string `json:"lobbyId"`
	MatchID string `json:"matchId"`
}

// LobbyPlayerLeftPayload broadcasts a departure, possibly with a host
// transfer or lobby close (spec §4.4).
type LobbyPlayerLeftPayload struct {
	LobbyID    string        `json:"lobbyId"`
	UserID     string        `json:"userId"`
	NewHostID  string        `json:"newHostId,omitempty"`
	Closed     bool          `json:"closed"`
	Members    []LobbyMember `json:"members,omitempty"`
}

// LobbyPlayerKickedPayload is sent to the kicked member.
type LobbyPlayerKickedPayload struct {
	LobbyID string `json:"lobbyId"`
}

// LobbySummary is one row of a lobby.list.data snapshot.
type LobbySummary struct {
	LobbyID      string `json:"lobbyId"`
	Code         string `json:"code"`
	HostName     string `json:"hostName"`
	MemberCount  int    `json:"memberCount"`
	MaxPlayers   int    `json:"maxPlayers"`
	Difficulty   string `json:"difficulty"`
	Category     string `json:"category"`
}

// LobbyListDataPayload answers a lobby.list.sync.
type LobbyListDataPayload struct {
	Lobbies []LobbySummary `json:"lobbies"`
}

// PlayerRef identifies a match participant on the wire.
type PlayerRef struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

// GameStartedPayload begins a match (spec §4.5).
type GameStartedPayload struct {
	MatchID    string      `json:"matchId"`
	Players    []PlayerRef `json:"players"`
	GameState  GameState   `json:"gameState"`
	ServerTime time.Time   `json:"serverTime"`
}

// GameState is the client-facing snapshot of a match in progress.
type GameState struct {
	CurrentIndex   int `json:"currentIndex"`
	TotalQuestions int `json:"totalQuestions"`
	HealthA        int `json:"healthA"`
	HealthB        int `json:"healthB"`
}

// WireQuestion is a question without its correct index (spec §4.5).
type WireQuestion struct {
	ID      string   `json:"questionId"`
	Index   int      `json:"index"`
	Text    string   `json:"text"`
	Choices []string `json:"choices"`
}

// GameQuestionsAllPayload is the full question sequence, sent once at
// match start so clients can render locally.
type GameQuestionsAllPayload struct {
	MatchID   string         `json:"matchId"`
	Questions []WireQuestion `json:"questions"`
}

// GameAnswerReceivedPayload is sent only to the answerer (spec §4.5 step 5).
type GameAnswerReceivedPayload struct {
	QuestionIndex     int  `json:"questionIndex"`
	CorrectAnswerIndex int `json:"correctAnswerIndex"`
	Correct           bool `json:"correct"`
	Points            int  `json:"points"`
	PlayerHealth      int  `json:"playerHealth"`
	OpponentHealth    int  `json:"opponentHealth"`
}

// GameOpponentAnsweredPayload is sent only to the opponent (spec §4.5 step 5).
type GameOpponentAnsweredPayload struct {
	QuestionIndex int    `json:"questionIndex"`
	Correct       bool   `json:"correct"`
	Animation     string `json:"animation"`
}

// GameBattleUpdatePayload broadcasts the post-answer health snapshot.
type GameBattleUpdatePayload struct {
	QuestionIndex int `json:"questionIndex"`
	HealthA       int `json:"healthA"`
	HealthB       int `json:"healthB"`
}

// TimeoutPlayer is one player's timeout outcome.
type TimeoutPlayer struct {
	UserID     string `json:"userId"`
	TookDamage int    `json:"tookDamage"`
	Health     int    `json:"health"`
}

// GameQuestionTimeoutPayload broadcasts a missed-deadline round (spec §4.5).
type GameQuestionTimeoutPayload struct {
	QuestionIndex      int             `json:"questionIndex"`
	CorrectAnswerIndex int             `json:"correctAnswerIndex"`
	Players            []TimeoutPlayer `json:"players"`
}

// GamePlayerDisconnectedPayload is sent to the opponent of a dropped
// socket, before game.over (spec §4.7).
type GamePlayerDisconnectedPayload struct {
	UserID  string `json:"userId"`
	AutoWin bool   `json:"autoWin"`
}

// GamePlayerReconnectedPayload is sent to the opponent when a reconnect
// attaches during the waiting phase.
type GamePlayerReconnectedPayload struct {
	UserID string `json:"userId"`
}

// Rewards is the reward table output of settlement (spec §4.6 step 3).
type Rewards struct {
	Points int `json:"points"`
	XP     int `json:"xp"`
	Coins  int `json:"coins"`
}

// GameOverPayload is the terminal broadcast of a finished match
// (spec §4.6 step 6).
type GameOverPayload struct {
	MatchID       string      `json:"matchId"`
	Winner        string      `json:"winner"`
	Loser         string      `json:"loser"`
	Reason        string      `json:"reason"`
	FinalHealths  GameState   `json:"finalHealths"`
	Rewards       Rewards     `json:"rewards"`
	LoserRewards  Rewards     `json:"loserRewards"`
	GameHistory   []AnswerLog `json:"gameHistory"`
}

// AnswerLog is one logged answer in the post-game history.
type AnswerLog struct {
	UserID        string `json:"userId"`
	QuestionIndex int    `json:"questionIndex"`
	Correct       bool   `json:"correct"`
	AnswerTimeMs  int    `json:"answerTimeMs"`
}

// RankedMMRChangedPayload reports a rating update (spec §4.6 step 4).
type RankedMMRChangedPayload struct {
	Old       int    `json:"old"`
	New       int    `json:"new"`
	Change    int    `json:"change"`
	OldTier   string `json:"oldTier"`
	NewTier   string `json:"newTier"`
	Promoted  bool   `json:"promoted"`
	Demoted   bool   `json:"demoted"`
}
