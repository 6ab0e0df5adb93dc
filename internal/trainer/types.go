package trainer

import (
	"strings"
	"time"

	"github.com/park285/mystic-pawn/internal/board"
)

// GameMode selects how the player answers.
type GameMode string

const (
	ModeVisual      GameMode = "visual"
	ModeCoordinates GameMode = "coordinates"
)

func ParseGameMode(s string) (GameMode, bool) {
	switch GameMode(strings.TrimSpace(s)) {
	case ModeVisual:
		return ModeVisual, true
	case ModeCoordinates:
		return ModeCoordinates, true
	}
	return "", false
}

// QueenPosition governs board orientation for each round.
type QueenPosition string

const (
	QueenWhiteOnBottom QueenPosition = "whiteOnBottom"
	QueenBlackOnBottom QueenPosition = "blackOnBottom"
	QueenRandom        QueenPosition = "random"
)

func ParseQueenPosition(s string) (QueenPosition, bool) {
	switch QueenPosition(strings.TrimSpace(s)) {
	case QueenWhiteOnBottom:
		return QueenWhiteOnBottom, true
	case QueenBlackOnBottom:
		return QueenBlackOnBottom, true
	case QueenRandom:
		return QueenRandom, true
	}
	return "", false
}

// Theme names a board palette. Colors live in the render package.
type Theme string

const (
	ThemeBlackWhite      Theme = "blackWhite"
	ThemeClassicWood     Theme = "classicWood"
	ThemeTournamentGreen Theme = "tournamentGreen"
	ThemeOceanBlue       Theme = "oceanBlue"
)

// Themes lists the selectable themes in menu order.
var Themes = []Theme{ThemeBlackWhite, ThemeClassicWood, ThemeTournamentGreen, ThemeOceanBlue}

func ParseTheme(s string) (Theme, bool) {
	s = strings.TrimSpace(s)
	for _, t := range Themes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// DurationPresets are the session lengths offered to the player, in seconds.
var DurationPresets = []int{20, 40, 60}

// Phase is the derived lifecycle state of a session.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseCountingDown Phase = "counting_down"
	PhaseActive       Phase = "active"
	PhaseEnded        Phase = "ended"
)

type Feedback string

const (
	FeedbackNone      Feedback = ""
	FeedbackCorrect   Feedback = "correct"
	FeedbackIncorrect Feedback = "incorrect"
)

// ScoreRecord is one saved high score.
type ScoreRecord struct {
	ID              string    `json:"id"`
	PlayerName      string    `json:"player_name"`
	Score           int       `json:"score"`
	Timestamp       time.Time `json:"timestamp"`
	DurationSeconds int       `json:"duration_seconds"`
	GameMode        string    `json:"game_mode"`
}

// Settings is the persisted preference bundle.
type Settings struct {
	SpeechEnabled  bool          `json:"speech_enabled"`
	UseFemaleVoice bool          `json:"use_female_voice"`
	SoundEnabled   bool          `json:"sound_enabled"`
	Theme          Theme         `json:"theme"`
	GameMode       GameMode      `json:"game_mode"`
	QueenPosition  QueenPosition `json:"queen_position"`
}

func DefaultSettings() Settings {
	return Settings{
		SpeechEnabled:  true,
		UseFemaleVoice: true,
		SoundEnabled:   true,
		Theme:          ThemeBlackWhite,
		GameMode:       ModeVisual,
		QueenPosition:  QueenRandom,
	}
}

// Snapshot is the read surface published to the presentation layer.
type Snapshot struct {
	Phase           Phase          `json:"phase"`
	Target          board.Position `json:"target"`
	TargetNotation  string         `json:"target_notation"`
	DisplayNotation string         `json:"display_notation"`
	Score           int            `json:"score"`
	TimeRemaining   int            `json:"time_remaining"`
	SessionDuration int            `json:"session_duration"`
	IsActive        bool           `json:"is_active"`
	IsCountingDown  bool           `json:"is_counting_down"`
	CountdownValue  int            `json:"countdown_value"`
	HasEnded        bool           `json:"has_ended"`
	WhiteQueenOnTop bool           `json:"white_queen_on_top"`
	Feedback        Feedback       `json:"feedback"`
	Message         string         `json:"message"`
	UserInput       string         `json:"user_input"`
	// LastAnswer is the square last submitted, in the displayed frame, while feedback is up.
	LastAnswer        *board.Position `json:"last_answer,omitempty"`
	GameOverMessage   string          `json:"game_over_message,omitempty"`
	NeedsPlayerName   bool            `json:"needs_player_name"`
	NamePrompt        string          `json:"name_prompt,omitempty"`
	PlayerNamePrefill string          `json:"player_name_prefill"`
	Settings          Settings        `json:"settings"`
	HighScores        []ScoreRecord   `json:"high_scores"`
}
