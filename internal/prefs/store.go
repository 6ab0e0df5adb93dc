package prefs

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
)

// Keys of the persisted settings.
const (
	KeySpeechEnabled  = "speech-enabled"
	KeyFemaleVoice    = "use-female-voice"
	KeyTheme          = "selected-theme"
	KeySoundEnabled   = "sound-enabled"
	KeyGameMode       = "selected-game-mode"
	KeyQueenPosition  = "selected-queen-position"
	KeyHighScores     = "high-scores"
	KeyLastPlayerName = "last-player-name"
)

// Store is a flat string key-value store. A missing key is reported with ok=false, not an error.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Bool reads a boolean, returning def when the key is missing or unparsable.
func Bool(ctx context.Context, s Store, key string, def bool) bool {
	v, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

// String reads a string, returning def when the key is missing.
func String(ctx context.Context, s Store, key, def string) string {
	v, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return def
	}
	return v
}

// JSON decodes the value stored under key into out. ok is false when the key is missing.
func JSON(ctx context.Context, s Store, key string, out any) (bool, error) {
	v, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(v), out); err != nil {
		return true, err
	}
	return true, nil
}

func SetBool(ctx context.Context, s Store, key string, v bool) error {
	return s.Set(ctx, key, strconv.FormatBool(v))
}

func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, string(raw))
}
