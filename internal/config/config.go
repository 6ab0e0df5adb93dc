package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	HTTPAddr string
	WSAddr   string

	RedisURL       string
	DatabaseURL    string
	PrefsNamespace string

	SpeechURL   string
	MessagesDir string

	DefaultDuration int
	FeedbackDelay   time.Duration
	StoreTimeout    time.Duration
	BoardSquareSize int
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:        ":8080",
		WSAddr:          ":8081",
		PrefsNamespace:  "mysticpawn",
		DefaultDuration: 40,
		FeedbackDelay:   200 * time.Millisecond,
		StoreTimeout:    2 * time.Second,
		BoardSquareSize: 64,
	}

	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("WS_ADDR")); v != "" {
		cfg.WSAddr = v
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if v := strings.TrimSpace(os.Getenv("PREFS_NAMESPACE")); v != "" {
		cfg.PrefsNamespace = v
	}

	cfg.SpeechURL = strings.TrimSpace(os.Getenv("SPEECH_URL"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	if err := positiveInt("DEFAULT_DURATION", &cfg.DefaultDuration); err != nil {
		return nil, err
	}
	if err := positiveMillis("FEEDBACK_DELAY_MS", &cfg.FeedbackDelay); err != nil {
		return nil, err
	}
	if err := positiveMillis("STORE_TIMEOUT_MS", &cfg.StoreTimeout); err != nil {
		return nil, err
	}
	if err := positiveInt("BOARD_SQUARE_SIZE", &cfg.BoardSquareSize); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == cfg.WSAddr {
		return nil, errors.New("HTTP_ADDR and WS_ADDR must differ")
	}

	return cfg, nil
}

// positiveInt overrides dst from env when set. Unset keeps the default.
func positiveInt(key string, dst *int) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if n <= 0 {
		return fmt.Errorf("%s must be positive, got %d", key, n)
	}
	*dst = n
	return nil
}

func positiveMillis(key string, dst *time.Duration) error {
	ms := int(*dst / time.Millisecond)
	if err := positiveInt(key, &ms); err != nil {
		return err
	}
	*dst = time.Duration(ms) * time.Millisecond
	return nil
}
