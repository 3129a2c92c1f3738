package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	DatabaseURL      string
	RedisURL         string
	TelegramBotToken string
	TelegramChatID   int64
	APIKey           string

	OpenAIAPIKey string
	OpenAIModel  string

	EvalThresholds   []float64
	EvalIntervalSecs int
	ScoreBatchLimit  int

	TrainHourUTC    int
	MinTrainSamples int
	HoldoutFraction float64
	ScorePollSecs   int
}

func Load() *Config {
	cfg := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		APIKey:           os.Getenv("API_KEY"),
	}

	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}
	if cfg.TelegramBotToken == "" {
		log.Println("Warning: TELEGRAM_BOT_TOKEN not set")
	}
	if cfg.APIKey == "" {
		log.Println("Warning: API_KEY not set, trigger endpoints are unauthenticated")
	}

	if v := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.TelegramChatID = n
		} else {
			log.Printf("Warning: invalid TELEGRAM_CHAT_ID=%q, notifications disabled", v)
		}
	}

	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	if cfg.OpenAIAPIKey == "" {
		log.Println("Warning: OPENAI_API_KEY not set, advisor will be disabled")
	}

	cfg.OpenAIModel = strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-4o-mini"
	}

	cfg.EvalThresholds = parseThresholds(os.Getenv("EVAL_THRESHOLDS"))

	cfg.EvalIntervalSecs = 3600
	if v := strings.TrimSpace(os.Getenv("EVAL_INTERVAL_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EvalIntervalSecs = n
		}
	}

	cfg.ScoreBatchLimit = 500
	if v := strings.TrimSpace(os.Getenv("SCORE_BATCH_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ScoreBatchLimit = n
		}
	}

	cfg.ScorePollSecs = 900
	if v := strings.TrimSpace(os.Getenv("SCORE_POLL_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ScorePollSecs = n
		}
	}

	cfg.TrainHourUTC = 0
	if v := strings.TrimSpace(os.Getenv("TRAIN_HOUR_UTC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= 23 {
			cfg.TrainHourUTC = n
		}
	}

	cfg.MinTrainSamples = 300
	if v := strings.TrimSpace(os.Getenv("TRAIN_MIN_SAMPLES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MinTrainSamples = n
		}
	}

	cfg.HoldoutFraction = 0.3
	if v := strings.TrimSpace(os.Getenv("TRAIN_HOLDOUT_FRACTION")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 && n < 1 {
			cfg.HoldoutFraction = n
		}
	}

	return cfg
}

// parseThresholds reads a comma-separated list of cuts in [0,1]. Any bad
// entry invalidates the whole list so a typo cannot silently shrink the
// sweep.
func parseThresholds(raw string) []float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || n < 0 || n > 1 {
			log.Printf("Warning: invalid EVAL_THRESHOLDS entry %q, using defaults", p)
			return nil
		}
		out = append(out, n)
	}
	return out
}
