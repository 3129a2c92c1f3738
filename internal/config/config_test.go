package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("EVAL_THRESHOLDS", "")
	t.Setenv("EVAL_INTERVAL_SECS", "")
	t.Setenv("TRAIN_HOUR_UTC", "")

	cfg := Load()
	if cfg.RedisURL != "localhost:6379" {
		t.Fatalf("expected default redis url, got %s", cfg.RedisURL)
	}
	if cfg.EvalThresholds != nil {
		t.Fatalf("expected nil thresholds for defaults, got %v", cfg.EvalThresholds)
	}
	if cfg.EvalIntervalSecs != 3600 {
		t.Fatalf("expected default eval interval 3600, got %d", cfg.EvalIntervalSecs)
	}
	if cfg.ScoreBatchLimit != 500 {
		t.Fatalf("expected default batch limit 500, got %d", cfg.ScoreBatchLimit)
	}
	if cfg.MinTrainSamples != 300 {
		t.Fatalf("expected default min samples 300, got %d", cfg.MinTrainSamples)
	}
	if cfg.HoldoutFraction != 0.3 {
		t.Fatalf("expected default holdout fraction 0.3, got %f", cfg.HoldoutFraction)
	}
	if cfg.OpenAIModel != "gpt-4o-mini" {
		t.Fatalf("expected default model, got %s", cfg.OpenAIModel)
	}
}

func TestLoadWithEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis:6379")
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TELEGRAM_CHAT_ID", "1234")
	t.Setenv("API_KEY", "secret")
	t.Setenv("EVAL_INTERVAL_SECS", "600")
	t.Setenv("TRAIN_HOUR_UTC", "5")

	cfg := Load()
	if cfg.DatabaseURL != "postgres://example" || cfg.RedisURL != "redis:6379" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.TelegramChatID != 1234 {
		t.Fatalf("expected chat id 1234, got %d", cfg.TelegramChatID)
	}
	if cfg.EvalIntervalSecs != 600 {
		t.Fatalf("expected eval interval 600, got %d", cfg.EvalIntervalSecs)
	}
	if cfg.TrainHourUTC != 5 {
		t.Fatalf("expected train hour 5, got %d", cfg.TrainHourUTC)
	}

	t.Setenv("EVAL_INTERVAL_SECS", "bad")
	t.Setenv("TRAIN_HOUR_UTC", "25")
	cfg = Load()
	if cfg.EvalIntervalSecs != 3600 {
		t.Fatalf("invalid interval should fall back to default, got %d", cfg.EvalIntervalSecs)
	}
	if cfg.TrainHourUTC != 0 {
		t.Fatalf("out-of-range hour should fall back to 0, got %d", cfg.TrainHourUTC)
	}
}

func TestParseThresholds(t *testing.T) {
	got := parseThresholds("0.1, 0.5,0.9")
	if len(got) != 3 || got[0] != 0.1 || got[1] != 0.5 || got[2] != 0.9 {
		t.Fatalf("unexpected thresholds %v", got)
	}
}

func TestParseThresholdsRejectsBadEntry(t *testing.T) {
	if got := parseThresholds("0.1,nope,0.9"); got != nil {
		t.Fatalf("expected nil for unparsable entry, got %v", got)
	}
	if got := parseThresholds("0.1,1.5"); got != nil {
		t.Fatalf("expected nil for out-of-range entry, got %v", got)
	}
	if got := parseThresholds(""); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}
