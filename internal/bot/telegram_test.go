package bot

import (
	"strings"
	"testing"

	"loanwatch/internal/domain"

	tele "gopkg.in/telebot.v3"
)

func TestStartTelegramBotSkipsWithoutToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	if b := StartTelegramBot(nil); b != nil {
		t.Fatal("expected nil bot without token")
	}
}

type stubSender struct {
	messages []string
	err      error
}

func (s *stubSender) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	if msg, ok := what.(string); ok {
		s.messages = append(s.messages, msg)
	}
	return nil, s.err
}

func TestNotifyThresholdChange(t *testing.T) {
	sender := &stubSender{}
	b := &TelegramBot{bot: sender, chatID: 42}

	previous := domain.ThresholdReport{BestByProfit: 0.5, BestByAccuracy: 0.5}
	current := domain.ThresholdReport{
		ModelKey:       domain.ModelKeyLogRegGood,
		ModelVersion:   3,
		SampleCount:    120,
		BestByProfit:   0.7,
		BestByAccuracy: 0.5,
	}
	b.NotifyThresholdChange(previous, current)

	if len(sender.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(sender.messages))
	}
	msg := sender.messages[0]
	if !strings.Contains(msg, "0.50 -> 0.70") {
		t.Fatalf("expected profit move in message, got %q", msg)
	}
	if !strings.Contains(msg, "logreg_good v3") {
		t.Fatalf("expected model identifier in message, got %q", msg)
	}
}

func TestNotifyThresholdChangeNoChatConfigured(t *testing.T) {
	sender := &stubSender{}
	b := &TelegramBot{bot: sender, chatID: 0}
	b.NotifyThresholdChange(domain.ThresholdReport{}, domain.ThresholdReport{})
	if len(sender.messages) != 0 {
		t.Fatal("expected no message without chat ID")
	}
}

func TestNotifyThresholdChangeNilBot(t *testing.T) {
	var b *TelegramBot
	// Must not panic.
	b.NotifyThresholdChange(domain.ThresholdReport{}, domain.ThresholdReport{})
}

func TestFormatReport(t *testing.T) {
	report := domain.ThresholdReport{
		ModelKey:       domain.ModelKeyLogRegGood,
		ModelVersion:   2,
		SampleCount:    300,
		BestByAccuracy: 0.5,
		BestByProfit:   0.7,
		Results: []domain.EvaluationResult{
			{Threshold: 0.5, Approved: 220, Accuracy: 0.74, Profit: 9000},
			{Threshold: 0.7, Approved: 150, Accuracy: 0.71, Profit: 12500},
		},
	}
	msg := FormatReport(report)
	if !strings.Contains(msg, "Best by profit: 0.70") {
		t.Fatalf("expected profit optimum, got %q", msg)
	}
	if !strings.Contains(msg, "At 0.70: 150 approved") {
		t.Fatalf("expected best-row detail, got %q", msg)
	}
	if !strings.Contains(msg, "profit 12500 DM") {
		t.Fatalf("expected profit figure, got %q", msg)
	}
}

func TestFormatReportWithoutResults(t *testing.T) {
	report := domain.ThresholdReport{BestByProfit: 0.6}
	msg := FormatReport(report)
	if strings.Contains(msg, "At 0.60") {
		t.Fatalf("did not expect best-row detail, got %q", msg)
	}
}
