package bot

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"loanwatch/internal/domain"

	tele "gopkg.in/telebot.v3"
)

// ReportReader serves the latest threshold report for the /report command.
type ReportReader interface {
	LatestReport(ctx context.Context) (*domain.ThresholdReport, error)
}

// sender is the slice of tele.Bot that notifications need.
type sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// TelegramBot answers chat commands and pushes threshold-change alerts to
// the configured chat.
type TelegramBot struct {
	bot    sender
	chatID int64
}

// StartTelegramBot wires up the bot from TELEGRAM_BOT_TOKEN and
// TELEGRAM_CHAT_ID and starts long polling. Returns nil when the token is
// not set so callers can skip notification wiring.
func StartTelegramBot(reports ReportReader) *TelegramBot {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		log.Println("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil
	}

	var chatID int64
	if raw := os.Getenv("TELEGRAM_CHAT_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			log.Printf("Warning: invalid TELEGRAM_CHAT_ID %q, notifications disabled", raw)
		} else {
			chatID = id
		}
	}

	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		log.Fatalf("failed to create Telegram bot: %v", err)
	}

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/report", func(c tele.Context) error {
		report, err := reports.LatestReport(context.Background())
		if err != nil {
			return c.Send(fmt.Sprintf("Error fetching report: %v", err))
		}
		if report == nil {
			return c.Send("No evaluation run recorded yet.")
		}
		return c.Send(FormatReport(*report))
	})

	log.Println("Telegram bot started")
	go b.Start()

	return &TelegramBot{bot: b, chatID: chatID}
}

// NotifyThresholdChange pushes an alert when the recommended cuts moved
// between consecutive evaluation runs.
func (t *TelegramBot) NotifyThresholdChange(previous, current domain.ThresholdReport) {
	if t == nil || t.chatID == 0 {
		return
	}
	msg := fmt.Sprintf(
		"Threshold recommendation moved (model %s v%d)\nBy profit: %.2f -> %.2f\nBy accuracy: %.2f -> %.2f\nHoldout: %d loans",
		current.ModelKey, current.ModelVersion,
		previous.BestByProfit, current.BestByProfit,
		previous.BestByAccuracy, current.BestByAccuracy,
		current.SampleCount,
	)
	if _, err := t.bot.Send(tele.ChatID(t.chatID), msg); err != nil {
		log.Printf("failed to send threshold alert: %v", err)
	}
}

// FormatReport renders a threshold report for chat.
func FormatReport(report domain.ThresholdReport) string {
	header := fmt.Sprintf(
		"Threshold report (model %s v%d)\nHoldout: %d loans\nBest by accuracy: %.2f\nBest by profit: %.2f",
		report.ModelKey, report.ModelVersion, report.SampleCount,
		report.BestByAccuracy, report.BestByProfit,
	)
	best := bestResult(report)
	if best == nil {
		return header
	}
	return header + fmt.Sprintf(
		"\nAt %.2f: %d approved, accuracy %.1f%%, profit %.0f DM",
		best.Threshold, best.Approved, best.Accuracy*100, best.Profit,
	)
}

func bestResult(report domain.ThresholdReport) *domain.EvaluationResult {
	for i := range report.Results {
		if report.Results[i].Threshold == report.BestByProfit {
			return &report.Results[i]
		}
	}
	return nil
}
