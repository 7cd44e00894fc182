package telegram

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"exam_project/internal/models"
)

const (
	maxListedFailures = 10
	defaultTimeout    = 30 * time.Second
)

// Notifier sends the summary of a run to a single chat.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    *slog.Logger
}

// NewNotifier bounds every Bot API request by timeout (30s when zero).
func NewNotifier(token string, chatID int64, timeout time.Duration, log *slog.Logger) (*Notifier, error) {
	return NewNotifierWithEndpoint(token, tgbotapi.APIEndpoint, chatID, timeout, log)
}

// NewNotifierWithEndpoint allows pointing the bot at another Bot API server.
func NewNotifierWithEndpoint(token, endpoint string, chatID int64, timeout time.Duration, log *slog.Logger) (*Notifier, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	bot.Debug = false
	log.Debug("telegram bot authorized", slog.String("bot", bot.Self.UserName))

	return &Notifier{bot: bot, chatID: chatID, log: log}, nil
}

func (n *Notifier) Notify(summary models.Summary) error {
	msg := tgbotapi.NewMessage(n.chatID, FormatSummary(summary))
	msg.DisableWebPagePreview = true

	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// FormatSummary renders a run as a short plain text message.
func FormatSummary(s models.Summary) string {
	var b strings.Builder

	status := "✅"
	if s.Failed > 0 || s.PagesFailed > 0 {
		status = "⚠️"
	}

	fmt.Fprintf(&b, "%s %s: exam download finished\n", status, s.Resource)
	fmt.Fprintf(&b, "Pages: %d (failed %d)\n", s.Pages, s.PagesFailed)
	fmt.Fprintf(&b, "Downloaded: %d, skipped: %d, failed: %d\n", s.Downloaded, s.Skipped, s.Failed)
	if !s.StartedAt.IsZero() && !s.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "Duration: %s\n", s.FinishedAt.Sub(s.StartedAt).Round(time.Second))
	}

	for i, f := range s.Failures {
		if i == maxListedFailures {
			fmt.Fprintf(&b, "… and %d more\n", len(s.Failures)-maxListedFailures)
			break
		}
		fmt.Fprintf(&b, "• %s: %s\n", f.Path, f.Error)
	}

	return strings.TrimRight(b.String(), "\n")
}
