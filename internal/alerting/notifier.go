package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Alert kinds.
const (
	KindIllness  = "illness"
	KindRecovery = "recovery"
)

// Notification carries the alert context.
type Notification struct {
	Athlete       string
	Day           time.Time
	Kind          string
	Severity      string
	Headline      string
	FinalModifier decimal.Decimal
	Recovery      string
	Illness       string
	Symptoms      []string
	Guidance      string
	Channels      []string
}

// Notifier defines alert delivery.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier pushes messages through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram notifier.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify sends the rendered text with sendMessage.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false")
		}
	}

	n.logger.Info().Time("day", note.Day).
		Str("kind", note.Kind).
		Str("severity", note.Severity).
		Msg("alert sent (telegram)")
	return nil
}

// LogNotifier writes alerts to the log. It serves the "log" channel and
// dry runs.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier constructs a LogNotifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "alert_log").Logger()}
}

// Notify logs the rendered alert.
func (n *LogNotifier) Notify(_ context.Context, note Notification) error {
	n.logger.Warn().
		Str("athlete", note.Athlete).
		Time("day", note.Day).
		Str("kind", note.Kind).
		Str("severity", note.Severity).
		Str("final_modifier", note.FinalModifier.StringFixed(2)).
		Strs("symptoms", note.Symptoms).
		Msg(note.Headline)
	return nil
}

// Fanout delivers a notification to every notifier and joins their errors.
type Fanout []Notifier

// Notify calls every notifier even when one fails.
func (f Fanout) Notify(ctx context.Context, note Notification) error {
	var failures []string
	for _, n := range f {
		if err := n.Notify(ctx, note); err != nil {
			failures = append(failures, err.Error())
		}
	}
	if len(failures) > 0 {
		return fmt.Errorf("notify: %s", strings.Join(failures, "; "))
	}
	return nil
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("[Coach Alert] %s\n", note.Headline))
	builder.WriteString(fmt.Sprintf("Athlete: %s\n", note.Athlete))
	builder.WriteString(fmt.Sprintf("Day: %s\n", note.Day.Format("Mon 2006-01-02")))
	builder.WriteString(fmt.Sprintf("Recovery: %s\n", note.Recovery))
	builder.WriteString(fmt.Sprintf("Illness risk: %s\n", note.Illness))
	builder.WriteString(fmt.Sprintf("Intensity: %s%% of plan\n", note.FinalModifier.Mul(decimal.NewFromInt(100)).StringFixed(0)))
	if len(note.Symptoms) > 0 {
		builder.WriteString("Markers:\n")
		for _, s := range note.Symptoms {
			builder.WriteString(fmt.Sprintf("- %s\n", s))
		}
	}
	if note.Guidance != "" {
		builder.WriteString(note.Guidance)
	}
	return builder.String()
}

var (
	_ Notifier = (*TelegramNotifier)(nil)
	_ Notifier = (*LogNotifier)(nil)
	_ Notifier = Fanout(nil)
)
