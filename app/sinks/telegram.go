package sinks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Fuyucch1/Vinted-Notifications/app/database"
	"github.com/Fuyucch1/Vinted-Notifications/app/pipeline"
)

var _ pipeline.Sink = (*TelegramSink)(nil)

const telegramQueueCapacity = 200

// TelegramSink posts each notification to a Telegram chat through the Bot
// API. Delivery is at most once: a failed send is logged and the
// notification is gone.
type TelegramSink struct {
	queue       *Queue
	settingRepo database.SettingRepository
	httpClient  *http.Client
	apiBase     string
}

func NewTelegramSink(settingRepo database.SettingRepository) *TelegramSink {
	return &TelegramSink{
		queue:       NewQueue(telegramQueueCapacity),
		settingRepo: settingRepo,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		apiBase:     "https://api.telegram.org",
	}
}

func (s *TelegramSink) Name() string {
	return "telegram"
}

func (s *TelegramSink) Enqueue(n pipeline.Notification) bool {
	return s.queue.Enqueue(n)
}

// Run consumes the queue until the context ends.
func (s *TelegramSink) Run(ctx context.Context) {
	for {
		n, err := s.queue.Dequeue(ctx)
		if err != nil {
			return
		}

		if err := s.send(ctx, n); err != nil {
			slog.Error("Failed to deliver Telegram notification", "title", n.Title, "error", err)
		}
	}
}

func (s *TelegramSink) send(ctx context.Context, n pipeline.Notification) error {
	// Token and chat are read per delivery so a settings change applies to
	// the next message without a restart.
	token, err := s.settingRepo.Get("telegram_token")
	if err != nil || token == "" {
		return fmt.Errorf("telegram token is not configured")
	}
	chatID, err := s.settingRepo.Get("telegram_chat_id")
	if err != nil || chatID == "" {
		return fmt.Errorf("telegram chat id is not configured")
	}

	payload := map[string]any{
		"chat_id":    chatID,
		"text":       FormatMessage(n),
		"parse_mode": "HTML",
		"reply_markup": map[string]any{
			"inline_keyboard": [][]map[string]string{
				{{"text": "Open Vinted", "url": n.URL}},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode message payload: %w", err)
	}

	requestURL := fmt.Sprintf("%s/bot%s/sendMessage", s.apiBase, token)
	req, err := http.NewRequestWithContext(ctx, "POST", requestURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram API returned status %d: %s", resp.StatusCode, detail)
	}

	return nil
}

// FormatMessage renders the notification text shared by the Telegram and
// RSS sinks. The trailing zero-width anchor makes Telegram unfurl the
// item photo under the message.
func FormatMessage(n pipeline.Notification) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "🆕 Title : %s\n", html.EscapeString(n.Title))
	fmt.Fprintf(&buf, "💶 Price : %s %s\n", html.EscapeString(n.Price), html.EscapeString(n.Currency))
	fmt.Fprintf(&buf, "🛍️ Brand : %s\n", html.EscapeString(n.Brand))
	if n.PhotoURL != "" {
		fmt.Fprintf(&buf, "<a href='%s'>&#8205;</a>\n", html.EscapeString(n.PhotoURL))
	}

	return buf.String()
}
