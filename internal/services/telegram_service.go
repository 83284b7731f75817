package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// TelegramService sends operator notifications to a Telegram chat.
type TelegramService struct {
	botToken    string
	adminChatID string
	apiBase     string
	httpClient  *http.Client
	log         *slog.Logger
}

// NewTelegramService creates a new TelegramService.
func NewTelegramService(botToken, adminChatID string, logger *slog.Logger) *TelegramService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TelegramService{
		botToken:    botToken,
		adminChatID: adminChatID,
		apiBase:     "https://api.telegram.org",
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		log:         logger,
	}
}

// WithAPIBase points the service at another Bot API host.
func (s *TelegramService) WithAPIBase(base string) *TelegramService {
	s.apiBase = strings.TrimRight(base, "/")
	return s
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends a message to specified chat.
func (s *TelegramService) SendMessage(ctx context.Context, chatID, text string) error {
	if s.botToken == "" {
		s.log.Debug("telegram bot token not configured")
		return nil
	}

	body, err := json.Marshal(telegramMessage{ChatID: chatID, Text: text, ParseMode: "HTML"})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiBase, s.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.log.Warn("telegram send failed", "err", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.log.Warn("telegram unexpected status", "status", resp.StatusCode)
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}
	return nil
}

// SendToAdmin sends a message to the admin chat.
func (s *TelegramService) SendToAdmin(ctx context.Context, text string) error {
	if s.adminChatID == "" {
		return nil
	}
	return s.SendMessage(ctx, s.adminChatID, text)
}

// PublishSyncCompleted reports aborted or partially failed runs to the admin
// chat. Clean runs are not announced.
func (s *TelegramService) PublishSyncCompleted(ctx context.Context, event SyncCompletedEvent) error {
	if !event.Aborted && event.ErrorCount == 0 {
		return nil
	}

	status := "⚠️ Sync finished with errors"
	if event.Aborted {
		status = "❌ Sync aborted"
	}

	message := fmt.Sprintf(`<b>%s</b>
<b>Kind:</b> %s
<b>Run:</b> %s
<b>Pages:</b> %d/%d
<b>Products:</b> %d (new %d, updated %d)
<b>Errors:</b> %d
<b>Duration:</b> %s`,
		status,
		html.EscapeString(event.Kind),
		html.EscapeString(event.RunID),
		event.PagesSucceeded,
		event.PagesAttempted,
		event.TotalProducts,
		event.NewCount,
		event.UpdatedCount,
		event.ErrorCount,
		event.FinishedAt.Sub(event.StartedAt).Round(time.Second),
	)
	return s.SendToAdmin(ctx, message)
}
