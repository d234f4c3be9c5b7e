// Package notify delivers operator alerts. Sends are fire-and-forget:
// a failed notification is logged and dropped, never retried.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Notifier pushes one text line to an operator channel.
type Notifier interface {
	Notify(channelID, text string)
}

// Nop discards all notifications.
type Nop struct{}

func (Nop) Notify(string, string) {}

// Telegram posts messages through the bot sendMessage API.
type Telegram struct {
	token  string
	client *http.Client
	log    zerolog.Logger
}

func NewTelegram(botToken string, log zerolog.Logger) *Telegram {
	return &Telegram{
		token:  botToken,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}
}

// Notify sends text to the chat; failures are swallowed after a warn log.
func (t *Telegram) Notify(channelID, text string) {
	if t.token == "" || channelID == "" || text == "" {
		return
	}
	payload := map[string]string{"chat_id": channelID, "text": text}
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.token)
	resp, err := t.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.log.Warn().Err(err).Msg("notify failed")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		t.log.Warn().Int("status", resp.StatusCode).Msg("notify rejected")
	}
}
