package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/ports"
)

const (
	defaultAPIBase = "https://api.telegram.org"

	// Bot API limit for the text of one message.
	maxMessageRunes = 4096
)

// ErrMisconfigured is returned when token or chat id is missing.
var ErrMisconfigured = errors.New("telegram notifier misconfigured")

// Notifier delivers scan digests to one Telegram chat. Digests longer
// than a single message are sent as several consecutive messages.
type Notifier struct {
	token   string
	chatID  string
	apiBase string
	client  *http.Client
	limiter *rate.Limiter
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier builds a notifier for the bot token and chat.
func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		token:   botToken,
		chatID:  chatID,
		apiBase: defaultAPIBase,
		client:  &http.Client{Timeout: 5 * time.Second},
		// Telegram throttles a chat to about one message per second.
		limiter: rate.NewLimiter(rate.Every(time.Second), 3),
	}
}

// WithAPIBase points the notifier at another Bot API host.
func (n *Notifier) WithAPIBase(base string) *Notifier {
	n.apiBase = strings.TrimRight(base, "/")
	return n
}

// PublishDigest sends digest, split on line boundaries where needed.
func (n *Notifier) PublishDigest(ctx context.Context, digest string) error {
	if n.token == "" || n.chatID == "" || n.client == nil {
		return ErrMisconfigured
	}

	parts := chunks(digest, maxMessageRunes)
	for i, part := range parts {
		if err := n.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("wait send slot: %w", err)
		}
		if err := n.send(ctx, part); err != nil {
			return fmt.Errorf("send part %d/%d: %w", i+1, len(parts), err)
		}
	}
	return nil
}

func (n *Notifier) send(ctx context.Context, text string) error {
	form := url.Values{
		"chat_id":                  {n.chatID},
		"text":                     {text},
		"disable_web_page_preview": {"true"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.apiBase+"/bot"+n.token+"/sendMessage", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("telegram rejected message: %s: %s", resp.Status, strings.TrimSpace(string(body)))
}
