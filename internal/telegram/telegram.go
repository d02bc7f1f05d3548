package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/deusflow/hrnews/internal/ratelimit"
	"github.com/deusflow/hrnews/internal/retry"
)

const defaultBaseURL = "https://api.telegram.org"

// MaxMessageRunes is the Bot API limit for one text message.
const MaxMessageRunes = 4096

// Client posts messages to one chat or channel.
type Client struct {
	token       string
	chatID      string
	baseURL     string
	parseMode   string
	linkPreview bool
	http        *http.Client
	retry       retry.Config
	pacer       *ratelimit.Pacer
	log         *slog.Logger
}

type Option func(*Client)

func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = u } }

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

func WithRetry(rc retry.Config) Option { return func(c *Client) { c.retry = rc } }

// WithPacer spaces consecutive sends.
func WithPacer(p *ratelimit.Pacer) Option { return func(c *Client) { c.pacer = p } }

func WithLogger(l *slog.Logger) Option { return func(c *Client) { c.log = l } }

// WithParseMode sets "HTML" or "MarkdownV2"; empty sends plain text.
func WithParseMode(mode string) Option { return func(c *Client) { c.parseMode = mode } }

// WithLinkPreview toggles the page preview under the message.
func WithLinkPreview(on bool) Option { return func(c *Client) { c.linkPreview = on } }

func NewClient(token, chatID string, opts ...Option) *Client {
	c := &Client{
		token:       token,
		chatID:      chatID,
		baseURL:     defaultBaseURL,
		linkPreview: true,
		http:        &http.Client{Timeout: 30 * time.Second},
		retry:       retry.Config{MaxAttempts: 3, Delay: 2 * time.Second, Backoff: true},
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// APIError is a non-OK answer from the Bot API.
type APIError struct {
	Status      int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram API error: status %d: %s", e.Status, e.Description)
}

// SendMessage sends text with retry. Client errors other than 429 are not
// retried.
func (c *Client) SendMessage(ctx context.Context, text string) error {
	if c.pacer != nil {
		if err := c.pacer.Wait(ctx); err != nil {
			return err
		}
	}

	attempt := 0
	err := retry.Do(ctx, c.retry, func(ctx context.Context) error {
		attempt++
		err := c.sendMessageOnce(ctx, text)
		if err != nil {
			c.log.Warn("telegram send failed", "attempt", attempt, "error", err)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("can't send message: %w", err)
	}
	c.log.Info("message sent to telegram", "attempt", attempt, "chars", len(text))
	return nil
}

// sendMessageOnce does one try to send message
func (c *Client) sendMessageOnce(ctx context.Context, text string) error {
	payload := map[string]interface{}{
		"chat_id":                  c.chatID,
		"text":                     text,
		"disable_web_page_preview": !c.linkPreview,
	}
	if c.parseMode != "" {
		payload["parse_mode"] = c.parseMode
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return retry.Permanent(fmt.Errorf("error make JSON: %w", err))
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("error HTTP request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var ar apiResponse
	_ = json.Unmarshal(raw, &ar)

	if resp.StatusCode == http.StatusOK && ar.OK {
		return nil
	}

	apiErr := &APIError{Status: resp.StatusCode, Description: ar.Description}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return retry.Permanent(apiErr)
	}
	return apiErr
}
