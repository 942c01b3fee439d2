package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"strconv"
	"strings"

	"github.com/Roma7-7-7/vocabulary-trainer/internal/progression"
)

const defaultAPIURL = "https://api.telegram.org"

type (
	SendMessageRequest struct {
		ChatID      int64                 `json:"chat_id"`
		Text        string                `json:"text"`
		ParseMode   string                `json:"parse_mode,omitempty"`
		ReplyMarkup *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
	}

	InlineKeyboardMarkup struct {
		InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
	}

	InlineKeyboardButton struct {
		Text         string `json:"text"`
		CallbackData string `json:"callback_data,omitempty"`
	}

	// Client sends messages through the Bot API without polling updates,
	// so it can be used next to a running bot.
	Client struct {
		token  string
		apiURL string
		client *http.Client
		log    *slog.Logger
	}
)

func NewClient(token string, log *slog.Logger) *Client {
	return &Client{
		token:  token,
		apiURL: defaultAPIURL,
		client: http.DefaultClient,
		log:    log,
	}
}

func (c *Client) AskAuthConfirmation(ctx context.Context, chatID int64, token string) error {
	return c.sendMessage(ctx, &SendMessageRequest{
		ChatID: chatID,
		Text:   "Someone is trying to login to web portal. Do you authorize it?",
		ReplyMarkup: &InlineKeyboardMarkup{
			InlineKeyboard: [][]InlineKeyboardButton{
				{
					{
						Text:         "✅ Yes",
						CallbackData: callbackAuthConfirm + ":" + token,
					},
					{
						Text:         "❌ No",
						CallbackData: callbackAuthDecline + ":" + token,
					},
				},
			},
		},
	})
}

// NotifyBadges announces newly earned badges.
func (c *Client) NotifyBadges(ctx context.Context, chatID int64, badges []progression.Badge) error {
	if len(badges) == 0 {
		return nil
	}

	return c.sendMessage(ctx, &SendMessageRequest{
		ChatID:    chatID,
		Text:      badgesMessage(badges),
		ParseMode: "HTML",
	})
}

func (c *Client) SendReminder(ctx context.Context, chatID int64, dueWords int) error {
	return c.sendMessage(ctx, &SendMessageRequest{
		ChatID: chatID,
		Text:   reminderMessage(dueWords),
		ReplyMarkup: &InlineKeyboardMarkup{
			InlineKeyboard: [][]InlineKeyboardButton{
				{
					{
						Text:         "Start review",
						CallbackData: callbackReviewNext,
					},
				},
			},
		},
	})
}

func (c *Client) sendMessage(ctx context.Context, reqBody *SendMessageRequest) error {
	marshal, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/bot%s/sendMessage", c.apiURL, c.token), bytes.NewReader(marshal))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 { //nolint:mnd // ignore mnd
		tags := make([]any, 0, 4) //nolint:mnd // ignore mnd
		tags = append(tags, "status", strconv.Itoa(resp.StatusCode))
		if response, err := httputil.DumpResponse(resp, true); err != nil {
			c.log.DebugContext(ctx, "failed to dump response", "error", err)
		} else {
			tags = append(tags, "response", string(response))
		}
		c.log.ErrorContext(ctx, "unexpected response", tags...)
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}

func badgesMessage(badges []progression.Badge) string {
	sb := &strings.Builder{}
	if len(badges) == 1 {
		sb.WriteString("New badge earned!\n")
	} else {
		sb.WriteString("New badges earned!\n")
	}
	for _, b := range badges {
		fmt.Fprintf(sb, "\n%s <b>%s</b> (+%d XP)\n<i>%s</i>", b.Icon, html.EscapeString(b.Name), b.XPBonus, html.EscapeString(b.Description))
	}
	return sb.String()
}

func reminderMessage(dueWords int) string {
	if dueWords == 1 {
		return "1 word is waiting for review."
	}
	return fmt.Sprintf("%d words are waiting for review.", dueWords)
}
