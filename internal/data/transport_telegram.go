package data

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/DevRickLin/msg-forwarder/internal/biz/repo"
)

// telegramTransport delivers through a Telegram bot
type telegramTransport struct {
	token    string
	endpoint string
	timeout  time.Duration

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

// NewTelegramTransport creates a transport for the given bot token.
// The bot is authenticated on first send. Every Bot API request, login
// included, is cut off after timeout.
func NewTelegramTransport(token string, timeout time.Duration) repo.Transport {
	return newTelegramTransport(token, tgbotapi.APIEndpoint, timeout)
}

func newTelegramTransport(token, endpoint string, timeout time.Duration) *telegramTransport {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &telegramTransport{token: token, endpoint: endpoint, timeout: timeout}
}

func (t *telegramTransport) Name() string {
	return "telegram"
}

func (t *telegramTransport) client() (*tgbotapi.BotAPI, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bot != nil {
		return t.bot, nil
	}
	if t.token == "" {
		return nil, errors.New("telegram bot token not configured")
	}

	// bot.Send takes no context, so the client timeout is the only cutoff
	bot, err := tgbotapi.NewBotAPIWithClient(t.token, t.endpoint, &http.Client{Timeout: t.timeout})
	if err != nil {
		return nil, fmt.Errorf("telegram login failed: %w", err)
	}
	t.bot = bot
	return bot, nil
}

// Send posts text to the chat id held in recipient (numeric id or @channel)
func (t *telegramTransport) Send(ctx context.Context, recipient, text string) (repo.TransportOutput, error) {
	if err := ctx.Err(); err != nil {
		return repo.TransportOutput{}, err
	}

	bot, err := t.client()
	if err != nil {
		return repo.TransportOutput{}, err
	}

	var msg tgbotapi.MessageConfig
	if strings.HasPrefix(recipient, "@") {
		msg = tgbotapi.NewMessageToChannel(recipient, text)
	} else {
		chatID, err := strconv.ParseInt(recipient, 10, 64)
		if err != nil {
			return repo.TransportOutput{}, fmt.Errorf("invalid telegram chat id %q", recipient)
		}
		msg = tgbotapi.NewMessage(chatID, text)
	}
	msg.DisableWebPagePreview = true

	sent, err := bot.Send(msg)
	if err != nil {
		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) {
			return repo.TransportOutput{StatusCode: apiErr.Code, Stderr: apiErr.Message}, nil
		}
		return repo.TransportOutput{}, err
	}

	return repo.TransportOutput{Stdout: strconv.Itoa(sent.MessageID)}, nil
}
