package notifier

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	defaultTelegramRetries = 3
	defaultTelegramBackoff = time.Second
)

// TelegramConfig 配置 Telegram 推送。APIEndpoint 为空时使用官方地址。
type TelegramConfig struct {
	Token       string
	ChatID      int64
	APIEndpoint string
	Client      *http.Client
}

// Telegram 通过 Bot API 把告警推送到指定会话。
type Telegram struct {
	bot     *tgbotapi.BotAPI
	chatID  int64
	retries int
	backoff time.Duration
}

// NewTelegram 创建推送器，构造时会调用 getMe 校验 token。
func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" || cfg.ChatID == 0 {
		return nil, fmt.Errorf("telegram token/chat_id 未配置")
	}
	endpoint := strings.TrimSpace(cfg.APIEndpoint)
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram getMe: %w", err)
	}
	return &Telegram{
		bot:     bot,
		chatID:  cfg.ChatID,
		retries: defaultTelegramRetries,
		backoff: defaultTelegramBackoff,
	}, nil
}

// SendText 发送 Markdown 文本，失败时按线性退避重试。
func (t *Telegram) SendText(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true

	var lastErr error
	for i := 0; i < t.retries; i++ {
		_, err := t.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		if i == t.retries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i+1) * t.backoff):
		}
	}
	return fmt.Errorf("telegram send: %w", lastErr)
}
