// Package telegram — транспорт Telegram Bot API: отправка сообщений в чаты
// и каналы и цикл long polling для команд.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// MaxMessageLength — лимит Telegram на длину текста (в символах).
const MaxMessageLength = 4096

// CommandFunc обрабатывает команду; ok=false — команда неизвестна,
// ответа не будет.
type CommandFunc func(ctx context.Context, chatID, user, command, args string) (reply string, ok bool)

// botAPI — то, что нам нужно от tgbotapi.BotAPI.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// pollTimeout — сколько getUpdates держит long polling (UpdateConfig.Timeout).
const pollTimeout = 60

type Client struct {
	api   botAPI
	token string
	self  string // username бота, для команд вида /status@bot
	log   logrus.FieldLogger
}

// New подключается к Bot API (getMe) с таймаутом запросов timeout.
func New(token string, timeout time.Duration, log logrus.FieldLogger) (*Client, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, newHTTPClient(timeout))
	if err != nil {
		return nil, fmt.Errorf("telegram: connect: %s", scrub(err.Error(), token))
	}
	log = log.WithField("platform", "telegram")
	log.WithField("bot", api.Self.UserName).Info("authorized")
	return &Client{api: api, token: token, self: api.Self.UserName, log: log}, nil
}

// splitClient разводит запросы по таймаутам: getUpdates висит до
// pollTimeout секунд, остальные (sendMessage, getMe) ограничены timeout.
type splitClient struct {
	poll *http.Client
	send *http.Client
}

func newHTTPClient(timeout time.Duration) splitClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return splitClient{
		poll: &http.Client{Timeout: timeout + pollTimeout*time.Second},
		send: &http.Client{Timeout: timeout},
	}
}

func (c splitClient) Do(req *http.Request) (*http.Response, error) {
	if strings.HasSuffix(req.URL.Path, "/getUpdates") {
		return c.poll.Do(req)
	}
	return c.send.Do(req)
}

// Send отправляет text в чат: числовой id или @channel. Длинный текст
// режется на части по MaxMessageLength.
func (c *Client) Send(ctx context.Context, chatID string, text string) error {
	for _, part := range Split(text, MaxMessageLength) {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg, err := newMessage(chatID, part)
		if err != nil {
			return err
		}
		if _, err := c.api.Send(msg); err != nil {
			return fmt.Errorf("telegram: send to %s: %s", chatID, scrub(err.Error(), c.token))
		}
	}
	return nil
}

func newMessage(chatID, text string) (tgbotapi.MessageConfig, error) {
	if strings.HasPrefix(chatID, "@") {
		return tgbotapi.NewMessageToChannel(chatID, text), nil
	}
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return tgbotapi.MessageConfig{}, fmt.Errorf("telegram: bad chat id %q", chatID)
	}
	return tgbotapi.NewMessage(id, text), nil
}

// Run читает обновления до отмены ctx и отвечает на команды. Ответ
// уходит в тот же чат. Неизвестные команды молча игнорируются.
func (c *Client) Run(ctx context.Context, handle CommandFunc) error {
	if handle == nil {
		return errors.New("telegram: nil command handler")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updates := c.api.GetUpdatesChan(u)
	defer c.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			c.handleUpdate(ctx, upd, handle)
		}
	}
}

func (c *Client) handleUpdate(ctx context.Context, upd tgbotapi.Update, handle CommandFunc) {
	msg := upd.Message
	if msg == nil || msg.Chat == nil || !msg.IsCommand() {
		return
	}
	chatID := strconv.FormatInt(msg.Chat.ID, 10)
	user := ""
	if msg.From != nil {
		user = msg.From.UserName
	}
	log := c.log.WithFields(logrus.Fields{"command": msg.Command(), "chat": chatID, "user": user})
	if !c.addressedToMe(msg.CommandWithAt()) {
		log.Debug("command for another bot ignored")
		return
	}

	reply, ok := handle(ctx, chatID, user, msg.Command(), msg.CommandArguments())
	if !ok {
		log.Debug("unknown command ignored")
		return
	}
	log.Info("command handled")
	if err := c.Send(ctx, chatID, reply); err != nil {
		log.WithError(err).Error("reply failed")
	}
}

// addressedToMe — команда без @ или с @ этого бота. В группах
// /status@OtherBot адресована другому боту.
func (c *Client) addressedToMe(cmd string) bool {
	_, to, ok := strings.Cut(cmd, "@")
	return !ok || c.self == "" || strings.EqualFold(to, c.self)
}

// Split режет текст на части не длиннее limit символов, по возможности
// по переводам строк.
func Split(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}
	var parts []string
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		parts = append(parts, strings.TrimRight(string(runes[:cut]), "\n"))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

func scrub(msg, token string) string {
	if token == "" {
		return msg
	}
	return strings.ReplaceAll(msg, token, "REDACTED")
}
