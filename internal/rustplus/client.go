package rustplus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// ErrNotConnected — запрос без активного соединения.
var ErrNotConnected = errors.New("rustplus: not connected")

// BotPrefix помечает сообщения бота в тим-чате; такие сообщения бот
// при чтении пропускает.
const BotPrefix = "[bot] "

const (
	writeTimeout   = 5 * time.Second
	requestTimeout = 10 * time.Second
)

type Config struct {
	Server      string
	Port        int
	PlayerID    uint64
	PlayerToken int32
	UseProxy    bool
}

type Client struct {
	cfg Config
	url string
	log logrus.FieldLogger

	connMu sync.Mutex
	conn   *websocket.Conn

	seq     atomic.Uint32
	mu      sync.Mutex
	pending map[uint32]chan Response

	wmu          sync.Mutex    // сериализует запись в websocket
	pingStop     chan struct{} // стоп-канал для ping/heartbeat
	lastActivity atomic.Int64  // unix nanos последнего принятого сообщения
	closed       atomic.Bool

	onTeamMessage func(context.Context, TeamMessage)
	handlers      sync.WaitGroup
}

func New(cfg Config, log logrus.FieldLogger) *Client {
	c := &Client{
		cfg:     cfg,
		log:     log.WithField("platform", "rustplus"),
		pending: make(map[uint32]chan Response),
	}
	c.url = c.wsURL()
	return c
}

// OnTeamMessage задаёт обработчик сообщений тим-чата. Сообщения бота
// (BotPrefix) до обработчика не доходят. Вызывать до Connect.
func (c *Client) OnTeamMessage(fn func(context.Context, TeamMessage)) {
	c.onTeamMessage = fn
}

// Connect устанавливает WebSocket и запускает readLoop. При обрыве
// клиент переподключается сам, пока не отменён ctx или не вызван Disconnect.
func (c *Client) Connect(ctx context.Context) error {
	c.log.WithField("url", c.url).Info("connecting")
	conn, err := c.dialAndSetup(ctx)
	if err != nil {
		return fmt.Errorf("rustplus: connect: %w", err)
	}
	c.setConn(conn)
	c.closed.Store(false)
	c.log.Info("connected")

	go c.readLoop(ctx)
	return nil
}

// Disconnect закрывает соединение и ждёт обработчиков команд.
func (c *Client) Disconnect() {
	c.closed.Store(true)
	c.closeConn()
	c.handlers.Wait()
}

func (c *Client) IsConnected() bool {
	return c.getConn() != nil && !c.closed.Load()
}

// SendTeamMessage отправляет сообщение в тим-чат и ждёт подтверждения.
func (c *Client) SendTeamMessage(ctx context.Context, text string) error {
	_, err := c.request(ctx, Request{TeamMessage: &text})
	return err
}

// Send реализует рассылку: каждая строка уходит отдельным сообщением
// с BotPrefix. chatID игнорируется (тим-чат один).
func (c *Client) Send(ctx context.Context, chatID string, text string) error {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := c.SendTeamMessage(ctx, BotPrefix+line); err != nil {
			return err
		}
	}
	return nil
}

// request отправляет запрос, подставляя seq и данные игрока, и ждёт ответ
// с тем же seq.
func (c *Client) request(ctx context.Context, req Request) (Response, error) {
	if !c.IsConnected() {
		return Response{}, ErrNotConnected
	}
	conn := c.getConn()
	if conn == nil {
		return Response{}, ErrNotConnected
	}
	seq := c.seq.Add(1)
	req.Seq = seq
	req.PlayerID = c.cfg.PlayerID
	req.PlayerToken = c.cfg.PlayerToken

	ch := make(chan Response, 1)
	c.mu.Lock()
	c.pending[seq] = ch
	c.mu.Unlock()
	drop := func() {
		c.mu.Lock()
		delete(c.pending, seq)
		c.mu.Unlock()
	}

	// запись строго через один мьютекс + write-deadline
	c.wmu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	err := conn.WriteMessage(websocket.BinaryMessage, req.Marshal())
	c.wmu.Unlock()
	if err != nil {
		drop()
		return Response{}, fmt.Errorf("rustplus: write: %w", err)
	}

	timer := time.NewTimer(requestTimeout)
	defer timer.Stop()
	select {
	case r := <-ch:
		if r.Error != "" {
			return r, fmt.Errorf("rustplus: %s", r.Error)
		}
		return r, nil
	case <-ctx.Done():
		drop()
		return Response{}, ctx.Err()
	case <-timer.C:
		drop()
		return Response{}, errors.New("rustplus: timeout waiting for response")
	}
}

// failPending завершает все ожидающие запросы ошибкой (обрыв соединения).
func (c *Client) failPending(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for seq, ch := range c.pending {
		ch <- Response{Seq: seq, Error: reason}
		delete(c.pending, seq)
	}
}

func (c *Client) dispatchTeamMessage(ctx context.Context, tm TeamMessage) {
	if c.onTeamMessage == nil || strings.HasPrefix(tm.Message, strings.TrimSpace(BotPrefix)) {
		return
	}
	// обработчик может сам слать запросы, поэтому не в readLoop
	c.handlers.Add(1)
	go func() {
		defer c.handlers.Done()
		c.onTeamMessage(ctx, tm)
	}()
}
