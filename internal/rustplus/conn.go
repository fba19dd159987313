package rustplus

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// формирует адрес ws/wss по текущей конфигурации
func (c *Client) wsURL() string {
	if c.cfg.UseProxy {
		return fmt.Sprintf("wss://companion-rust.facepunch.com/game/%s/%d", c.cfg.Server, c.cfg.Port)
	}
	return fmt.Sprintf("ws://%s:%d", c.cfg.Server, c.cfg.Port)
}

func (c *Client) getConn() *websocket.Conn {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
}

// dial с установкой pong-handler'а, дедлайнов и запуском пингов
func (c *Client) dialAndSetup(ctx context.Context) (*websocket.Conn, error) {
	dctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	conn, _, err := websocket.DefaultDialer.DialContext(dctx, c.url, nil)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(1 << 20)
	c.touchActivity()

	if c.cfg.UseProxy {
		// через proxy Facepunch pong есть
		_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		conn.SetPongHandler(func(string) error {
			c.touchActivity()
			return conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		})
		c.startPing(conn)
	} else {
		// прямой коннект: pong обычно нет, держим соединение app-heartbeat'ом
		c.startAppHeartbeat(ctx)
	}
	return conn, nil
}

// безопасно закрыть текущее соединение
func (c *Client) closeConn() {
	c.stopPing()
	c.connMu.Lock()
	conn := c.conn
	c.conn = nil
	c.connMu.Unlock()
	if conn == nil {
		return
	}
	c.wmu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "closing"),
		time.Now().Add(500*time.Millisecond))
	c.wmu.Unlock()
	_ = conn.Close()
}

func (c *Client) startAppHeartbeat(ctx context.Context) {
	stop := c.resetPing()
	go func() {
		tick := time.NewTicker(25 * time.Second)
		defer tick.Stop()
		for {
			select {
			case <-stop:
				return
			case <-tick.C:
				if c.sinceLastActivity() <= 20*time.Second {
					continue
				}
				hctx, cancel := context.WithTimeout(ctx, 8*time.Second)
				_, err := c.request(hctx, Request{TeamInfo: true})
				cancel()
				if err != nil {
					// соединение подвисло — закрываем, readLoop переподключится
					c.log.WithError(err).Warn("heartbeat failed, dropping connection")
					c.closeConn()
					return
				}
			}
		}
	}()
}

func (c *Client) startPing(conn *websocket.Conn) {
	stop := c.resetPing()
	go func() {
		t := time.NewTicker(10 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				c.wmu.Lock()
				_ = conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
				c.wmu.Unlock()
			case <-stop:
				return
			}
		}
	}()
}

// resetPing останавливает прежний ping/heartbeat и выдаёт новый стоп-канал.
func (c *Client) resetPing() chan struct{} {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.pingStop != nil {
		close(c.pingStop)
	}
	c.pingStop = make(chan struct{})
	return c.pingStop
}

func (c *Client) stopPing() {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.pingStop != nil {
		close(c.pingStop)
		c.pingStop = nil
	}
}

func (c *Client) touchActivity() {
	c.lastActivity.Store(time.Now().UnixNano())
}

func (c *Client) sinceLastActivity() time.Duration {
	n := c.lastActivity.Load()
	if n == 0 {
		return time.Hour
	}
	return time.Since(time.Unix(0, n))
}
