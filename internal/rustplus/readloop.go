package rustplus

import (
	"context"
	"time"
)

const maxBackoff = 30 * time.Second

func (c *Client) readLoop(ctx context.Context) {
	defer func() {
		c.closed.Store(true)
		c.closeConn()
		c.failPending("connection closed")
		c.log.Info("disconnected")
	}()

	// закрыть по отмене контекста
	go func() {
		<-ctx.Done()
		c.closeConn()
	}()

	for {
		conn := c.getConn()
		if conn != nil {
			_, data, err := conn.ReadMessage()
			if err == nil {
				c.touchActivity()
				c.handle(ctx, data)
				continue
			}
			if c.closed.Load() || ctx.Err() != nil {
				return
			}
			c.log.WithError(err).Warn("read failed")
		}

		// закрываем и фейлим ожидающие
		c.closeConn()
		c.failPending("connection lost")
		if !c.reconnect(ctx) {
			return
		}
	}
}

func (c *Client) handle(ctx context.Context, data []byte) {
	msg, err := UnmarshalMessage(data)
	if err != nil {
		c.log.WithError(err).Warn("bad message")
		return
	}
	if r := msg.Response; r != nil {
		c.mu.Lock()
		ch, ok := c.pending[r.Seq]
		delete(c.pending, r.Seq)
		c.mu.Unlock()
		if ok {
			ch <- *r
		}
	}
	if tm := msg.TeamMessage; tm != nil {
		c.dispatchTeamMessage(ctx, *tm)
	}
}

// reconnect переподключается с экспоненциальной задержкой 1s..30s.
// false — клиент закрыт или ctx отменён.
func (c *Client) reconnect(ctx context.Context) bool {
	backoff := time.Second
	for !c.closed.Load() {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(backoff):
		}
		conn, err := c.dialAndSetup(ctx)
		if err != nil {
			c.log.WithError(err).WithField("wait", backoff).Warn("reconnect failed")
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		if c.closed.Load() {
			_ = conn.Close()
			return false
		}
		c.setConn(conn)
		c.log.Info("reconnected")
		return true
	}
	return false
}
