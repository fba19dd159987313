package bmapi

import (
	"context"
	"fmt"
	"strings"

	"github.com/EgorLis/statusbot/internal/status"
)

// Platform — имя платформы для логов и приоритета.
func (c *Client) Platform() string { return "battlemetrics" }

// Players сканирует отслеживаемый сервер: игрок из списка онлайн -> in-game
// (Detail — имя сервера), иначе offline. Ответ есть на каждый id.
func (c *Client) Players(ctx context.Context, ids []string) (map[string]status.Entry, error) {
	if c.server == "" {
		return nil, fmt.Errorf("battlemetrics: tracked server is not configured")
	}
	srv, err := c.Server(ctx, c.server)
	if err != nil {
		return nil, err
	}
	out := make(map[string]status.Entry, len(ids))
	for _, id := range ids {
		if _, ok := srv.Online[id]; ok {
			out[id] = status.Entry{Status: status.InGame, Detail: srv.Name}
		} else {
			out[id] = status.Entry{Status: status.Offline}
		}
	}
	return out, nil
}

// ServerStatus — attributes.status == "online" -> up, иначе down.
func (c *Client) ServerStatus(ctx context.Context, id string) (status.Entry, error) {
	srv, err := c.Server(ctx, id)
	if err != nil {
		return status.Entry{}, err
	}
	return srv.Entry(), nil
}

// Entry переводит сервер в статус; в Detail — заполненность.
func (s Server) Entry() status.Entry {
	if strings.EqualFold(s.Status, "online") {
		return status.Entry{Status: status.Up, Detail: fmt.Sprintf("%d/%d players", s.Players, s.MaxPlayers)}
	}
	return status.Entry{Status: status.Down, Detail: s.Status}
}
