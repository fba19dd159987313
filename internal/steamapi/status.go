package steamapi

import (
	"context"
	"time"

	"github.com/EgorLis/statusbot/internal/status"
)

// DefaultPersonaStates — подписи personastate 0..6 в порядке Steam.
var DefaultPersonaStates = []string{
	"Offline",
	"Online",
	"Busy",
	"Away",
	"Snooze",
	"Looking to trade",
	"Looking to play",
}

// Platform — имя платформы для логов и приоритета.
func (c *Client) Platform() string { return "steam" }

// Players возвращает статусы игроков по steam64 id. Игрок, которого Steam
// не вернул, в карте отсутствует (для трекера это unknown).
func (c *Client) Players(ctx context.Context, ids []string) (map[string]status.Entry, error) {
	sums, err := c.GetPlayerSummaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]status.Entry, len(sums))
	for id, s := range sums {
		out[id] = c.Entry(s)
	}
	return out, nil
}

// Label возвращает подпись personastate.
func (c *Client) Label(state int) string {
	if state >= 0 && state < len(c.labels) {
		return c.labels[state]
	}
	return "unknown state"
}

// Entry переводит сводку Steam в статус:
//
//	personastate 0                 -> offline (LastSeen из lastlogoff)
//	gameid из списка игр (или любой, если список пуст) -> in-game
//	иначе                          -> online
func (c *Client) Entry(s Summary) status.Entry {
	if s.PersonaState == 0 {
		e := status.Entry{Status: status.Offline}
		if s.LastLogoff > 0 {
			e.LastSeen = time.Unix(s.LastLogoff, 0)
		}
		return e
	}

	label := c.Label(s.PersonaState)
	if s.PersonaState == 1 {
		label = ""
	}
	if s.GameID == "" {
		return status.Entry{Status: status.Online, Detail: label}
	}

	game := s.GameExtraInfo
	if game == "" {
		game = "app " + s.GameID
	}
	if c.tracksGame(s.GameID) {
		return status.Entry{Status: status.InGame, Detail: game}
	}
	if label != "" {
		return status.Entry{Status: status.Online, Detail: label + ", playing " + game}
	}
	return status.Entry{Status: status.Online, Detail: "playing " + game}
}

func (c *Client) tracksGame(id string) bool {
	if len(c.games) == 0 {
		return true
	}
	for _, g := range c.games {
		if g == id {
			return true
		}
	}
	return false
}
