// Package bmapi — клиент BattleMetrics API: статус серверов и список
// игроков онлайн на отслеживаемом сервере.
package bmapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const DefaultBaseURL = "https://api.battlemetrics.com"

type Client struct {
	http    *http.Client
	token   string
	server  string // сервер, на котором ищем игроков
	BaseURL string
	log     logrus.FieldLogger

	mu    sync.Mutex
	cache map[string]cached // server id -> последний ответ (для If-None-Match)
}

type cached struct {
	etag string
	srv  Server
}

// Server — разобранный ответ /servers/{id}?include=player.
type Server struct {
	ID         string
	Name       string
	Status     string // online, offline, dead, removing
	Players    int
	MaxPlayers int
	Online     map[string]string // id игрока -> ник
}

type serverResponse struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			Name       string `json:"name"`
			Status     string `json:"status"`
			Players    int    `json:"players"`
			MaxPlayers int    `json:"maxPlayers"`
		} `json:"attributes"`
	} `json:"data"`
	Included []struct {
		Type       string `json:"type"` // "player"
		ID         string `json:"id"`
		Attributes struct {
			Name string `json:"name"`
		} `json:"attributes"`
	} `json:"included"`
}

// NewClient создаёт клиент. token может быть пустым (публичные лимиты),
// server — BattleMetrics id сервера для поиска игроков.
func NewClient(token, server string, timeout time.Duration, log logrus.FieldLogger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		token:   token,
		server:  server,
		BaseURL: DefaultBaseURL,
		log:     log.WithField("platform", "battlemetrics"),
		cache:   map[string]cached{},
	}
}

// Server получает сервер вместе с игроками онлайн. Использует ETag:
// на 304 отдаётся прошлый ответ.
func (c *Client) Server(ctx context.Context, id string) (Server, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/servers/%s?include=player", c.BaseURL, url.PathEscape(id)), nil)
	if err != nil {
		return Server{}, fmt.Errorf("battlemetrics: build request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	c.mu.Lock()
	prev, hasPrev := c.cache[id]
	c.mu.Unlock()
	if hasPrev && prev.etag != "" {
		req.Header.Set("If-None-Match", prev.etag)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Server{}, fmt.Errorf("battlemetrics: request: %w", err)
	}
	defer resp.Body.Close()

	// 304 — ничего не изменилось
	if resp.StatusCode == http.StatusNotModified && hasPrev {
		c.log.WithField("server", id).Debug("304, using cached response")
		return prev.srv, nil
	}
	if resp.StatusCode/100 != 2 {
		return Server{}, fmt.Errorf("battlemetrics: server %s: status %d", id, resp.StatusCode)
	}

	var br serverResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return Server{}, fmt.Errorf("battlemetrics: decode: %w", err)
	}
	if br.Data.ID == "" {
		return Server{}, errors.New("battlemetrics: empty server object")
	}

	srv := Server{
		ID:         br.Data.ID,
		Name:       br.Data.Attributes.Name,
		Status:     br.Data.Attributes.Status,
		Players:    br.Data.Attributes.Players,
		MaxPlayers: br.Data.Attributes.MaxPlayers,
		Online:     make(map[string]string, len(br.Included)),
	}
	for _, inc := range br.Included {
		if inc.Type == "player" {
			srv.Online[inc.ID] = inc.Attributes.Name
		}
	}
	c.log.WithField("server", id).Debugf("%d players online", len(srv.Online))

	if et := resp.Header.Get("ETag"); et != "" {
		c.mu.Lock()
		c.cache[id] = cached{etag: et, srv: srv}
		c.mu.Unlock()
	}
	return srv, nil
}
